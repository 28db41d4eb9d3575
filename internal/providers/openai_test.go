package providers

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/failure"
)

func testConfig(baseURL string) config.LLMConfig {
	cfg := config.Default().LLM
	cfg.APIKey = "test-key"
	cfg.Model = "gpt-test"
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 0
	cfg.RetryBackoffMillis = 0
	return cfg
}

func newTestClient(t *testing.T, cfg config.LLMConfig) *Client {
	t.Helper()
	c, err := newClient(cfg, http.DefaultTransport)
	if err != nil {
		t.Fatalf("newClient error: %v", err)
	}
	return c
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

// recorder logs every request path and auth header it sees.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(req *http.Request, header string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req.URL.Path+" "+header)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestClient_ChatCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Model       string   `json:"model"`
			Temperature *float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != `{"x":1}` {
			t.Errorf("request body = %+v", body)
		}
		if body.Temperature == nil || *body.Temperature <= 0 || *body.Temperature > 1e-6 {
			t.Errorf("temperature = %v, want a near-zero value on the wire", body.Temperature)
		}
		fmt.Fprint(w, chatBody("```json\n{\"bump\": \"minor\"}\n```"))
	}))
	defer server.Close()

	c := newTestClient(t, testConfig(server.URL+"/v1/"))
	resp, err := c.Complete(context.Background(), Request{System: "sys", User: `{"x":1}`})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != `{"bump": "minor"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Endpoint != server.URL+"/v1/chat/completions" {
		t.Errorf("Endpoint = %q", resp.Endpoint)
	}
}

func TestClient_FallsBackAcrossVariants(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization") + r.Header.Get("api-key") + r.Header.Get("x-api-key")
		rec.add(r, header)
		if strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"no such route"}}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["input"]; !ok {
			t.Error("responses payload must carry input")
		}
		if body["temperature"] != float64(0) {
			t.Errorf("temperature = %v", body["temperature"])
		}
		fmt.Fprint(w, `{"output":[{"type":"message","content":[{"type":"output_text","text":"{\"items\": []}"}]}]}`)
	}))
	defer server.Close()

	c := newTestClient(t, testConfig(server.URL))
	resp, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != `{"items": []}` {
		t.Errorf("Content = %q", resp.Content)
	}
	want := []string{
		"/chat/completions Bearer test-key",
		"/chat/completions test-key",
		"/chat/completions test-key",
		"/responses Bearer test-key",
	}
	got := rec.list()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestClient_CustomAuthHeader(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r, r.Header.Get("X-Gateway-Key")+"|"+r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"denied"}}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Endpoint = server.URL + "/gateway/chat/completions"
	cfg.AuthHeader = "X-Gateway-Key"
	cfg.AuthScheme = "Token"
	c := newTestClient(t, cfg)
	_, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	got := rec.list()
	if len(got) != 1 || got[0] != "/gateway/chat/completions Token test-key|" {
		t.Errorf("calls = %v", got)
	}
	if !strings.Contains(err.Error(), "LLM call failed after retries: HTTP 401") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_FatalClientError(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r, "")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"unknown model gpt-test","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	c := newTestClient(t, cfg)
	_, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if err == nil || err.Error() != "LLM call failed: HTTP 400: unknown model gpt-test" {
		t.Errorf("err = %v", err)
	}
	if n := len(rec.list()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestClient_ExhaustsRetries(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r, "")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Endpoint = server.URL + "/v1/chat/completions"
	cfg.MaxRetries = 1
	c := newTestClient(t, cfg)
	_, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(rec.list()); n != 6 {
		t.Errorf("requests = %d, want 2 attempts x 3 auth variants", n)
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "LLM call failed after retries: ") {
		t.Errorf("err = %v", msg)
	}
	if got := strings.Count(msg, "HTTP 503"); got != 4 {
		t.Errorf("reported %d failures, want the last 4: %s", got, msg)
	}
	if failure.Is(err, failure.Contract) {
		t.Error("transport exhaustion is not a contract violation")
	}
}

func TestClient_NoJSONObjectIsContractFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody("I cannot decide."))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Endpoint = server.URL + "/chat/completions"
	cfg.AuthHeader = "Authorization"
	c := newTestClient(t, cfg)
	_, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if !failure.Is(err, failure.Contract) {
		t.Errorf("err = %v, want contract failure", err)
	}
}

func TestClient_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(t, testConfig(server.URL))
	if _, err := c.Complete(ctx, Request{}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func writeServerCA(t *testing.T, server *httptest.Server) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClient_TLSTrust(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody(`{"ok": true}`))
	}))
	defer server.Close()

	t.Run("untrusted certificate is fatal with hint", func(t *testing.T) {
		c, err := New(testConfig(server.URL))
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		_, err = c.Complete(context.Background(), Request{System: "s", User: "u"})
		if err == nil || !strings.Contains(err.Error(), "RELEASE_LLM_CA_BUNDLE") {
			t.Errorf("err = %v, want TLS hint", err)
		}
	})
	t.Run("CA bundle", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.CABundle = writeServerCA(t, server)
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		if _, err := c.Complete(context.Background(), Request{System: "s", User: "u"}); err != nil {
			t.Errorf("Complete error: %v", err)
		}
	})
	t.Run("insecure opt-out", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.InsecureSkipVerify = true
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		if _, err := c.Complete(context.Background(), Request{System: "s", User: "u"}); err != nil {
			t.Errorf("Complete error: %v", err)
		}
	})
	t.Run("bundle without certificates", func(t *testing.T) {
		cfg := testConfig(server.URL)
		cfg.CABundle = filepath.Join(t.TempDir(), "empty.pem")
		if err := os.WriteFile(cfg.CABundle, []byte("not a pem"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := New(cfg); !failure.Is(err, failure.Input) {
			t.Errorf("err = %v, want input failure", err)
		}
	})
}

func TestEndpointVariants(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		endpoint string
		want     []string
	}{
		{"base url", "https://llm.example/v1/", "", []string{"https://llm.example/v1/chat/completions", "https://llm.example/v1/responses"}},
		{"base names chat", "https://llm.example/v1/chat/completions", "", []string{"https://llm.example/v1/chat/completions"}},
		{"base names responses", "https://llm.example/v1/responses", "", []string{"https://llm.example/v1/responses"}},
		{"explicit endpoint", "https://ignored.example", "https://azure.example/openai/deployments/x/chat/completions?api-version=2024-06-01", []string{"https://azure.example/openai/deployments/x/chat/completions?api-version=2024-06-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(tt.base)
			cfg.Endpoint = tt.endpoint
			c := newTestClient(t, cfg)
			got := c.Endpoints()
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("Endpoints() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := endpointVariants(testConfig("not a url")); !failure.Is(err, failure.Input) {
		t.Errorf("invalid base url err = %v", err)
	}
}

func TestAuthVariants(t *testing.T) {
	cfg := testConfig("https://llm.example")
	if got := authVariants(cfg); len(got) != 3 {
		t.Errorf("default variants = %v", got)
	}

	cfg.AuthHeader = "api-key"
	cfg.AuthScheme = ""
	got := authVariants(cfg)
	if len(got) != 1 || got[0] != (authVariant{Header: "api-key", Value: "test-key"}) {
		t.Errorf("custom variants = %v", got)
	}
}

func TestResponsesEndpointSelection(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, `{"output_text":"{\"summary\":\"ok\"}"}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL + "/v1/responses")
	c := newTestClient(t, cfg)
	resp, err := c.Complete(context.Background(), Request{System: "s", User: "u"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != `{"summary":"ok"}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if gotBody["model"] != "gpt-test" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if _, ok := gotBody["messages"]; ok {
		t.Error("responses payload must not carry messages")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`{"a":1}`, `{"a":1}`, false},
		{"  Sure! {\"a\": {\"b\": 2}} hope this helps", `{"a": {"b": 2}}`, false},
		{"```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"no object", "", true},
		{"} backwards {", "", true},
		{`{"a": }`, "", true},
	}
	for _, tt := range tests {
		got, err := ExtractJSONObject(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractJSONObject(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"chat string", `{"choices":[{"message":{"content":" hi "}}]}`, "hi"},
		{"chat parts", `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, "ab"},
		{"output_text", `{"output_text":"x"}`, "x"},
		{"output items", `{"output":[{"content":[{"text":"p1"}]},{"content":[{"text":"p2"}]}]}`, "p1p2"},
		{"nothing", `{"id":"r1"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(tt.body), &parsed); err != nil {
				t.Fatal(err)
			}
			if got := extractContent(parsed); got != tt.want {
				t.Errorf("extractContent = %q, want %q", got, tt.want)
			}
		})
	}
}
