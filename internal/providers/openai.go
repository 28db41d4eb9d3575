package providers

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/failure"
)

const userAgent = "relnote"

// authVariant is one way of presenting the API key.
type authVariant struct {
	Header string
	Value  string
}

// variant is one (endpoint, auth) combination, carried to the transport in
// the request context.
type variant struct {
	endpoint *url.URL
	auth     authVariant
}

type variantKey struct{}

// variantTransport points each request at the variant in its context and
// replaces go-openai's default auth header with the variant's.
type variantTransport struct {
	base http.RoundTripper
}

func (t *variantTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	v, ok := req.Context().Value(variantKey{}).(variant)
	if !ok {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	u := *v.endpoint
	r.URL = &u
	r.Host = ""
	r.Header.Del("Authorization")
	r.Header.Del("api-key")
	r.Header.Del("x-api-key")
	r.Header.Set(v.auth.Header, v.auth.Value)
	r.Header.Set("User-Agent", userAgent)
	r.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(r)
}

// Client talks to an OpenAI-compatible gateway. Each call walks every
// endpoint variant and every auth variant, for 1+MaxRetries attempts, until
// one answers with a JSON object.
type Client struct {
	model     string
	endpoints []*url.URL
	auths     []authVariant
	retries   int
	backoff   time.Duration
	httpCli   *http.Client
	chat      *openai.Client
}

// New builds a client from validated LLM settings.
func New(cfg config.LLMConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsCfg
	return newClient(cfg, base)
}

func newClient(cfg config.LLMConfig, base http.RoundTripper) (*Client, error) {
	endpoints, err := endpointVariants(cfg)
	if err != nil {
		return nil, err
	}
	httpCli := &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Transport: &variantTransport{base: base},
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = httpCli

	return &Client{
		model:     cfg.Model,
		endpoints: endpoints,
		auths:     authVariants(cfg),
		retries:   max(cfg.MaxRetries, 0),
		backoff:   time.Duration(cfg.RetryBackoffMillis) * time.Millisecond,
		httpCli:   httpCli,
		chat:      openai.NewClientWithConfig(oc),
	}, nil
}

func (c *Client) Name() string { return "openai-compatible:" + c.model }

// Endpoints returns the endpoint variants in the order they are tried.
func (c *Client) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	for i, u := range c.endpoints {
		out[i] = u.String()
	}
	return out
}

// Complete sends req and returns the first JSON object any variant yields.
// Authorization, not-found, method and server failures move on to the next
// variant; any other HTTP status and TLS verification failures stop
// immediately.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	var failures []string
	contentOnly := true
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoffDelay(c.backoff, attempt)); err != nil {
				return Response{}, err
			}
		}
		for _, ep := range c.endpoints {
			for _, auth := range c.auths {
				vctx := context.WithValue(ctx, variantKey{}, variant{endpoint: ep, auth: auth})
				raw, err := c.send(vctx, ep, req)
				if err == nil {
					var obj string
					obj, err = ExtractJSONObject(raw)
					if err == nil {
						return Response{Content: obj, Endpoint: ep.String()}, nil
					}
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Response{}, ctxErr
				}
				if status, msg, ok := httpStatus(err); ok {
					failures = append(failures, fmt.Sprintf("HTTP %d @ %s: %s", status, ep, msg))
					contentOnly = false
					if retryableStatus(status) {
						continue
					}
					return Response{}, fmt.Errorf("LLM call failed: HTTP %d: %s", status, msg)
				}
				if isCertificateError(err) {
					return Response{}, fmt.Errorf("LLM TLS certificate verify failed: %v. %s", err, tlsHint)
				}
				var ce *contentError
				if !errors.As(err, &ce) {
					contentOnly = false
				}
				failures = append(failures, fmt.Sprintf("%s: %v", ep, err))
			}
		}
	}
	brief := strings.Join(failures[max(len(failures)-4, 0):], " | ")
	if contentOnly && len(failures) > 0 {
		return Response{}, failure.Contractf("LLM output held no JSON object after retries: %s", brief)
	}
	return Response{}, fmt.Errorf("LLM call failed after retries: %s", brief)
}

func (c *Client) send(ctx context.Context, ep *url.URL, req Request) (string, error) {
	if isResponsesEndpoint(ep) {
		return c.sendResponses(ctx, ep, req)
	}
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		// The client omits a zero temperature, so the smallest positive
		// float32 stands in for deterministic sampling.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &contentError{reason: "empty LLM response"}
	}
	msg := resp.Choices[0].Message
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		var parts []string
		for _, p := range msg.MultiContent {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
		content = strings.TrimSpace(strings.Join(parts, ""))
	}
	if content == "" {
		return "", &contentError{reason: "empty LLM response"}
	}
	return content, nil
}

type responsesRequest struct {
	Model       string                         `json:"model"`
	Temperature float64                        `json:"temperature"`
	Input       []openai.ChatCompletionMessage `json:"input"`
}

// sendResponses speaks the /responses request shape, which go-openai does
// not model.
func (c *Client) sendResponses(ctx context.Context, ep *url.URL, req Request) (string, error) {
	payload, err := json.Marshal(responsesRequest{
		Model: c.model,
		Input: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", &statusError{status: httpResp.StatusCode, message: errorMessage(body, httpResp.Status)}
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &contentError{reason: "response is not JSON: " + err.Error()}
	}
	content := extractContent(parsed)
	if content == "" {
		return "", &contentError{reason: "empty LLM response"}
	}
	return content, nil
}

// errorMessage pulls error.message (or message) out of an error body.
func errorMessage(body []byte, fallback string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		if e, ok := parsed["error"].(map[string]any); ok {
			for _, k := range []string{"message", "code"} {
				if s, ok := e[k].(string); ok && s != "" {
					return shorten(s)
				}
			}
		} else if s, ok := parsed["message"].(string); ok && s != "" {
			return shorten(s)
		}
	}
	return shorten(text)
}

// extractContent finds the model text in a chat or responses shaped body:
// choices[0].message.content, then output_text, then output[].content[].
func extractContent(parsed map[string]any) string {
	if choices, ok := parsed["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if text := stringify(msg["content"]); text != "" {
					return text
				}
			}
		}
	}
	if s, ok := parsed["output_text"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	if output, ok := parsed["output"].([]any); ok {
		var parts []string
		for _, item := range output {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			contents, ok := m["content"].([]any)
			if !ok {
				continue
			}
			for _, ci := range contents {
				if text := stringify(ci); text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, ""))
	}
	return ""
}

func stringify(v any) string {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c)
	case []any:
		var parts []string
		for _, item := range c {
			switch it := item.(type) {
			case string:
				parts = append(parts, it)
			case map[string]any:
				if text, ok := it["text"].(string); ok && strings.TrimSpace(text) != "" {
					parts = append(parts, text)
				} else if nested := stringify(it["content"]); nested != "" {
					parts = append(parts, nested)
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, ""))
	case map[string]any:
		if text, ok := c["text"].(string); ok {
			return strings.TrimSpace(text)
		}
		return stringify(c["content"])
	}
	return ""
}

// ExtractJSONObject returns the JSON object embedded in model output: the
// whole text when it is an object, else the span from the first "{" to the
// last "}". Markdown code fences are ignored.
func ExtractJSONObject(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", &contentError{reason: "LLM response does not contain a JSON object"}
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", &contentError{reason: "LLM response JSON object is malformed"}
	}
	return candidate, nil
}

func isResponsesEndpoint(u *url.URL) bool {
	return strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/responses")
}

// endpointVariants lists the URLs to try: an explicit endpoint alone, a base
// URL that already names an operation alone, otherwise chat completions then
// responses under the base URL.
func endpointVariants(cfg config.LLMConfig) ([]*url.URL, error) {
	var raw []string
	switch base := strings.TrimRight(cfg.BaseURL, "/"); {
	case strings.TrimSpace(cfg.Endpoint) != "":
		raw = []string{strings.TrimSpace(cfg.Endpoint)}
	case strings.HasSuffix(base, "/chat/completions") || strings.HasSuffix(base, "/responses"):
		raw = []string{base}
	default:
		raw = []string{base + "/chat/completions", base + "/responses"}
	}
	out := make([]*url.URL, 0, len(raw))
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, failure.Inputf("invalid LLM endpoint %q", r)
		}
		out = append(out, u)
	}
	return out, nil
}

// authVariants lists the auth headers to try: the configured header and
// scheme alone, or Bearer authorization, api-key and x-api-key.
func authVariants(cfg config.LLMConfig) []authVariant {
	var variants []authVariant
	if h := strings.TrimSpace(cfg.AuthHeader); h != "" {
		value := cfg.APIKey
		if scheme := strings.TrimSpace(cfg.AuthScheme); scheme != "" {
			value = scheme + " " + cfg.APIKey
		}
		variants = append(variants, authVariant{Header: h, Value: value})
	} else {
		variants = append(variants,
			authVariant{Header: "Authorization", Value: "Bearer " + cfg.APIKey},
			authVariant{Header: "api-key", Value: cfg.APIKey},
			authVariant{Header: "x-api-key", Value: cfg.APIKey},
		)
	}
	seen := make(map[authVariant]bool)
	unique := variants[:0]
	for _, v := range variants {
		key := authVariant{Header: strings.ToLower(v.Header), Value: v.Value}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, v)
	}
	return unique
}

func tlsConfig(cfg config.LLMConfig) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case cfg.InsecureSkipVerify:
		tc.InsecureSkipVerify = true
	case cfg.CABundle != "":
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, failure.Wrap(failure.Input, err, "reading RELEASE_LLM_CA_BUNDLE")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, failure.Inputf("RELEASE_LLM_CA_BUNDLE holds no PEM certificates: %s", cfg.CABundle)
		}
		tc.RootCAs = pool
	}
	return tc, nil
}
