package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAPIURL = "https://api.github.com"
	userAgent     = "relnote"

	// DefaultTimeout bounds every API request.
	DefaultTimeout = 30 * time.Second

	releasesPerPage = 100
	// MaxReleasePages caps release pagination.
	MaxReleasePages = 10
)

// Client provides read access to the GitHub REST API.
type Client struct {
	apiURL  string
	httpCli *http.Client
}

// NewClient creates a client for apiURL. A non-empty token is sent as a
// bearer token through an oauth2 transport; an empty token makes anonymous
// requests. An HTTP client stored in ctx under oauth2.HTTPClient is used as
// the base transport.
func NewClient(ctx context.Context, token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else if base, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && base != nil {
		clone := *base
		hc = &clone
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = DefaultTimeout
	return &Client{apiURL: strings.TrimRight(apiURL, "/"), httpCli: hc}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

// Label is a pull request label.
type Label struct {
	Name string `json:"name"`
}

// User is the subset of a GitHub account used for attribution.
type User struct {
	Login string `json:"login"`
}

// PullRequest is the pull request metadata relnote reads.
type PullRequest struct {
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	HTMLURL  string  `json:"html_url"`
	Labels   []Label `json:"labels"`
	User     *User   `json:"user"`
	MergedAt string  `json:"merged_at"`
}

// LabelNames returns the label names in API order, skipping blanks.
func (pr PullRequest) LabelNames() []string {
	names := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		if n := strings.TrimSpace(l.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Author returns the login of the pull request author, if known.
func (pr PullRequest) Author() string {
	if pr.User == nil {
		return ""
	}
	return pr.User.Login
}

// Release is a published (or draft) GitHub release.
type Release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// PullRequest fetches pull request number n of repo ("owner/name").
func (c *Client) PullRequest(ctx context.Context, repo string, n int) (PullRequest, error) {
	var pr PullRequest
	body, err := c.get(ctx, fmt.Sprintf("/repos/%s/pulls/%d", repo, n))
	if err != nil {
		return pr, err
	}
	if err := json.Unmarshal(body, &pr); err != nil {
		return pr, fmt.Errorf("parsing pull request #%d: %w", n, err)
	}
	return pr, nil
}

// Releases lists every release of repo, following pagination until a short
// page or MaxReleasePages pages.
func (c *Client) Releases(ctx context.Context, repo string) ([]Release, error) {
	var releases []Release
	for page := 1; page <= MaxReleasePages; page++ {
		path := fmt.Sprintf("/repos/%s/releases?per_page=%d&page=%d", repo, releasesPerPage, page)
		body, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			var apiErr struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
				return nil, fmt.Errorf("GitHub API error for %s: %s", repo, apiErr.Message)
			}
			return nil, fmt.Errorf("unexpected GitHub releases response: %w", err)
		}
		for _, raw := range items {
			var r Release
			if json.Unmarshal(raw, &r) == nil {
				releases = append(releases, r)
			}
		}
		if len(items) < releasesPerPage {
			break
		}
	}
	return releases, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}
	return body, nil
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// WebURL returns the browser base URL matching the API URL:
// api.github.com maps to github.com and an Enterprise ".../api/v3" URL maps
// to its host.
func (c *Client) WebURL() string {
	return WebURLFor(c.apiURL)
}

// WebURLFor derives the browser base URL from an API base URL.
func WebURLFor(apiURL string) string {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil || u.Host == "" {
		return "https://github.com"
	}
	if u.Host == "api.github.com" {
		return "https://github.com"
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/v3")
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/")
}

var remotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://github\.com/([^/]+/[^/]+?)(?:\.git)?/?$`),
	regexp.MustCompile(`^git@github\.com:([^/]+/[^/]+?)(?:\.git)?$`),
	regexp.MustCompile(`^ssh://git@github\.com/([^/]+/[^/]+?)(?:\.git)?$`),
}

// ParseRemoteURL extracts "owner/name" from a github.com remote URL in
// HTTPS or SSH form.
func ParseRemoteURL(remote string) (string, bool) {
	remote = strings.TrimSpace(remote)
	for _, re := range remotePatterns {
		if m := re.FindStringSubmatch(remote); m != nil {
			return m[1], true
		}
	}
	return "", false
}
