// Package upstream talks to the product API origin: JSON posts for lead
// submissions and transparent proxying for auth routes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
)

const (
	DefaultTimeout = 10 * time.Second

	// errorSnippetLimit bounds how much of a failed upstream body is echoed
	// back to the caller.
	errorSnippetLimit = 300
)

// Client is bound to one origin. The zero value is not usable; build it
// with New.
type Client struct {
	origin string
	token  string
	http   *http.Client
	log    logging.Logger
}

// New returns a client for origin. token, when set, is sent as a bearer
// credential on every request.
func New(origin, token string, timeout time.Duration, log logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		origin: strings.TrimSuffix(origin, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
		log:    log.With("module", "upstream"),
	}
}

func (c *Client) Origin() string {
	return c.origin
}

// URL joins the origin and path, adding the leading slash if missing.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.origin + path
}

// PostJSON sends body as JSON and returns the response status. A non-nil
// error means the request never produced a response.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// Response is a successful upstream reply to be passed through as is.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ProxyError is a failed proxied call rendered as the edge's JSON error.
type ProxyError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *ProxyError) Error() string {
	return e.Message
}

func (e *ProxyError) Unwrap() error {
	return common.ErrUpstreamFailure
}

// Proxy forwards method and body to path. The configured bearer token is
// sent unless the caller supplied its own Authorization header.
func (c *Client) Proxy(ctx context.Context, method, path string, body []byte, authorization string) (*Response, error) {
	var reader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "upstream request failed", "path", path, "error", err)
		return nil, &ProxyError{
			Status:  http.StatusBadGateway,
			Message: "Upstream API request failed.",
		}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil && resp.StatusCode < 300 {
		return nil, &ProxyError{
			Status:  http.StatusBadGateway,
			Message: "Upstream API request failed.",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.mapFailure(ctx, path, resp.StatusCode, string(payload))
	}

	header := resp.Header.Clone()
	header.Set("Cache-Control", "no-store")
	return &Response{Status: resp.StatusCode, Header: header, Body: payload}, nil
}

func (c *Client) mapFailure(ctx context.Context, path string, status int, text string) *ProxyError {
	if isOriginDNSError(status, text) {
		c.log.Error(ctx, "upstream origin unresolvable", "origin", c.origin, "path", path)
		return &ProxyError{
			Status:  http.StatusBadGateway,
			Message: "Upstream API DNS/origin error (Cloudflare 1016). Verify API_ORIGIN points to a resolvable backend host.",
			Errors: []string{
				"API_ORIGIN=" + c.origin,
				"upstream_path=" + path,
			},
		}
	}

	c.log.Warn(ctx, "upstream returned error", "path", path, "status", status)
	return &ProxyError{
		Status:  status,
		Message: fmt.Sprintf("Upstream API returned %d.", status),
		Errors:  []string{truncate(text, errorSnippetLimit)},
	}
}

// isOriginDNSError detects the CDN's "origin DNS error" page (code 1016).
func isOriginDNSError(status int, text string) bool {
	return status == 530 &&
		(strings.Contains(text, "1016") || strings.Contains(text, "Origin DNS error"))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
