package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	clierr "solflow/internal/errors"
)

// Client is a small JSON HTTP client that maps provider responses into
// the engine's error taxonomy. Retry and circuit-breaking for quote
// providers live in the resilience layer, not here.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "solflow/1.0",
	}
}

func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req.Clone(ctx))
	if err != nil {
		return nil, mapNetError(err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.Header, clierr.Wrap(clierr.CodeNetwork, "read provider response", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.Header, clierr.New(clierr.CodeRateLimited, "provider rate limited request")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.Header, clierr.New(clierr.CodeAuth, "provider authentication failed")
	case resp.StatusCode >= http.StatusInternalServerError:
		return resp.Header, clierr.New(clierr.CodeNetwork, fmt.Sprintf("provider unavailable (status %d)", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.Header, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("provider returned unexpected status %d", resp.StatusCode))
	}

	if out == nil {
		return resp.Header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return resp.Header, clierr.New(clierr.CodeNetwork, "provider returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return resp.Header, clierr.Wrap(clierr.CodeNetwork, "decode provider JSON", err)
	}
	return resp.Header, nil
}

// PostJSON marshals body, issues a POST, and decodes the JSON response.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers map[string]string, out any) (http.Header, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "encode request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeNetwork, "provider timeout", err)
	}
	return clierr.Wrap(clierr.CodeNetwork, "provider request failed", err)
}
