// Package outbound provides the HTTP client compute functions use for
// external network calls (e.g. a price oracle). It is adapted from the
// teacher's reverse-proxy header-stripping discipline in proxy/rpc.go: the
// gateway never forwards caller-identifying or payment headers to anything
// it talks to downstream, whether that downstream is an upstream RPC node
// (the teacher's case) or, here, an external data source a compute function
// queries.
package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// timeout is the outbound HTTP deadline for compute functions (ยง5).
const timeout = 5 * time.Second

// Client wraps http.Client with the gateway's outbound discipline: a fixed
// timeout and no leakage of the caller's own headers into upstream
// requests, since outbound requests are always built fresh rather than
// forwarded.
type Client struct {
	http *http.Client
}

// New creates a Client with the standard 5s compute-function timeout.
func New() *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// GetJSON issues a GET to url and decodes a JSON response into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building outbound request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("outbound request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading outbound response: %w", err)
	}

	slog.Debug("outbound compute fetch", "url", url, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("outbound request returned %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding outbound response: %w", err)
	}
	return nil
}
