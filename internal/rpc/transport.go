package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport delivers one request body and returns the raw response body.
type Transport interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, body []byte) ([]byte, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, body []byte) ([]byte, error) {
	return f(ctx, body)
}

const maxResponseSize = 32 << 20

// HTTPTransport posts request bodies to a JSON-RPC endpoint.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	headers  http.Header
}

// NewHTTPTransport creates a transport with a 30 second client timeout.
func NewHTTPTransport(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		headers:  make(http.Header),
	}
}

// WithHTTPClient replaces the HTTP client.
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	if c != nil {
		t.client = c
	}
	return t
}

// WithHeader adds a header to every request, e.g. an API key.
func (t *HTTPTransport) WithHeader(key, value string) *HTTPTransport {
	t.headers.Add(key, value)
	return t
}

// Endpoint returns the URL requests are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send implements Transport. Non-2xx statuses are errors.
func (t *HTTPTransport) Send(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue request: %w", err)
	}
	defer CleanlyCloseBody(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("received status code %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	return raw, nil
}

// CleanlyCloseBody drains and closes an HTTP response body so the connection can be reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
