package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// HTTPTransport posts each request to an MCP endpoint such as
// http://localhost:8000/mcp.
type HTTPTransport struct {
	url        string
	httpClient *http.Client
	header     http.Header
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.httpClient = hc
	}
}

// WithHeader sends key: value with every request.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTPTransport) {
		t.header.Set(key, value)
	}
}

// WithAPIKey sends the upstream exchange rate API key.
func WithAPIKey(key string) HTTPOption {
	return WithHeader("apikey", key)
}

// WithMCPAuth sends the connection authentication token.
func WithMCPAuth(token string) HTTPOption {
	return WithHeader("mcp-authentication", token)
}

// NewHTTPTransport returns a transport for the endpoint at url.
func NewHTTPTransport(url string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		url:        strings.TrimRight(url, "/"),
		httpClient: http.DefaultClient,
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts req and decodes the JSON-RPC response. Authentication
// failures answered with 401 or 403 still decode to an error response.
func (t *HTTPTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range t.header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", t.url, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unexpected HTTP %d response: %s", httpResp.StatusCode, bytes.TrimSpace(data))
	}
	return &resp, nil
}

// Close is a no-op; connections are pooled by the HTTP client.
func (t *HTTPTransport) Close() error {
	return nil
}
