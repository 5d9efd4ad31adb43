// Package testutil provides helpers for testing the currency MCP server:
// an in-memory client that drives a transport.Handler and a fake
// ExchangeRate-API provider.
//
//	provider := testutil.NewFakeExchange(t)
//	provider.SetRates("USD", map[string]float64{"EUR": 0.9})
//
//	tc := testutil.NewTestClient(t, handler, testutil.WithHeader("apikey", "k"))
//	text, isError := tc.CallTool("convert_currency", map[string]any{
//	    "amount": 1, "from_currency": "USD", "to_currency": "EUR",
//	})
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/felixgeelhaar/currency-mcp/protocol"
	"github.com/felixgeelhaar/currency-mcp/transport"
)

// TestClient sends requests straight to a handler, with no network in between.
type TestClient struct {
	t       testing.TB
	handler transport.Handler
	meta    protocol.RequestMeta

	mu    sync.Mutex
	reqID int64
}

// ClientOption configures a TestClient.
type ClientOption func(*TestClient)

// WithHeader attaches a request header, the same way the HTTP transport
// exposes headers to tools.
func WithHeader(key, value string) ClientOption {
	return func(tc *TestClient) {
		tc.meta[strings.ToLower(key)] = value
	}
}

// NewTestClient creates a client for handler.
func NewTestClient(t testing.TB, handler transport.Handler, opts ...ClientOption) *TestClient {
	t.Helper()
	tc := &TestClient{
		t:       t,
		handler: handler,
		meta:    protocol.RequestMeta{},
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

func (tc *TestClient) nextID() json.RawMessage {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.reqID++
	return json.RawMessage(fmt.Sprintf("%d", tc.reqID))
}

// Send sends method with params and returns the raw response. Handler
// errors are returned as is.
func (tc *TestClient) Send(method string, params any) (*protocol.Response, error) {
	tc.t.Helper()

	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      tc.nextID(),
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			tc.t.Fatalf("marshal params: %v", err)
		}
		req.Params = data
	}

	ctx := context.Background()
	if len(tc.meta) > 0 {
		ctx = protocol.ContextWithRequestMeta(ctx, tc.meta)
	}
	return tc.handler.HandleRequest(ctx, req)
}

// Call sends method and decodes the result into out, failing the test on
// any error.
func (tc *TestClient) Call(method string, params any, out any) {
	tc.t.Helper()

	resp, err := tc.Send(method, params)
	if err != nil {
		tc.t.Fatalf("%s: %v", method, err)
	}
	if resp == nil {
		tc.t.Fatalf("%s: no response", method)
	}
	if resp.Error != nil {
		tc.t.Fatalf("%s: %v", method, resp.Error)
	}
	if out == nil {
		return
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		tc.t.Fatalf("%s: re-encode result: %v", method, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		tc.t.Fatalf("%s: decode result: %v", method, err)
	}
}

// Initialize performs the handshake and returns the server's answer.
func (tc *TestClient) Initialize() protocol.InitializeResult {
	tc.t.Helper()
	var result protocol.InitializeResult
	tc.Call(protocol.MethodInitialize, map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"clientInfo":      map[string]any{"name": "testutil", "version": "1.0.0"},
	}, &result)
	return result
}

// ListTools returns the registered tools.
func (tc *TestClient) ListTools() []protocol.ToolDescriptor {
	tc.t.Helper()
	var result protocol.ListToolsResult
	tc.Call(protocol.MethodToolsList, nil, &result)
	return result.Tools
}

// CallTool calls name and returns the text of its result and whether it
// was flagged isError.
func (tc *TestClient) CallTool(name string, args any) (string, bool) {
	tc.t.Helper()
	var result protocol.CallToolResult
	tc.Call(protocol.MethodToolsCall, map[string]any{"name": name, "arguments": args}, &result)
	if len(result.Content) == 0 {
		tc.t.Fatalf("%s: empty content", name)
	}
	return result.Content[0].Text, result.IsError
}

// CallToolJSON calls name and decodes its text result into out. It
// returns the isError flag.
func (tc *TestClient) CallToolJSON(name string, args any, out any) bool {
	tc.t.Helper()
	text, isError := tc.CallTool(name, args)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		tc.t.Fatalf("%s: decode %q: %v", name, text, err)
	}
	return isError
}

// Ping fails the test unless the server answers.
func (tc *TestClient) Ping() {
	tc.t.Helper()
	tc.Call(protocol.MethodPing, nil, nil)
}

// AssertToolExists fails the test if name is not listed.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()
	for _, tool := range tc.ListTools() {
		if tool.Name == name {
			return
		}
	}
	tc.t.Errorf("tool %q not found", name)
}

// AssertErrorCode fails the test unless method is answered with an error
// carrying code, whether as a response or a returned error.
func (tc *TestClient) AssertErrorCode(method string, params any, code int) {
	tc.t.Helper()
	resp, err := tc.Send(method, params)
	var got *protocol.Error
	switch {
	case err != nil:
		if !errors.As(err, &got) {
			tc.t.Fatalf("%s: non-protocol error %v", method, err)
		}
	case resp != nil && resp.Error != nil:
		got = resp.Error
	default:
		tc.t.Fatalf("%s: expected error code %d, got success", method, code)
	}
	if got.Code != code {
		tc.t.Errorf("%s: error code = %d, want %d (%s)", method, got.Code, code, got.Message)
	}
}
