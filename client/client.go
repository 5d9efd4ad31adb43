// Package client is an MCP client for currency-mcp servers, used by the
// CLI to call a remote server and by the end-to-end tests.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/currency-mcp/currency"
	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// Transport sends one request and waits for its response.
type Transport interface {
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	Close() error
}

// ErrToolFailed is wrapped by CallText when the result is flagged isError.
var ErrToolFailed = errors.New("tool reported an error")

// Client talks JSON-RPC to an MCP server over a Transport.
type Client struct {
	transport Transport
	opts      clientOptions

	mu         sync.RWMutex
	serverInfo *protocol.InitializeResult
	requestID  atomic.Int64
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	clientName string
	clientVer  string
}

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithClientInfo sets the name and version sent on initialize.
func WithClientInfo(name, version string) Option {
	return func(o *clientOptions) {
		o.clientName = name
		o.clientVer = version
	}
}

// New creates a client over transport.
func New(transport Transport, opts ...Option) *Client {
	options := clientOptions{
		timeout:    30 * time.Second,
		clientName: "currency-mcp-client",
		clientVer:  "1.0.0",
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Client{transport: transport, opts: options}
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"clientInfo": map[string]any{
			"name":    c.opts.clientName,
			"version": c.opts.clientVer,
		},
		"capabilities": map[string]any{},
	}

	var info protocol.InitializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &info); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	c.mu.Lock()
	c.serverInfo = &info
	c.mu.Unlock()
	return &info, nil
}

// ServerInfo returns the result of the last successful Initialize.
func (c *Client) ServerInfo() *protocol.InitializeResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ListTools returns the tools the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	var result protocol.ListToolsResult
	if err := c.call(ctx, protocol.MethodToolsList, nil, &result); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool calls name with arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*protocol.CallToolResult, error) {
	params := map[string]any{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result protocol.CallToolResult
	if err := c.call(ctx, protocol.MethodToolsCall, params, &result); err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	return &result, nil
}

// CallText calls name and returns the text of its first content block.
// A result flagged isError still returns its text, along with ErrToolFailed.
func (c *Client) CallText(ctx context.Context, name string, arguments any) (string, error) {
	result, err := c.CallTool(ctx, name, arguments)
	if err != nil {
		return "", err
	}
	var text string
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}
	if result.IsError {
		return text, fmt.Errorf("call tool %q: %w", name, ErrToolFailed)
	}
	return text, nil
}

// Convert calls convert_currency and decodes its result. Failed
// conversions are returned as a Result with Success false, not an error.
func (c *Client) Convert(ctx context.Context, req currency.Request) (currency.Result, error) {
	text, err := c.CallText(ctx, "convert_currency", req)
	if err != nil && !errors.Is(err, ErrToolFailed) {
		return currency.Result{}, err
	}
	var res currency.Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return currency.Result{}, fmt.Errorf("decode conversion result: %w", err)
	}
	return res, nil
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.call(ctx, protocol.MethodPing, nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	var paramsRaw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		paramsRaw = data
	}

	id, _ := json.Marshal(c.requestID.Add(1))
	req := &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsRaw,
	}

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}

	// Result arrives as a generic JSON value; round-trip it into out.
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("re-encode result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
