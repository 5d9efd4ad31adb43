// Package transport carries JSON-RPC messages between MCP clients and a
// Handler over HTTP, stdio or WebSocket.
package transport

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// Handler processes incoming MCP requests.
type Handler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// HandlerFunc is an adapter to allow ordinary functions as handlers.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// HandleRequest calls f(ctx, req).
func (f HandlerFunc) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, req)
}

// Transport serves a Handler until ctx is cancelled.
type Transport interface {
	Serve(ctx context.Context, handler Handler) error
	Addr() string
}

// dispatch runs handler and folds a returned error into an error response.
// Notifications yield nil.
func dispatch(ctx context.Context, handler Handler, req *protocol.Request) *protocol.Response {
	resp, err := handler.HandleRequest(ctx, req)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		var mcpErr *protocol.Error
		if !errors.As(err, &mcpErr) {
			mcpErr = protocol.NewInternalError(err.Error())
		}
		return protocol.NewErrorResponse(req.ID, mcpErr)
	}
	return resp
}
