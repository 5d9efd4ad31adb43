package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// Handle dispatches a JSON-RPC request. Its signature matches
// middleware.HandlerFunc so it can sit at the end of a middleware chain.
// Notifications yield a nil response.
func (s *Server) Handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return protocol.NewResponse(req.ID, s.initializeResult()), nil
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodCancelled:
		return nil, s.handleCancelled(ctx, req)
	case protocol.MethodPing:
		return protocol.NewResponse(req.ID, map[string]any{}), nil
	case protocol.MethodToolsList:
		return protocol.NewResponse(req.ID, s.listTools()), nil
	case protocol.MethodToolsCall:
		return s.handleToolsCall(ctx, req)
	default:
		if req.IsNotification() {
			return nil, nil
		}
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

func (s *Server) listTools() protocol.ListToolsResult {
	tools := s.Tools()
	result := protocol.ListToolsResult{Tools: make([]protocol.ToolDescriptor, 0, len(tools))}
	for _, t := range tools {
		result.Tools = append(result.Tools, protocol.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return result
}

func (s *Server) handleToolsCall(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var params protocol.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	tool, ok := s.GetTool(params.Name)
	if !ok {
		return nil, protocol.NewNotFound("tool not found: " + params.Name)
	}

	if m := CancellationManagerFromContext(ctx); m != nil && !req.IsNotification() {
		var done context.CancelFunc
		ctx, done = m.Track(ctx, string(req.ID))
		defer done()
	}

	out, err := tool.Execute(ctx, params.Arguments)
	if err != nil {
		var mcpErr *protocol.Error
		if errors.As(err, &mcpErr) {
			return nil, mcpErr
		}
		return nil, protocol.NewInternalError(err.Error())
	}

	result, err := toolResult(out)
	if err != nil {
		return nil, protocol.NewInternalError(err.Error())
	}
	return protocol.NewResponse(req.ID, result), nil
}

// toolResult renders a handler result as a single text block. Strings are
// passed through; anything else is encoded as JSON.
func toolResult(out any) (protocol.CallToolResult, error) {
	var text string
	switch v := out.(type) {
	case string:
		text = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return protocol.CallToolResult{}, fmt.Errorf("failed to encode tool result: %w", err)
		}
		text = string(data)
	}

	result := protocol.CallToolResult{
		Content: []protocol.Content{{Type: protocol.ContentTypeText, Text: text}},
	}
	if f, ok := out.(Failure); ok && f.Failed() {
		result.IsError = true
	}
	return result, nil
}

func (s *Server) handleCancelled(ctx context.Context, req *protocol.Request) error {
	var n CancelledNotification
	if err := json.Unmarshal(req.Params, &n); err != nil {
		return protocol.NewInvalidParams(err.Error())
	}
	if m := CancellationManagerFromContext(ctx); m != nil {
		m.Cancel(string(n.RequestID))
	}
	return nil
}
