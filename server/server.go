// Package server holds the tool registry and the JSON-RPC dispatcher that
// serves initialize, tools/list, tools/call and ping.
//
// Tools are registered with a fluent builder; the input schema is derived
// from the handler's input struct:
//
//	srv := server.New(server.Info{Name: "currency-converter", Version: "1.0.0"})
//	srv.Tool("convert_currency").
//	    Description("Convert an amount between currencies").
//	    ValidateInput().
//	    Handler(func(ctx context.Context, in ConvertInput) (currency.Result, error) {
//	        ...
//	    })
package server

import (
	"sort"
	"sync"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// Info identifies the server to clients.
type Info struct {
	Name    string
	Version string
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema any
}

// Server is the MCP tool server. It is safe for concurrent use.
type Server struct {
	mu    sync.RWMutex
	info  Info
	tools map[string]*Tool
}

// Option configures a Server.
type Option func(*Server)

// New creates a server with no tools registered.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:  info,
		tools: make(map[string]*Tool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Tool starts building a tool with the given name.
func (s *Server) Tool(name string) *ToolBuilder {
	return &ToolBuilder{
		tool:   &Tool{name: name},
		server: s,
	}
}

// Tools returns registered tools ordered by name.
func (s *Server) Tools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, ToolInfo{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// GetTool looks up a tool by name.
func (s *Server) GetTool(name string) (*Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

func (s *Server) registerTool(t *Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[t.name] = t
}

func (s *Server) capabilities() map[string]any {
	return map[string]any{
		"tools": map[string]any{},
	}
}

func (s *Server) initializeResult() protocol.InitializeResult {
	info := s.Info()
	return protocol.InitializeResult{
		ProtocolVersion: protocol.MCPVersion,
		ServerInfo: protocol.ServerInfo{
			Name:    info.Name,
			Version: info.Version,
		},
		Capabilities: s.capabilities(),
	}
}
