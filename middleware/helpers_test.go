package middleware

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

type mockLogger struct {
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []Field
}

func (l *mockLogger) Info(msg string, fields ...Field) {
	l.entries = append(l.entries, logEntry{level: "info", message: msg, fields: fields})
}

func (l *mockLogger) Error(msg string, fields ...Field) {
	l.entries = append(l.entries, logEntry{level: "error", message: msg, fields: fields})
}

func (l *mockLogger) Debug(msg string, fields ...Field) {
	l.entries = append(l.entries, logEntry{level: "debug", message: msg, fields: fields})
}

func (l *mockLogger) Warn(msg string, fields ...Field) {
	l.entries = append(l.entries, logEntry{level: "warn", message: msg, fields: fields})
}

func (e logEntry) field(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func okHandler(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return protocol.NewResponse(req.ID, "ok"), nil
}

func convertCall() *protocol.Request {
	return &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage("1"),
		Method:  protocol.MethodToolsCall,
		Params:  json.RawMessage(`{"name":"convert_currency","arguments":{"amount":1,"from_currency":"USD","to_currency":"NPR"}}`),
	}
}
