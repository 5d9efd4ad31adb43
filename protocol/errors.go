// Package protocol defines the JSON-RPC 2.0 envelope, MCP method names and
// error codes spoken by the currency server.
package protocol

import "fmt"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Server-defined error codes.
const (
	CodeNotFound     = -32001
	CodeUnauthorized = -32002
	CodeForbidden    = -32003
)

// Error is a JSON-RPC 2.0 error object. It doubles as a Go error so handlers
// can return it directly and transports can recover it with errors.As.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("mcp: %s (code: %d)", e.Message, e.Code)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithData returns a copy of the error carrying data.
func (e *Error) WithData(data any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Data:    data,
	}
}

func NewParseError(msg string) *Error {
	return &Error{Code: CodeParseError, Message: msg}
}

func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msg}
}

func NewMethodNotFound(msg string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: msg}
}

func NewInvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

func NewInternalError(msg string) *Error {
	return &Error{Code: CodeInternalError, Message: msg}
}

func NewNotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NewUnauthorized is returned when credentials for the MCP connection are missing.
func NewUnauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// NewForbidden is returned when credentials are present but rejected.
func NewForbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}
