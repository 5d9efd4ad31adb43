package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// HeaderRequestID is the request metadata key honoured as a caller-supplied ID.
const HeaderRequestID = "x-request-id"

type requestIDKey struct{}

// RequestID injects a request ID into the context. An ID already in the
// context or supplied through the X-Request-ID header is kept.
func RequestID() Middleware {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator is RequestID with a custom ID generator.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if RequestIDFromContext(ctx) != "" {
				return next(ctx, req)
			}
			id := protocol.GetRequestMeta(ctx, HeaderRequestID)
			if id == "" {
				id = generator()
			}
			return next(ContextWithRequestID(ctx, id), req)
		}
	}
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
