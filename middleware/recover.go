package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// PanicHandler turns a recovered panic into a response.
type PanicHandler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)

// Recover converts panics into internal errors, logging them first.
func Recover(logger Logger) Middleware {
	return RecoverWithHandler(func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error) {
		logger.Error("panic recovered",
			F("method", req.Method),
			F("panic", fmt.Sprint(panicVal)),
			F("request_id", RequestIDFromContext(ctx)),
		)
		return nil, protocol.NewInternalError(fmt.Sprintf("panic: %v", panicVal))
	})
}

// RecoverWithHandler calls handler for every recovered panic.
func RecoverWithHandler(handler PanicHandler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = handler(ctx, req, r)
				}
			}()
			return next(ctx, req)
		}
	}
}
