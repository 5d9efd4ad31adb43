package middleware

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// Size presets.
const (
	KB = 1024
	MB = 1024 * KB
)

// SizeLimit rejects requests whose params exceed maxBytes. A non-positive
// maxBytes disables the check.
func SizeLimit(maxBytes int64, logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		if maxBytes <= 0 {
			return next
		}
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if size := int64(len(req.Params)); size > maxBytes {
				logger.Warn("request size limit exceeded",
					F("method", req.Method),
					F("size", size),
					F("max", maxBytes),
				)
				return nil, protocol.NewInvalidRequest(
					fmt.Sprintf("request size %d exceeds limit of %d bytes", size, maxBytes))
			}
			return next(ctx, req)
		}
	}
}
