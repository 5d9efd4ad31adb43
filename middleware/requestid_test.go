package middleware

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

func captureRequestID(mw Middleware, ctx context.Context) string {
	var id string
	_, _ = mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		id = RequestIDFromContext(ctx)
		return nil, nil
	})(ctx, &protocol.Request{Method: protocol.MethodToolsCall})
	return id
}

func TestRequestID(t *testing.T) {
	t.Run("generates a uuid", func(t *testing.T) {
		id := captureRequestID(RequestID(), context.Background())
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("request id %q is not a uuid: %v", id, err)
		}
	})

	t.Run("keeps existing id", func(t *testing.T) {
		ctx := ContextWithRequestID(context.Background(), "existing")
		if id := captureRequestID(RequestID(), ctx); id != "existing" {
			t.Errorf("id = %q, want existing", id)
		}
	})

	t.Run("honours x-request-id header", func(t *testing.T) {
		ctx := protocol.SetRequestMeta(context.Background(), "X-Request-ID", "from-header")
		if id := captureRequestID(RequestID(), ctx); id != "from-header" {
			t.Errorf("id = %q, want from-header", id)
		}
	})
}

func TestRequestIDWithGenerator(t *testing.T) {
	n := 0
	gen := func() string {
		n++
		return "req-" + string(rune('0'+n))
	}
	mw := RequestIDWithGenerator(gen)
	if id := captureRequestID(mw, context.Background()); id != "req-1" {
		t.Errorf("first id = %q", id)
	}
	if id := captureRequestID(mw, context.Background()); id != "req-2" {
		t.Errorf("second id = %q", id)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}
