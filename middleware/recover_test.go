package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

func TestRecover(t *testing.T) {
	t.Run("converts panic to internal error", func(t *testing.T) {
		logger := &mockLogger{}
		handler := Recover(logger)(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			panic("rates table corrupted")
		})

		resp, err := handler(context.Background(), &protocol.Request{Method: protocol.MethodToolsCall})
		if resp != nil {
			t.Errorf("expected nil response, got %+v", resp)
		}
		var mcpErr *protocol.Error
		if !errors.As(err, &mcpErr) || mcpErr.Code != protocol.CodeInternalError {
			t.Fatalf("err = %v, want internal error", err)
		}
		if len(logger.entries) != 1 || logger.entries[0].message != "panic recovered" {
			t.Errorf("entries = %+v", logger.entries)
		}
	})

	t.Run("passes through normal results", func(t *testing.T) {
		logger := &mockLogger{}
		resp, err := Recover(logger)(okHandler)(context.Background(), &protocol.Request{Method: protocol.MethodPing})
		if err != nil || resp == nil {
			t.Fatalf("resp=%v err=%v", resp, err)
		}
		if len(logger.entries) != 0 {
			t.Errorf("unexpected log entries: %+v", logger.entries)
		}
	})
}

func TestRecoverWithHandler(t *testing.T) {
	var got any
	handler := RecoverWithHandler(func(ctx context.Context, req *protocol.Request, v any) (*protocol.Response, error) {
		got = v
		return protocol.NewResponse(req.ID, "recovered"), nil
	})(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		panic(42)
	})

	resp, err := handler(context.Background(), &protocol.Request{Method: protocol.MethodPing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || resp.Result != "recovered" {
		t.Errorf("got=%v resp=%+v", got, resp)
	}
}
