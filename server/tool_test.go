package server

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

type pairInput struct {
	From string `json:"from_currency" jsonschema:"required,minLength=1"`
	To   string `json:"to_currency" jsonschema:"required,minLength=1"`
}

func TestToolBuilder(t *testing.T) {
	t.Run("registers tool with description and schema", func(t *testing.T) {
		srv := New(Info{Name: "test", Version: "1.0.0"})

		b := srv.Tool("pair").
			Description("Echo a currency pair").
			Handler(func(in pairInput) (string, error) {
				return in.From + "/" + in.To, nil
			})
		if b.Err() != nil {
			t.Fatalf("unexpected error: %v", b.Err())
		}

		tools := srv.Tools()
		if len(tools) != 1 {
			t.Fatalf("expected 1 tool, got %d", len(tools))
		}
		if tools[0].Description != "Echo a currency pair" {
			t.Errorf("Description = %q", tools[0].Description)
		}
		if tools[0].InputSchema == nil {
			t.Error("expected input schema")
		}
	})

	t.Run("rejects invalid handlers", func(t *testing.T) {
		tests := []struct {
			name string
			fn   any
		}{
			{"not a function", "nope"},
			{"no return error", func(in pairInput) string { return "" }},
			{"second param without context", func(a, b pairInput) (string, error) { return "", nil }},
			{"pointer input", func(in *pairInput) (string, error) { return "", nil }},
			{"error not last", func(in pairInput) (error, string) { return nil, "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := New(Info{Name: "test"})
				b := srv.Tool("bad").Handler(tt.fn)
				if b.Err() == nil {
					t.Fatal("expected builder error")
				}
				if _, ok := srv.GetTool("bad"); ok {
					t.Error("invalid tool must not be registered")
				}
			})
		}
	})

	t.Run("lists tools sorted by name", func(t *testing.T) {
		srv := New(Info{Name: "test"})
		for _, name := range []string{"get_forex_rates", "convert_currency", "get_bullion_prices"} {
			srv.Tool(name).Handler(func(in struct{}) (string, error) { return "", nil })
		}
		tools := srv.Tools()
		want := []string{"convert_currency", "get_bullion_prices", "get_forex_rates"}
		for i, name := range want {
			if tools[i].Name != name {
				t.Errorf("Tools()[%d] = %q, want %q", i, tools[i].Name, name)
			}
		}
	})
}

func TestTool_Execute(t *testing.T) {
	srv := New(Info{Name: "test"})
	srv.Tool("pair").
		ValidateInput().
		Handler(func(ctx context.Context, in pairInput) (string, error) {
			if in.From == "ERR" {
				return "", errors.New("handler failed")
			}
			return in.From + "/" + in.To, nil
		})
	tool, _ := srv.GetTool("pair")

	t.Run("passes decoded input to handler", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), []byte(`{"from_currency":"USD","to_currency":"NPR"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "USD/NPR" {
			t.Errorf("result = %v, want USD/NPR", out)
		}
	})

	t.Run("validation failure is invalid params", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{"from_currency":"USD"}`))
		if !errors.Is(err, protocol.NewInvalidParams("")) {
			t.Fatalf("error = %v, want invalid params", err)
		}
	})

	t.Run("missing arguments are validated as empty object", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), nil)
		if !errors.Is(err, protocol.NewInvalidParams("")) {
			t.Fatalf("error = %v, want invalid params", err)
		}
	})

	t.Run("returns handler error", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{"from_currency":"ERR","to_currency":"X"}`))
		if err == nil || err.Error() != "handler failed" {
			t.Fatalf("error = %v, want handler failed", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), []byte(`{invalid`))
		if err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})
}
