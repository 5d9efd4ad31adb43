package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/currency-mcp/protocol"
	"github.com/felixgeelhaar/currency-mcp/server"
)

func TestStdio(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"broken"}`,
	}, "\n")

	var out bytes.Buffer
	s := NewStdio(WithStdin(strings.NewReader(input)), WithStdout(&out))
	if s.Addr() != "stdio" {
		t.Errorf("Addr() = %q", s.Addr())
	}
	if err := s.Serve(context.Background(), echoMeta); err != nil {
		t.Fatalf("Serve() = %v", err)
	}

	var responses []protocol.Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp protocol.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("invalid output line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}

	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d: %s", len(responses), out.String())
	}
	if string(responses[0].ID) != "1" || responses[0].Error != nil {
		t.Errorf("first response = %+v", responses[0])
	}
	if responses[1].Error == nil || responses[1].Error.Code != protocol.CodeParseError {
		t.Errorf("second response = %+v", responses[1])
	}
	if responses[2].Error == nil || responses[2].Error.Code != protocol.CodeInternalError {
		t.Errorf("third response = %+v", responses[2])
	}
}

func TestStdio_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking, w := io.Pipe()
	defer w.Close()

	s := NewStdio(WithStdin(blocking), WithStdout(&bytes.Buffer{}))
	if err := s.Serve(ctx, echoMeta); err != context.Canceled {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}


// waitServer has a tool that blocks until its call is cancelled and reports
// each start on started.
func waitServer(started chan<- struct{}) Handler {
	srv := server.New(server.Info{Name: "test", Version: "1.0.0"})
	srv.Tool("wait").Handler(func(ctx context.Context, in struct{}) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "cancelled", nil
	})
	return HandlerFunc(srv.Handle)
}

func TestStdio_CancelledToolCall(t *testing.T) {
	started := make(chan struct{}, 1)
	serverR, clientW := io.Pipe()
	clientR, serverW := io.Pipe()
	defer clientW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewStdio(WithStdin(serverR), WithStdout(serverW))
	go func() { _ = s.Serve(ctx, waitServer(started)) }()

	send := func(line string) {
		t.Helper()
		if _, err := io.WriteString(clientW, line+"\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"wait"}}`)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("tool call never started")
	}
	send(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`)

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(clientR)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	select {
	case line := <-lines:
		var resp struct {
			ID     json.RawMessage         `json:"id"`
			Result protocol.CallToolResult `json:"result"`
		}
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("invalid output line %q: %v", line, err)
		}
		if string(resp.ID) != "1" || len(resp.Result.Content) != 1 || resp.Result.Content[0].Text != "cancelled" {
			t.Errorf("response = %s", line)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled tool call did not return")
	}
}
