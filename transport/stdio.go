package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/felixgeelhaar/currency-mcp/protocol"
	"github.com/felixgeelhaar/currency-mcp/server"
)

// maxLineSize bounds a single newline-delimited message.
const maxLineSize = 4 * 1024 * 1024

// Stdio serves newline-delimited JSON-RPC over stdin and stdout.
// There are no headers, so the upstream API key comes from the
// process configuration.
type Stdio struct {
	in  io.Reader
	out io.Writer

	mu sync.Mutex
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdin sets a custom stdin reader.
func WithStdin(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = w
	}
}

// NewStdio creates a new stdio transport.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the transport address.
func (s *Stdio) Addr() string {
	return "stdio"
}

// Serve handles one request per input line until EOF or ctx is cancelled.
// The stream is a single connection with its own cancellation scope.
func (s *Stdio) Serve(ctx context.Context, handler Handler) error {
	ctx = server.ContextWithCancellationManager(ctx, server.NewCancellationManager())

	var calls sync.WaitGroup
	defer calls.Wait()

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			s.handleLine(ctx, handler, line, &calls)
		}
	}
}

// handleLine answers a line in order, except tool calls, which run
// alongside later lines so a notifications/cancelled can reach them.
func (s *Stdio) handleLine(ctx context.Context, handler Handler, line []byte, calls *sync.WaitGroup) {
	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.write(protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error())))
		return
	}
	if req.Method != protocol.MethodToolsCall {
		if resp := dispatch(ctx, handler, &req); resp != nil {
			s.write(resp)
		}
		return
	}
	calls.Add(1)
	go func() {
		defer calls.Done()
		if resp := dispatch(ctx, handler, &req); resp != nil {
			s.write(resp)
		}
	}()
}

func (s *Stdio) write(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(append(data, '\n'))
}
