package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// ErrClosed is returned by Send after Close or once the server's output ends.
var ErrClosed = errors.New("transport closed")

// StreamTransport exchanges newline-delimited JSON-RPC over a pair of
// streams, matching responses to requests by ID.
type StreamTransport struct {
	w       io.WriteCloser
	closeFn func() error

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *protocol.Response
	closed  bool
	done    chan struct{}
}

// NewStreamTransport reads responses from r and writes requests to w.
func NewStreamTransport(r io.Reader, w io.WriteCloser) *StreamTransport {
	t := &StreamTransport{
		w:       w,
		pending: make(map[string]chan *protocol.Response),
		done:    make(chan struct{}),
	}
	go t.readLoop(r)
	return t
}

// NewStdioTransport starts command and talks to it over its stdin and stdout.
func NewStdioTransport(command string, args ...string) (*StreamTransport, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	t := NewStreamTransport(stdout, stdin)
	t.closeFn = func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
		return nil
	}
	return t, nil
}

// Send writes req and waits for the response with the same ID.
func (t *StreamTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	key := string(req.ID)
	ch := make(chan *protocol.Response, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.pending[key] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	t.writeMu.Lock()
	_, err = t.w.Write(append(data, '\n'))
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrClosed
	case resp := <-ch:
		return resp, nil
	}
}

// Close closes the write side and, for subprocesses, stops the process.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.w.Close()
	if t.closeFn != nil {
		if cerr := t.closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (t *StreamTransport) readLoop(r io.Reader) {
	defer close(t.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var resp protocol.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[string(resp.ID)]
		t.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}
