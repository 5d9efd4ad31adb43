package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/currency-mcp/protocol"
	"github.com/felixgeelhaar/currency-mcp/server"
)

// WebSocket serves JSON-RPC messages over WebSocket connections. The
// headers of the upgrade request apply to every message on the connection.
type WebSocket struct {
	addr     string
	upgrader websocket.Upgrader

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithWebSocketReadTimeout sets the idle read timeout per connection.
func WithWebSocketReadTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.readTimeout = d
	}
}

// WithWebSocketWriteTimeout sets the write deadline per message.
func WithWebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		ws.writeTimeout = d
	}
}

// WithWebSocketCheckOrigin sets the origin check for upgrades.
func WithWebSocketCheckOrigin(fn func(r *http.Request) bool) WebSocketOption {
	return func(ws *WebSocket) {
		ws.upgrader.CheckOrigin = fn
	}
}

// NewWebSocket creates a new WebSocket transport.
func NewWebSocket(addr string, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		clients:      make(map[*wsClient]struct{}),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

// Addr returns the transport address.
func (ws *WebSocket) Addr() string {
	return ws.addr
}

// Serve accepts connections until ctx is cancelled.
func (ws *WebSocket) Serve(ctx context.Context, handler Handler) error {
	server := &http.Server{
		Addr:    ws.addr,
		Handler: ws.Handler(ctx, handler),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		ws.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler returns the upgrade handler. Connections end when ctx is done.
func (ws *WebSocket) Handler(ctx context.Context, handler Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.serveConn(ctx, w, r, handler)
	})
}

func (ws *WebSocket) serveConn(ctx context.Context, w http.ResponseWriter, r *http.Request, handler Handler) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &wsClient{conn: conn, writeTimeout: ws.writeTimeout}
	ws.mu.Lock()
	ws.clients[client] = struct{}{}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.clients, client)
		ws.mu.Unlock()
		_ = conn.Close()
	}()

	connCtx := protocol.ContextWithRequestMeta(ctx, protocol.NewRequestMeta(r.Header))
	connCtx = server.ContextWithCancellationManager(connCtx, server.NewCancellationManager())
	connCtx, closeConn := context.WithCancel(connCtx)
	var calls sync.WaitGroup
	defer calls.Wait()
	defer closeConn()

	for {
		if ctx.Err() != nil {
			return
		}
		if ws.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(ws.readTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(message, &req); err != nil {
			_ = client.writeJSON(protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error())))
			continue
		}
		if req.Method == protocol.MethodToolsCall {
			calls.Add(1)
			go func() {
				defer calls.Done()
				if resp := dispatch(connCtx, handler, &req); resp != nil {
					_ = client.writeJSON(resp)
				}
			}()
			continue
		}
		if resp := dispatch(connCtx, handler, &req); resp != nil {
			if err := client.writeJSON(resp); err != nil {
				return
			}
		}
	}
}

func (ws *WebSocket) closeAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for client := range ws.clients {
		client.close()
	}
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(v)
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
	_ = c.conn.Close()
}
