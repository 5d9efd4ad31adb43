package server

import (
	"context"
	"encoding/json"
	"sync"
)

// CancelledNotification is the params of notifications/cancelled.
type CancelledNotification struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

// CancellationManager tracks in-flight tool calls by request ID so a
// notifications/cancelled message can abort the outbound work behind them.
// A manager belongs to one connection; request IDs are only unique there.
type CancellationManager struct {
	mu       sync.Mutex
	requests map[string]*tracked
}

type tracked struct {
	cancel context.CancelFunc
}

// NewCancellationManager creates an empty cancellation manager.
func NewCancellationManager() *CancellationManager {
	return &CancellationManager{
		requests: make(map[string]*tracked),
	}
}

// Track derives a cancellable context for requestID. The returned func must
// be called when the request completes. A later Track with the same ID
// replaces the earlier entry, and the earlier done func leaves it in place.
func (m *CancellationManager) Track(ctx context.Context, requestID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	entry := &tracked{cancel: cancel}

	m.mu.Lock()
	m.requests[requestID] = entry
	m.mu.Unlock()

	return ctx, func() {
		cancel()
		m.mu.Lock()
		if m.requests[requestID] == entry {
			delete(m.requests, requestID)
		}
		m.mu.Unlock()
	}
}

// Cancel aborts the request with the given ID. It reports whether the
// request was in flight.
func (m *CancellationManager) Cancel(requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.requests[requestID]
	if !ok {
		return false
	}
	entry.cancel()
	delete(m.requests, requestID)
	return true
}

// ActiveRequests returns the number of tracked requests.
func (m *CancellationManager) ActiveRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type cancellationManagerKey struct{}

// ContextWithCancellationManager attaches the connection's manager to ctx.
func ContextWithCancellationManager(ctx context.Context, m *CancellationManager) context.Context {
	return context.WithValue(ctx, cancellationManagerKey{}, m)
}

// CancellationManagerFromContext returns the manager attached to ctx, or nil.
// Stateless transports attach none, and their tool calls cannot be cancelled
// by notification.
func CancellationManagerFromContext(ctx context.Context) *CancellationManager {
	m, _ := ctx.Value(cancellationManagerKey{}).(*CancellationManager)
	return m
}
