package middleware

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/felixgeelhaar/currency-mcp/protocol"
)

// HeaderMCPAuth is the request metadata key carrying the connection token.
const HeaderMCPAuth = "mcp-authentication"

// Identity is an authenticated caller.
type Identity struct {
	ID       string
	Metadata map[string]any
}

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// ContextWithIdentity attaches identity to ctx.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// Authenticator validates the credentials of a request. A *protocol.Error
// return is surfaced to the client unchanged.
type Authenticator func(ctx context.Context, req *protocol.Request) (*Identity, error)

// AuthOption configures Auth.
type AuthOption func(*authConfig)

type authConfig struct {
	logger      Logger
	skipMethods map[string]bool
}

// WithAuthLogger logs rejected requests to l.
func WithAuthLogger(l Logger) AuthOption {
	return func(c *authConfig) {
		c.logger = l
	}
}

// WithAuthSkipMethods lets the named methods through without credentials.
func WithAuthSkipMethods(methods ...string) AuthOption {
	return func(c *authConfig) {
		for _, m := range methods {
			c.skipMethods[m] = true
		}
	}
}

// Auth rejects requests the authenticator does not accept. Every method,
// including initialize, is authenticated unless skipped explicitly.
func Auth(authenticator Authenticator, opts ...AuthOption) Middleware {
	cfg := &authConfig{
		logger:      NopLogger{},
		skipMethods: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.skipMethods[req.Method] {
				return next(ctx, req)
			}

			identity, err := authenticator(ctx, req)
			if err == nil && identity == nil {
				err = protocol.NewUnauthorized("authentication required")
			}
			if err != nil {
				cfg.logger.Warn("authentication failed",
					F("method", req.Method),
					F("error", err.Error()),
				)
				var mcpErr *protocol.Error
				if errors.As(err, &mcpErr) {
					return nil, mcpErr
				}
				return nil, protocol.NewUnauthorized("authentication required")
			}

			return next(ContextWithIdentity(ctx, identity), req)
		}
	}
}

// SharedTokenAuthenticator accepts requests whose mcp-authentication
// header equals token. A missing header is unauthorized, a wrong one is
// forbidden.
func SharedTokenAuthenticator(token string) Authenticator {
	expected := []byte(token)
	return func(ctx context.Context, req *protocol.Request) (*Identity, error) {
		got := protocol.GetRequestMeta(ctx, HeaderMCPAuth)
		if got == "" {
			return nil, protocol.NewUnauthorized("Unauthorized: MCP-Auth header required")
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			return nil, protocol.NewForbidden("Unauthorized: Invalid MCP authentication token")
		}
		return &Identity{ID: "mcp-client"}, nil
	}
}
