package protocol

import (
	"context"
	"strings"
)

type requestMetaKey struct{}

// RequestMeta carries transport-level metadata such as HTTP headers.
// Keys are stored lower-cased, so lookups are case-insensitive.
type RequestMeta map[string]string

// NewRequestMeta builds metadata from a header-like multimap, keeping the
// first value of every key.
func NewRequestMeta(headers map[string][]string) RequestMeta {
	meta := make(RequestMeta, len(headers))
	for k, v := range headers {
		if len(v) == 0 {
			continue
		}
		meta[strings.ToLower(k)] = v[0]
	}
	return meta
}

func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the request metadata, or nil.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return nil
}

// GetRequestMeta returns the metadata value for key, or "".
func GetRequestMeta(ctx context.Context, key string) string {
	meta := RequestMetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta[strings.ToLower(key)]
}

// SetRequestMeta returns a context whose metadata has key set to value.
// The metadata already in ctx is copied, never mutated.
func SetRequestMeta(ctx context.Context, key, value string) context.Context {
	old := RequestMetaFromContext(ctx)
	meta := make(RequestMeta, len(old)+1)
	for k, v := range old {
		meta[k] = v
	}
	meta[strings.ToLower(key)] = value
	return ContextWithRequestMeta(ctx, meta)
}
