package exchange

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const usdRates = `{
	"result": "success",
	"base_code": "USD",
	"time_last_update_utc": "Fri, 27 Mar 2020 00:00:00 +0000",
	"conversion_rates": {"USD": 1, "NPR": 143.6115, "EUR": 0.9013}
}`

func newProvider(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var calls atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		path.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &path
}

func TestLatest_Success(t *testing.T) {
	srv, calls, path := newProvider(t, http.StatusOK, usdRates)
	client := NewClient(srv.URL+"/v6/", time.Second)

	rates, err := client.Latest(context.Background(), "abc123", "USD")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "/v6/abc123/latest/USD", path.Load())
	assert.Equal(t, "USD", rates.Base)
	assert.Equal(t, "Fri, 27 Mar 2020 00:00:00 +0000", rates.LastUpdate)

	rate, ok := rates.Rate("NPR")
	assert.True(t, ok)
	assert.Equal(t, 143.6115, rate)

	_, ok = rates.Rate("ZZZ")
	assert.False(t, ok)
}

func TestLatest_ProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
	}{
		{name: "invalid key", status: http.StatusForbidden, body: `{"result":"error","error-type":"invalid-key"}`, wantType: ErrorInvalidKey},
		{name: "unsupported code", status: http.StatusNotFound, body: `{"result":"error","error-type":"unsupported-code"}`, wantType: ErrorUnsupportedCode},
		{name: "quota reached", status: http.StatusTooManyRequests, body: `{"result":"error","error-type":"quota-reached"}`, wantType: ErrorQuotaReached},
		{name: "error without type", status: http.StatusOK, body: `{"result":"error"}`, wantType: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newProvider(t, tt.status, tt.body)
			_, err := NewClient(srv.URL, time.Second).Latest(context.Background(), "abc123", "USD")

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantType, perr.Type)
		})
	}
}

func TestLatest_UnexpectedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>maintenance</html>`},
		{name: "unknown result", body: `{"result":"pending"}`},
		{name: "success without rates", body: `{"result":"success","base_code":"USD"}`},
		{name: "rates of wrong type", body: `{"result":"success","conversion_rates":{"NPR":"high"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newProvider(t, http.StatusOK, tt.body)
			_, err := NewClient(srv.URL, time.Second).Latest(context.Background(), "abc123", "USD")
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
		})
	}
}

func TestLatest_StatusWithoutEnvelope(t *testing.T) {
	srv, _, _ := newProvider(t, http.StatusBadGateway, `bad gateway`)
	_, err := NewClient(srv.URL, time.Second).Latest(context.Background(), "abc123", "USD")

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
}

func TestLatest_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	_, err := NewClient(srv.URL, 50*time.Millisecond).Latest(context.Background(), "secret-key", "USD")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Timeout())
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestLatest_TimeoutCoversBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":`))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	_, err := NewClient(srv.URL, 50*time.Millisecond, WithLogger(logger)).Latest(context.Background(), "secret-key", "USD")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Timeout())
	assert.Contains(t, logs.String(), "operation timeout")
	assert.NotContains(t, logs.String(), "secret-key")
}

func TestLatest_ContextCancelled(t *testing.T) {
	srv, calls, _ := newProvider(t, http.StatusOK, usdRates)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL, time.Second).Latest(ctx, "abc123", "USD")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, terr.Timeout())
	assert.Equal(t, int32(0), calls.Load())
}

func TestLatest_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Latest(context.Background(), "secret-key", "USD")

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestLatest_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv, _, _ := newProvider(t, http.StatusForbidden, `{"result":"error","error-type":"invalid-key"}`)
	_, err := NewClient(srv.URL, time.Second, WithTracerProvider(tp)).Latest(context.Background(), "abc123", "USD")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "exchange.latest", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("currency.base", "USD"))
	assert.Contains(t, spans[0].Attributes, attribute.String("exchange.error_type", "invalid-key"))
	for _, kv := range spans[0].Attributes {
		assert.NotEqual(t, "abc123", kv.Value.Emit())
	}
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: 3 * time.Second}
	c := NewClient("", time.Second, WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
