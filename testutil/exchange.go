package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// DefaultLastUpdate is the time_last_update_utc reported by FakeExchange.
const DefaultLastUpdate = "Fri, 27 Mar 2020 00:00:00 +0000"

// FakeExchange serves the ExchangeRate-API v6 latest endpoint,
// GET /{key}/latest/{base}, from in-memory rate tables.
type FakeExchange struct {
	server *httptest.Server
	calls  atomic.Int64

	mu       sync.Mutex
	rates    map[string]map[string]float64
	keyErr   map[string]string
	delay    time.Duration
	status   int
	rawBody  string
	lastPath string
}

// NewFakeExchange starts a fake provider that is closed with the test.
func NewFakeExchange(t testing.TB) *FakeExchange {
	t.Helper()
	f := &FakeExchange{
		rates:  make(map[string]map[string]float64),
		keyErr: make(map[string]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to configure the exchange client with.
func (f *FakeExchange) URL() string {
	return f.server.URL
}

// Calls reports how many requests the provider has received.
func (f *FakeExchange) Calls() int {
	return int(f.calls.Load())
}

// LastPath is the path of the most recent request.
func (f *FakeExchange) LastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath
}

// SetRates sets the rate table quoted against base.
func (f *FakeExchange) SetRates(base string, rates map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[base] = rates
}

// FailKey makes requests with key answer with the given error-type, such
// as "invalid-key" or "inactive-account".
func (f *FakeExchange) FailKey(key, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyErr[key] = errorType
}

// SetDelay delays every response by d.
func (f *FakeExchange) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// SetRawResponse answers every request with status and body verbatim.
func (f *FakeExchange) SetRawResponse(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.rawBody = body
}

func (f *FakeExchange) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	f.mu.Lock()
	f.lastPath = r.URL.Path
	delay, status, raw := f.delay, f.status, f.rawBody
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "latest" {
		writeEnvelope(w, http.StatusNotFound, errorEnvelope("malformed-request"))
		return
	}
	key, base := parts[0], parts[2]

	f.mu.Lock()
	errType, failed := f.keyErr[key]
	rates, known := f.rates[base]
	f.mu.Unlock()

	switch {
	case failed:
		writeEnvelope(w, http.StatusForbidden, errorEnvelope(errType))
	case !known:
		writeEnvelope(w, http.StatusNotFound, errorEnvelope("unsupported-code"))
	default:
		writeEnvelope(w, http.StatusOK, map[string]any{
			"result":               "success",
			"base_code":            base,
			"time_last_update_utc": DefaultLastUpdate,
			"conversion_rates":     rates,
		})
	}
}

func errorEnvelope(errorType string) map[string]any {
	return map[string]any{"result": "error", "error-type": errorType}
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
