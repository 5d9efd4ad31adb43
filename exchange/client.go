// Package exchange is a client for the ExchangeRate-API v6 "latest"
// endpoint. Responses are decoded into either *Rates or *ProviderError;
// every other shape is rejected with ErrUnexpectedResponse.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the public v6 API root.
const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

const (
	instrumentationName = "github.com/felixgeelhaar/currency-mcp/exchange"
	maxBodySize         = 1 << 20
)

// Provider error types documented by ExchangeRate-API.
const (
	ErrorUnsupportedCode  = "unsupported-code"
	ErrorMalformedRequest = "malformed-request"
	ErrorInvalidKey       = "invalid-key"
	ErrorInactiveAccount  = "inactive-account"
	ErrorQuotaReached     = "quota-reached"
)

// ErrUnexpectedResponse is returned when the body is neither a success nor
// an error envelope.
var ErrUnexpectedResponse = errors.New("unexpected response from exchange rate provider")

// Rates is the success variant of a latest-rates response.
type Rates struct {
	Base       string
	Rates      map[string]float64
	LastUpdate string
}

// Rate returns the rate for code and whether it is listed.
func (r *Rates) Rate(code string) (float64, bool) {
	rate, ok := r.Rates[code]
	return rate, ok
}

// ProviderError is the error variant of a response.
type ProviderError struct {
	Type string
}

func (e *ProviderError) Error() string {
	return "exchange rate provider error: " + e.Type
}

// TransportError wraps a failure to obtain a response at all. It never
// includes the request URL, which embeds the API key.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "exchange rate request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request timed out.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// StatusError is returned for non-2xx responses without an error envelope.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange rate provider returned HTTP %d", e.StatusCode)
}

// Client fetches latest rates. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger

	limit    time.Duration
	deadline timeout.Timeout[*Rates]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger that reports timed out lookups.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracerProvider sets the tracer provider; the global one is the default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(instrumentationName)
	}
}

// NewClient returns a client for baseURL. Each lookup, including reading
// the body, is bounded by limit; zero means 30 seconds.
func NewClient(baseURL string, limit time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tracer:     otel.GetTracerProvider().Tracer(instrumentationName),
		limit:      limit,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.deadline = timeout.New[*Rates](timeout.Config{
		DefaultTimeout: limit,
		Logger:         c.logger,
	})
	return c
}

// Latest fetches all rates quoted against base.
func (c *Client) Latest(ctx context.Context, apiKey, base string) (*Rates, error) {
	ctx, span := c.tracer.Start(ctx, "exchange.latest",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("currency.base", base)),
	)
	defer span.End()

	rates, err := c.deadline.Execute(ctx, c.limit, func(ctx context.Context) (*Rates, error) {
		return c.latest(ctx, apiKey, base)
	})
	if err != nil {
		err = asTransportError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var perr *ProviderError
		if errors.As(err, &perr) {
			span.SetAttributes(attribute.String("exchange.error_type", perr.Type))
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("exchange.rate_count", len(rates.Rates)))
	span.SetStatus(codes.Ok, "")
	return rates, nil
}

// asTransportError wraps the bare context error returned when the lookup
// deadline or the caller's context ends the request.
func asTransportError(err error) error {
	var terr *TransportError
	if errors.As(err, &terr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransportError{Err: err}
	}
	return err
}

func (c *Client) latest(ctx context.Context, apiKey, base string) (*Rates, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(apiKey) + "/latest/" + url.PathEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: errors.New("invalid request URL")}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	rates, err := decode(body)
	if errors.Is(err, ErrUnexpectedResponse) && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return rates, err
}

type envelope struct {
	Result            string             `json:"result"`
	BaseCode          string             `json:"base_code"`
	ConversionRates   map[string]float64 `json:"conversion_rates"`
	TimeLastUpdateUTC string             `json:"time_last_update_utc"`
	ErrorType         string             `json:"error-type"`
}

// decode maps a response body onto exactly one of *Rates or *ProviderError.
func decode(body []byte) (*Rates, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	switch env.Result {
	case "success":
		if env.ConversionRates == nil {
			return nil, fmt.Errorf("%w: missing conversion_rates", ErrUnexpectedResponse)
		}
		return &Rates{
			Base:       env.BaseCode,
			Rates:      env.ConversionRates,
			LastUpdate: env.TimeLastUpdateUTC,
		}, nil
	case "error":
		if env.ErrorType == "" {
			env.ErrorType = "unknown"
		}
		return nil, &ProviderError{Type: env.ErrorType}
	default:
		return nil, fmt.Errorf("%w: result %q", ErrUnexpectedResponse, env.Result)
	}
}
