// Package market serves the bullion and forex price feeds exposed as the
// get_bullion_prices and get_forex_rates tools. Both feeds are plain JSON
// documents fetched from configured URLs.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/felixgeelhaar/currency-mcp/market"
	maxBodySize         = 1 << 20
)

var (
	errTimeout       = errors.New("Request timed out. Please try again.") //nolint:staticcheck
	errNotConfigured = errors.New("feed URL is not configured")
)

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error occurred: %d", e.code)
}

// Client fetches the market feeds.
type Client struct {
	bullionURL string
	forexURL   string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger

	limit    time.Duration
	deadline timeout.Timeout[struct{}]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for failed lookups.
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

// NewClient returns a client for the given feed URLs. Either may be empty,
// in which case the matching tool reports that it is not configured. Each
// fetch is bounded by limit; zero means 30 seconds.
func NewClient(bullionURL, forexURL string, limit time.Duration, opts ...Option) *Client {
	c := &Client{
		bullionURL: bullionURL,
		forexURL:   forexURL,
		httpClient: &http.Client{},
		tracer:     otel.GetTracerProvider().Tracer(instrumentationName),
		logger:     slog.Default(),
		limit:      limit,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.deadline = timeout.New[struct{}](timeout.Config{
		DefaultTimeout: limit,
		Logger:         c.logger,
	})
	return c
}

// fetch GETs url and decodes its JSON body into v, keeping numbers as
// json.Number so prices are echoed exactly as published.
func (c *Client) fetch(ctx context.Context, feed, url string, v any) error {
	ctx, span := c.tracer.Start(ctx, "market.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("market.feed", feed)),
	)
	defer span.End()

	_, err := c.deadline.Execute(ctx, c.limit, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.get(ctx, url, v)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		err = errTimeout
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) get(ctx context.Context, url string, v any) error {
	if url == "" {
		return errNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errTimeout
		}
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if isTimeout(err) {
			return errTimeout
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describe renders err the way the tools report failures.
func describe(feed string, err error) string {
	var serr *statusError
	switch {
	case errors.Is(err, errTimeout):
		return errTimeout.Error()
	case errors.As(err, &serr):
		return serr.Error()
	case errors.Is(err, errNotConfigured):
		return strings.ToUpper(feed) + "_URL is not configured"
	default:
		return "Unexpected error: " + err.Error()
	}
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
