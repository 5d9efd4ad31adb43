package currencymcp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/felixgeelhaar/currency-mcp/middleware"
)

// ServiceName is the service.name resource attribute.
const ServiceName = "currency-mcp"

// Telemetry holds the trace and metric providers used by an App.
// MeterProvider is nil unless a metric reader was supplied.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// TelemetryOption configures NewTelemetry.
type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	traceWriter  io.Writer
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// WithTraceWriter exports finished spans as JSON to w.
func WithTraceWriter(w io.Writer) TelemetryOption {
	return func(o *telemetryOptions) {
		o.traceWriter = w
	}
}

// WithSpanExporter exports spans synchronously to exp.
func WithSpanExporter(exp sdktrace.SpanExporter) TelemetryOption {
	return func(o *telemetryOptions) {
		o.spanExporter = exp
	}
}

// WithMetricReader attaches reader to the meter provider.
func WithMetricReader(reader sdkmetric.Reader) TelemetryOption {
	return func(o *telemetryOptions) {
		o.metricReader = reader
	}
}

// NewTelemetry builds providers tagged with ServiceName. Spans without an
// exporter are recorded but not exported; metrics are only collected when
// WithMetricReader is given.
func NewTelemetry(opts ...TelemetryOption) (*Telemetry, error) {
	var o telemetryOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if o.traceWriter != nil {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(o.traceWriter))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	if o.spanExporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithSyncer(o.spanExporter))
	}

	tel := &Telemetry{TracerProvider: sdktrace.NewTracerProvider(traceOpts...)}
	if o.metricReader != nil {
		tel.MeterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(o.metricReader),
		)
	}
	return tel, nil
}

// MiddlewareOptions returns the options wiring t into middleware.OTel.
// Without a meter provider the middleware uses the global one.
func (t *Telemetry) MiddlewareOptions() []middleware.OTelOption {
	opts := []middleware.OTelOption{
		middleware.WithTracerProvider(t.TracerProvider),
		middleware.WithOTelServiceName(ServiceName),
	}
	if t.MeterProvider != nil {
		opts = append(opts, middleware.WithMeterProvider(t.MeterProvider))
	}
	return opts
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	err := t.TracerProvider.Shutdown(ctx)
	if t.MeterProvider != nil {
		err = errors.Join(err, t.MeterProvider.Shutdown(ctx))
	}
	return err
}
