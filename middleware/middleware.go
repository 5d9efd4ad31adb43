package middleware

import "time"

// StackConfig selects the optional parts of DefaultStack.
type StackConfig struct {
	Logger         Logger
	RequestTimeout time.Duration
	MaxRequestSize int64
	// AuthToken enables shared token authentication when non-empty.
	AuthToken string
	// Telemetry options; nil disables OTel instrumentation.
	Telemetry []OTelOption
}

// DefaultStack returns the production middleware stack, outermost first:
// recover, request ID, otel, logging, auth, size limit, timeout.
func DefaultStack(cfg StackConfig) []Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	stack := []Middleware{
		Recover(logger),
		RequestID(),
	}
	if cfg.Telemetry != nil {
		stack = append(stack, OTel(cfg.Telemetry...))
	}
	stack = append(stack, Logging(logger))
	if cfg.AuthToken != "" {
		stack = append(stack, Auth(SharedTokenAuthenticator(cfg.AuthToken), WithAuthLogger(logger)))
	}
	return append(stack,
		SizeLimit(cfg.MaxRequestSize, logger),
		Timeout(cfg.RequestTimeout),
	)
}
