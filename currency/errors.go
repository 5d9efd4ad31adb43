package currency

import (
	"errors"

	"github.com/felixgeelhaar/currency-mcp/config"
	"github.com/felixgeelhaar/currency-mcp/exchange"
)

// Kind classifies a conversion failure.
type Kind string

const (
	KindInvalidRequest      Kind = "InvalidRequest"
	KindMissingCredential   Kind = "MissingCredential"
	KindInvalidAPIKey       Kind = "InvalidApiKey"
	KindUnsupportedCurrency Kind = "UnsupportedCurrency"
	KindInactiveAccount     Kind = "InactiveAccount"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
)

// Error is a classified conversion failure. Its message always starts
// with the kind name.
type Error struct {
	Kind        Kind
	Description string
	Err         error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Description
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

func newError(kind Kind, description string, cause error) *Error {
	return &Error{Kind: kind, Description: description, Err: cause}
}

// classify maps key resolution and upstream errors onto conversion kinds.
func classify(err error, from string) *Error {
	var (
		cerr *Error
		perr *exchange.ProviderError
		terr *exchange.TransportError
		serr *exchange.StatusError
	)
	switch {
	case errors.As(err, &cerr):
		return cerr
	case errors.Is(err, config.ErrMissingCredential):
		return newError(KindMissingCredential,
			"API key not found. Send an apikey header or set EXCHANGE_API_KEY", err)
	case errors.As(err, &perr):
		return classifyProvider(perr, from)
	case errors.As(err, &terr):
		if terr.Timeout() {
			return newError(KindUpstreamUnavailable, "Request timed out. Please try again.", err)
		}
		return newError(KindUpstreamUnavailable, "exchange rate provider unreachable", err)
	case errors.As(err, &serr):
		return newError(KindUpstreamUnavailable, serr.Error(), err)
	case errors.Is(err, exchange.ErrUnexpectedResponse):
		return newError(KindUpstreamUnavailable, "exchange rate provider returned an unexpected response", err)
	default:
		return newError(KindUpstreamUnavailable, "exchange rate lookup failed", err)
	}
}

func classifyProvider(perr *exchange.ProviderError, from string) *Error {
	switch perr.Type {
	case exchange.ErrorInvalidKey:
		return newError(KindInvalidAPIKey, "API key is invalid.", perr)
	case exchange.ErrorUnsupportedCode:
		return newError(KindUnsupportedCurrency, "Currency code not supported: "+from, perr)
	case exchange.ErrorMalformedRequest:
		return newError(KindUnsupportedCurrency, "Request format is invalid. Check the currency code "+from, perr)
	case exchange.ErrorInactiveAccount:
		return newError(KindInactiveAccount, "Account is inactive. Please confirm your email.", perr)
	case exchange.ErrorQuotaReached:
		return newError(KindUpstreamUnavailable, "API quota has been reached.", perr)
	default:
		return newError(KindUpstreamUnavailable, "provider error: "+perr.Type, perr)
	}
}
