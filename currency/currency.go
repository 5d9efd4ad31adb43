// Package currency converts amounts between currencies using the latest
// rates of an exchange rate provider.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/currency-mcp/exchange"
)

// Request is a single conversion request.
type Request struct {
	Amount       float64 `json:"amount" jsonschema:"required,description=The amount to convert (e.g. 100.50)"`
	FromCurrency string  `json:"from_currency" jsonschema:"required,minLength=1,description=Source currency code (e.g. USD or EUR)"`
	ToCurrency   string  `json:"to_currency" jsonschema:"required,minLength=1,description=Target currency code (e.g. NPR or GBP)"`
}

// Normalize trims and upper-cases the currency codes and checks that the
// request can be sent upstream.
func (r Request) Normalize() (Request, error) {
	r.FromCurrency = strings.ToUpper(strings.TrimSpace(r.FromCurrency))
	r.ToCurrency = strings.ToUpper(strings.TrimSpace(r.ToCurrency))

	switch {
	case r.FromCurrency == "":
		return r, newError(KindInvalidRequest, "from_currency is required", nil)
	case r.ToCurrency == "":
		return r, newError(KindInvalidRequest, "to_currency is required", nil)
	case math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0):
		return r, newError(KindInvalidRequest, "amount must be a finite number", nil)
	}
	return r, nil
}

// Result is the outcome of a conversion. Failed results marshal to
// {"success":false,"error":...} only.
type Result struct {
	Success         bool
	From            string
	To              string
	Amount          float64
	ConversionRate  float64
	ConvertedAmount float64
	LastUpdate      string
	Message         string
	Error           string
}

// Failed reports whether the conversion failed.
func (r Result) Failed() bool { return !r.Success }

// MarshalJSON emits every field on success and only success and error on
// failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, r.Error})
	}
	return json.Marshal(struct {
		Success         bool    `json:"success"`
		From            string  `json:"from"`
		To              string  `json:"to"`
		Amount          float64 `json:"amount"`
		ConversionRate  float64 `json:"conversion_rate"`
		ConvertedAmount float64 `json:"converted_amount"`
		LastUpdate      string  `json:"last_update"`
		Message         string  `json:"message"`
	}{true, r.From, r.To, r.Amount, r.ConversionRate, r.ConvertedAmount, r.LastUpdate, r.Message})
}

// UnmarshalJSON reads either shape written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Success         bool    `json:"success"`
		From            string  `json:"from"`
		To              string  `json:"to"`
		Amount          float64 `json:"amount"`
		ConversionRate  float64 `json:"conversion_rate"`
		ConvertedAmount float64 `json:"converted_amount"`
		LastUpdate      string  `json:"last_update"`
		Message         string  `json:"message"`
		Error           string  `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result(wire)
	return nil
}

// Failure builds the result for err.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// RateSource returns the latest rates quoted against base.
type RateSource interface {
	Latest(ctx context.Context, apiKey, base string) (*exchange.Rates, error)
}

// KeyResolver picks the upstream API key given the per-request header value.
type KeyResolver func(headerKey string) (string, error)

// Service performs conversions. It holds no mutable state.
type Service struct {
	rates      RateSource
	resolveKey KeyResolver
	logger     *slog.Logger
}

// NewService returns a Service fetching rates from rates with keys chosen
// by resolveKey.
func NewService(rates RateSource, resolveKey KeyResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rates: rates, resolveKey: resolveKey, logger: logger}
}

// Convert converts req. headerKey is the API key supplied with the request,
// if any. Every failure is reported in the returned Result.
func (s *Service) Convert(ctx context.Context, req Request, headerKey string) Result {
	res, err := s.convert(ctx, req, headerKey)
	if err != nil {
		cerr := classify(err, strings.ToUpper(strings.TrimSpace(req.FromCurrency)))
		s.logger.WarnContext(ctx, "conversion failed",
			"from", req.FromCurrency,
			"to", req.ToCurrency,
			"kind", string(cerr.Kind),
			"error", errorDetail(cerr),
		)
		return Failure(cerr)
	}
	s.logger.DebugContext(ctx, "conversion completed", "from", res.From, "to", res.To, "rate", res.ConversionRate)
	return res
}

func (s *Service) convert(ctx context.Context, req Request, headerKey string) (Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return Result{}, err
	}

	apiKey, err := s.resolveKey(headerKey)
	if err != nil {
		return Result{}, err
	}

	rates, err := s.rates.Latest(ctx, apiKey, req.FromCurrency)
	if err != nil {
		return Result{}, err
	}

	rate, ok := rates.Rate(req.ToCurrency)
	if !ok {
		return Result{}, newError(KindUnsupportedCurrency,
			fmt.Sprintf("Currency code not supported: %s has no rate against %s", req.ToCurrency, req.FromCurrency), nil)
	}

	converted := req.Amount * rate
	if math.IsInf(converted, 0) {
		return Result{}, newError(KindInvalidRequest,
			fmt.Sprintf("converted amount overflows: %s %s at rate %v", FormatAmount(req.Amount), req.FromCurrency, rate), nil)
	}
	rounded := decimal.NewFromFloat(req.Amount).Mul(decimal.NewFromFloat(rate)).StringFixed(2)

	return Result{
		Success:         true,
		From:            req.FromCurrency,
		To:              req.ToCurrency,
		Amount:          req.Amount,
		ConversionRate:  rate,
		ConvertedAmount: converted,
		LastUpdate:      rates.LastUpdate,
		Message: fmt.Sprintf("%s %s = %s %s",
			FormatAmount(req.Amount), req.FromCurrency, rounded, req.ToCurrency),
	}, nil
}

// FormatAmount renders v in its shortest form with at least one
// fractional digit: 1 -> "1.0", 100.5 -> "100.5". Values with a decimal
// exponent below -4 or from 16 up use exponent form: 1e21 -> "1e+21",
// 0.00001 -> "1e-05".
func FormatAmount(v float64) string {
	e := strconv.FormatFloat(v, 'e', -1, 64)
	if exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:]); err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func errorDetail(err *Error) string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Description
}
