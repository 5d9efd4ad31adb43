package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ForexInput optionally narrows the forex rates to one currency.
type ForexInput struct {
	Currency string `json:"currency,omitempty" jsonschema:"description=Optional currency code to filter (e.g. USD or EUR). All rates are returned when omitted."`
}

// Rate is one entry of the forex feed, kept as published.
type Rate map[string]any

// Code returns the upper-cased currency code of the rate.
func (r Rate) Code() string {
	s, _ := r["currency"].(string)
	return strings.ToUpper(s)
}

// ForexResult is either a single rate (Currency set) or the full table
// (Rates set).
type ForexResult struct {
	Success  bool
	Currency string
	Unit     any
	Buy      any
	Sell     any
	Date     any
	Rates    []Rate
	Count    int
	Message  string
	Error    string
}

// Failed reports whether the lookup failed.
func (r ForexResult) Failed() bool { return !r.Success }

// MarshalJSON picks the wire shape from the fields that are set.
func (r ForexResult) MarshalJSON() ([]byte, error) {
	switch {
	case !r.Success:
		return json.Marshal(failure{Error: r.Error})
	case r.Rates != nil:
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Rates   []Rate `json:"rates"`
			Count   int    `json:"count"`
			Message string `json:"message"`
		}{true, r.Rates, r.Count, r.Message})
	default:
		return json.Marshal(struct {
			Success  bool   `json:"success"`
			Currency string `json:"currency"`
			Unit     any    `json:"unit"`
			Buy      any    `json:"buy"`
			Sell     any    `json:"sell"`
			Date     any    `json:"date"`
			Message  string `json:"message"`
		}{true, r.Currency, r.Unit, r.Buy, r.Sell, r.Date, r.Message})
	}
}

// Forex fetches the forex feed. A non-blank currency selects a single
// rate, matched case-insensitively.
func (c *Client) Forex(ctx context.Context, currency string) ForexResult {
	var rates []Rate
	if err := c.fetch(ctx, "forex", c.forexURL, &rates); err != nil {
		c.logger.WarnContext(ctx, "forex lookup failed", "error", err)
		return ForexResult{Error: describe("forex", err)}
	}
	if rates == nil {
		rates = []Rate{}
	}

	want := strings.ToUpper(strings.TrimSpace(currency))
	if want == "" {
		return ForexResult{
			Success: true,
			Rates:   rates,
			Count:   len(rates),
			Message: fmt.Sprintf("Retrieved %d forex rates", len(rates)),
		}
	}

	codes := make([]string, 0, len(rates))
	for _, rate := range rates {
		code := rate.Code()
		if code == want {
			return ForexResult{
				Success:  true,
				Currency: code,
				Unit:     rate["unit"],
				Buy:      rate["buy"],
				Sell:     rate["sell"],
				Date:     rate["date"],
				Message: fmt.Sprintf("%s - Buy: NPR %s, Sell: NPR %s per %s unit(s)",
					code, text(rate["buy"]), text(rate["sell"]), text(rate["unit"])),
			}
		}
		codes = append(codes, code)
	}
	return ForexResult{
		Error: fmt.Sprintf("Currency '%s' not found. Available currencies: %s", want, strings.Join(codes, ", ")),
	}
}

// ForexTool adapts Forex to the tool handler signature.
func (c *Client) ForexTool(ctx context.Context, in ForexInput) (ForexResult, error) {
	return c.Forex(ctx, in.Currency), nil
}
