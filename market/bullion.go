package market

import (
	"context"
	"encoding/json"
	"fmt"
)

// BullionInput takes no arguments.
type BullionInput struct{}

// BullionResult carries the latest fine gold and silver prices.
type BullionResult struct {
	Success  bool
	FineGold any
	Silver   any
	Unit     any
	Date     any
	Message  string
	Error    string
}

// Failed reports whether the lookup failed.
func (r BullionResult) Failed() bool { return !r.Success }

// MarshalJSON emits the feed fields on success and only success and error
// on failure.
func (r BullionResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failure{Error: r.Error})
	}
	return json.Marshal(struct {
		Success  bool   `json:"success"`
		FineGold any    `json:"fine_gold"`
		Silver   any    `json:"silver"`
		Unit     any    `json:"unit"`
		Date     any    `json:"date"`
		Message  string `json:"message"`
	}{true, r.FineGold, r.Silver, r.Unit, r.Date, r.Message})
}

type bullionDoc struct {
	FineGold any `json:"fine_gold"`
	Silver   any `json:"silver"`
	Unit     any `json:"unit"`
	Date     any `json:"date"`
}

// Bullion fetches the bullion feed.
func (c *Client) Bullion(ctx context.Context) BullionResult {
	var doc bullionDoc
	if err := c.fetch(ctx, "bullion", c.bullionURL, &doc); err != nil {
		c.logger.WarnContext(ctx, "bullion lookup failed", "error", err)
		return BullionResult{Error: describe("bullion", err)}
	}
	return BullionResult{
		Success:  true,
		FineGold: doc.FineGold,
		Silver:   doc.Silver,
		Unit:     doc.Unit,
		Date:     doc.Date,
		Message: fmt.Sprintf("Fine Gold: %s per %s, Silver: %s per %s (as of %s)",
			text(doc.FineGold), text(doc.Unit), text(doc.Silver), text(doc.Unit), text(doc.Date)),
	}
}

// BullionTool adapts Bullion to the tool handler signature.
func (c *Client) BullionTool(ctx context.Context, _ BullionInput) (BullionResult, error) {
	return c.Bullion(ctx), nil
}

// text renders a feed value for messages; absent values read "None".
func text(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(v)
}
