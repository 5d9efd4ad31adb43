package cli

import (
	currencymcp "github.com/felixgeelhaar/currency-mcp"
	"github.com/felixgeelhaar/currency-mcp/currency"
)

// ConvertCmd runs one conversion in process and prints the result.
type ConvertCmd struct {
	Amount float64 `short:"a" long:"amount" required:"true" description:"Amount to convert"`
	From   string  `long:"from" required:"true" description:"Source currency code"`
	To     string  `long:"to" required:"true" description:"Target currency code"`
	APIKey string  `long:"api-key" description:"ExchangeRate-API key, overriding EXCHANGE_API_KEY"`

	rt *invocation `no-flag:"true"`
}

// Execute implements flags.Commander.
func (c *ConvertCmd) Execute(_ []string) error {
	cfg, logger, err := c.rt.load()
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		cfg.ExchangeAPIKey = c.APIKey
	}

	app, err := currencymcp.New(cfg, logger)
	if err != nil {
		return err
	}

	res := app.Convert(c.rt.ctx, currency.Request{Amount: c.Amount, FromCurrency: c.From, ToCurrency: c.To})
	if err := c.rt.printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return ErrConversionFailed
	}
	return nil
}
