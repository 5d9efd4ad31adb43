package cli

import (
	"time"

	"github.com/felixgeelhaar/currency-mcp/client"
	"github.com/felixgeelhaar/currency-mcp/currency"
)

// CallCmd converts through a running server over HTTP.
type CallCmd struct {
	URL     string        `long:"url" default:"http://localhost:8000/mcp" description:"MCP endpoint"`
	Token   string        `long:"token" description:"MCP authentication token, defaulting to MCP_AUTH_TOKEN"`
	APIKey  string        `long:"api-key" description:"ExchangeRate-API key sent in the apikey header"`
	Timeout time.Duration `long:"timeout" default:"30s" description:"Request timeout"`
	Amount  float64       `short:"a" long:"amount" required:"true" description:"Amount to convert"`
	From    string        `long:"from" required:"true" description:"Source currency code"`
	To      string        `long:"to" required:"true" description:"Target currency code"`

	rt *invocation `no-flag:"true"`
}

// Execute implements flags.Commander.
func (c *CallCmd) Execute(_ []string) error {
	cfg, _, err := c.rt.load()
	if err != nil {
		return err
	}
	token := c.Token
	if token == "" {
		token = cfg.MCPAuthToken
	}

	var opts []client.HTTPOption
	if token != "" {
		opts = append(opts, client.WithMCPAuth(token))
	}
	if c.APIKey != "" {
		opts = append(opts, client.WithAPIKey(c.APIKey))
	}
	mc := client.New(client.NewHTTPTransport(c.URL, opts...), client.WithTimeout(c.Timeout))
	defer mc.Close() //nolint:errcheck

	if _, err := mc.Initialize(c.rt.ctx); err != nil {
		return err
	}
	res, err := mc.Convert(c.rt.ctx, currency.Request{Amount: c.Amount, FromCurrency: c.From, ToCurrency: c.To})
	if err != nil {
		return err
	}
	if err := c.rt.printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return ErrConversionFailed
	}
	return nil
}
