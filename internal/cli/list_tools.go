package cli

import (
	"fmt"

	currencymcp "github.com/felixgeelhaar/currency-mcp"
)

// ListToolsCmd prints every registered tool as name<TAB>description.
type ListToolsCmd struct {
	rt *invocation `no-flag:"true"`
}

// Execute implements flags.Commander.
func (c *ListToolsCmd) Execute(_ []string) error {
	cfg, logger, err := c.rt.load()
	if err != nil {
		return err
	}
	app, err := currencymcp.New(cfg, logger)
	if err != nil {
		return err
	}
	// Tools come back sorted by name.
	for _, t := range app.Server().Tools() {
		if _, err := fmt.Fprintf(c.rt.stdout, "%s\t%s\n", t.Name, t.Description); err != nil {
			return err
		}
	}
	return nil
}
