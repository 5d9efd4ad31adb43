package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	currencymcp "github.com/felixgeelhaar/currency-mcp"
)

// ServeCmd serves the tools until SIGINT or SIGTERM.
type ServeCmd struct {
	Transport string `short:"t" long:"transport" choice:"http" choice:"stdio" choice:"websocket" default:"http" description:"Transport to serve"`
	Addr      string `long:"addr" description:"Listen address, overriding ADDR"`

	rt *invocation `no-flag:"true"`
}

// Execute implements flags.Commander.
func (c *ServeCmd) Execute(_ []string) error {
	cfg, logger, err := c.rt.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}

	var opts []currencymcp.Option
	if cfg.TraceStdout {
		tel, err := currencymcp.NewTelemetry(currencymcp.WithTraceWriter(c.rt.stderr))
		if err != nil {
			return err
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()
		opts = append(opts, currencymcp.WithTelemetry(tel))
	}

	app, err := currencymcp.New(cfg, logger, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.rt.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx, c.Transport); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
