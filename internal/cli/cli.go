// Package cli implements the currency-mcp command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jessevdk/go-flags"

	"github.com/felixgeelhaar/currency-mcp/config"
)

// ErrConversionFailed is returned after a failed conversion result has
// been printed.
var ErrConversionFailed = errors.New("conversion failed")

// Run parses args and executes the selected command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := &Options{}
	rt := &invocation{ctx: ctx, opts: opts, stdout: stdout, stderr: stderr}
	opts.bind(rt)

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "currency-mcp"
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(stdout, flagsErr.Message)
			return nil
		}
		return err
	}
	return nil
}

// invocation is shared by all commands of one invocation.
type invocation struct {
	ctx    context.Context
	opts   *Options
	stdout io.Writer
	stderr io.Writer
}

// load reads the configuration and builds a JSON logger on stderr, so
// that stdout stays free for the stdio transport and command output.
func (rt *invocation) load() (*config.Config, *slog.Logger, error) {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(rt.stderr, &slog.HandlerOptions{Level: level}))

	if rt.opts.LogLevel != "" {
		l, err := config.ParseLevel(rt.opts.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		level.Set(l)
	}

	cfg, err := config.Load(logger, rt.opts.EnvFile...)
	if err != nil {
		return nil, nil, err
	}
	if rt.opts.LogLevel == "" {
		level.Set(cfg.SlogLevel())
	}
	return cfg, logger, nil
}

func (rt *invocation) printJSON(v any) error {
	enc := json.NewEncoder(rt.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
