// Package currencymcp wires the currency conversion and market data tools
// into an MCP server and serves it over HTTP, stdio or WebSocket.
//
// Basic usage:
//
//	cfg, err := config.Load(logger)
//	if err != nil {
//	    return err
//	}
//	app, err := currencymcp.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return app.Serve(ctx, currencymcp.TransportHTTP)
package currencymcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/currency-mcp/config"
	"github.com/felixgeelhaar/currency-mcp/currency"
	"github.com/felixgeelhaar/currency-mcp/exchange"
	"github.com/felixgeelhaar/currency-mcp/market"
	"github.com/felixgeelhaar/currency-mcp/middleware"
	"github.com/felixgeelhaar/currency-mcp/protocol"
	"github.com/felixgeelhaar/currency-mcp/server"
	"github.com/felixgeelhaar/currency-mcp/transport"
)

// Server identity reported on initialize.
const (
	ServerName    = "Currency Converter"
	ServerVersion = "1.0.0"
)

// Tool names.
const (
	ToolConvert = "convert_currency"
	ToolBullion = "get_bullion_prices"
	ToolForex   = "get_forex_rates"
)

// Transport names accepted by Serve.
const (
	TransportHTTP      = "http"
	TransportStdio     = "stdio"
	TransportWebSocket = "websocket"
)

// HeaderAPIKey carries the per-request upstream API key.
const HeaderAPIKey = "apikey"

// App is the assembled server: tools, middleware and configuration.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *server.Server
	service *currency.Service
	handler middleware.HandlerFunc
}

// Option configures an App.
type Option func(*options)

type options struct {
	httpClient *http.Client
	telemetry  *Telemetry
}

// WithHTTPClient sets the client used for upstream calls. Its timeout
// replaces HTTP_TIMEOUT.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTelemetry instruments requests and upstream calls with t.
func WithTelemetry(t *Telemetry) Option {
	return func(o *options) {
		o.telemetry = t
	}
}

// New builds the server described by cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("currencymcp: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	stack := middleware.StackConfig{
		Logger:         middleware.NewSlogLogger(logger),
		RequestTimeout: cfg.RequestTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		AuthToken:      cfg.MCPAuthToken,
	}
	exchangeOpts := []exchange.Option{exchange.WithLogger(logger)}
	marketOpts := []market.Option{market.WithLogger(logger)}
	if o.httpClient != nil {
		exchangeOpts = append(exchangeOpts, exchange.WithHTTPClient(o.httpClient))
		marketOpts = append(marketOpts, market.WithHTTPClient(o.httpClient))
	}
	if o.telemetry != nil {
		exchangeOpts = append(exchangeOpts, exchange.WithTracerProvider(o.telemetry.TracerProvider))
		marketOpts = append(marketOpts, market.WithTracerProvider(o.telemetry.TracerProvider))
		stack.Telemetry = o.telemetry.MiddlewareOptions()
	}

	rates := exchange.NewClient(cfg.ExchangeAPIURL, cfg.HTTPTimeout, exchangeOpts...)
	feeds := market.NewClient(cfg.BullionURL, cfg.ForexURL, cfg.HTTPTimeout, marketOpts...)

	app := &App{
		cfg:     cfg,
		logger:  logger,
		server:  server.New(server.Info{Name: ServerName, Version: ServerVersion}),
		service: currency.NewService(rates, cfg.ResolveAPIKey, logger),
	}
	if err := app.registerTools(feeds); err != nil {
		return nil, err
	}

	app.handler = middleware.Chain(middleware.DefaultStack(stack)...)(app.server.Handle)
	return app, nil
}

func (a *App) registerTools(feeds *market.Client) error {
	builders := []*server.ToolBuilder{
		a.server.Tool(ToolConvert).
			Description("Convert an amount from one currency to another using live exchange rates").
			ValidateInput().
			Handler(a.convertTool),
		a.server.Tool(ToolBullion).
			Description("Get current gold and silver prices in NPR").
			Handler(feeds.BullionTool),
		a.server.Tool(ToolForex).
			Description("Get current forex exchange rates for various currencies in NPR").
			Handler(feeds.ForexTool),
	}
	for _, b := range builders {
		if err := b.Err(); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}
	return nil
}

func (a *App) convertTool(ctx context.Context, req currency.Request) (currency.Result, error) {
	return a.service.Convert(ctx, req, protocol.GetRequestMeta(ctx, HeaderAPIKey)), nil
}

// Server returns the underlying tool server.
func (a *App) Server() *server.Server {
	return a.server
}

// Convert runs one conversion with the process default API key.
func (a *App) Convert(ctx context.Context, req currency.Request) currency.Result {
	return a.service.Convert(ctx, req, "")
}

// HandleRequest runs req through the middleware stack and the tool server.
func (a *App) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return a.handler(ctx, req)
}

// HTTPHandler returns the HTTP transport's handler, for mounting on an
// existing server or in tests.
func (a *App) HTTPHandler() http.Handler {
	return a.newHTTP().Handler(a)
}

// Transport builds the named transport.
func (a *App) Transport(name string) (transport.Transport, error) {
	switch name {
	case TransportHTTP, "":
		return a.newHTTP(), nil
	case TransportStdio:
		return transport.NewStdio(), nil
	case TransportWebSocket:
		return transport.NewWebSocket(a.cfg.Addr), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}

// Serve serves the named transport until ctx is cancelled.
func (a *App) Serve(ctx context.Context, name string) error {
	t, err := a.Transport(name)
	if err != nil {
		return err
	}
	a.logger.Info("serving", "transport", name, "addr", t.Addr(), "tools", len(a.server.Tools()))
	return t.Serve(ctx, a)
}

func (a *App) newHTTP() *transport.HTTP {
	cors := transport.DefaultCORSConfig()
	if len(a.cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = a.cfg.CORSAllowOrigins
	}
	return transport.NewHTTP(a.cfg.Addr,
		transport.WithCORS(cors),
		transport.WithMaxBodyBytes(a.cfg.MaxRequestSize),
	)
}
