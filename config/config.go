// Package config loads the process configuration from the environment and
// an optional .env file, and resolves the upstream API key for a request.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingCredential is returned when neither the request nor the
// process configuration supplies an upstream API key.
var ErrMissingCredential = errors.New("no exchange rate API key configured")

// Config is the process configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	ExchangeAPIKey string        `envconfig:"EXCHANGE_API_KEY"`
	ExchangeAPIURL string        `envconfig:"EXCHANGE_API_URL" default:"https://v6.exchangerate-api.com/v6"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	BullionURL string `envconfig:"BULLION_URL"`
	ForexURL   string `envconfig:"FOREX_URL"`

	// MCPAuthToken enables connection authentication when non-empty.
	MCPAuthToken string `envconfig:"MCP_AUTH_TOKEN"`

	Addr             string        `envconfig:"ADDR" default:"0.0.0.0:8000"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRequestSize   int64         `envconfig:"MAX_REQUEST_SIZE" default:"1048576"`
	CORSAllowOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// TraceStdout writes finished spans to stderr.
	TraceStdout bool `envconfig:"TRACE_STDOUT" default:"false"`
}

// Load reads envFiles into the environment, then decodes Config from it.
// Without envFiles a .env in the working directory is used if present.
// Variables already set in the environment win over file values.
func Load(logger *slog.Logger, envFiles ...string) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files %v: %w", envFiles, err)
		}
		logger.Debug("environment loaded from file", "paths", envFiles)
	} else if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		logger.Debug("no .env file found, using process environment")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	logger.Info("config loaded",
		"addr", cfg.Addr,
		"exchange_api_url", cfg.ExchangeAPIURL,
		"exchange_api_key", maskValue(cfg.ExchangeAPIKey),
		"http_timeout", cfg.HTTPTimeout,
		"request_timeout", cfg.RequestTimeout,
		"mcp_auth", cfg.MCPAuthToken != "",
		"bullion_url", cfg.BullionURL,
		"forex_url", cfg.ForexURL,
		"log_level", cfg.LogLevel,
		"trace_stdout", cfg.TraceStdout,
	)
	return cfg, nil
}

// FromEnv decodes Config from the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.ExchangeAPIKey = strings.TrimSpace(cfg.ExchangeAPIKey)
	cfg.MCPAuthToken = strings.TrimSpace(cfg.MCPAuthToken)
	cfg.ExchangeAPIURL = strings.TrimRight(cfg.ExchangeAPIURL, "/")
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveAPIKey picks the key for one request: the header value if set,
// otherwise the process default.
func (c *Config) ResolveAPIKey(headerKey string) (string, error) {
	return ResolveAPIKey(headerKey, c.ExchangeAPIKey)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ResolveAPIKey returns headerKey if it is non-blank, else defaultKey if
// non-blank, else ErrMissingCredential.
func ResolveAPIKey(headerKey, defaultKey string) (string, error) {
	if k := strings.TrimSpace(headerKey); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(defaultKey); k != "" {
		return k, nil
	}
	return "", ErrMissingCredential
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func maskValue(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
