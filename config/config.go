// Package config loads process configuration for the escalate command.
//
// Values come from the environment, optionally seeded from a .env file. The
// transaction settings use the JSON keys of ESCALATOR_TX_SETTINGS and may be
// overridden by the [policy] table of a TOML file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"txescalate/escalator"
)

// DefaultDotEnv is loaded by Load when it exists.
const DefaultDotEnv = ".env"

// Config is the process configuration.
type Config struct {
	RPCURL     string `env:"ESCALATOR_RPC_URL" envDefault:"http://localhost:4444"`
	PrivateKey string `env:"ESCALATOR_PRIVATE_KEY"`
	// TxSettings is a JSON object, see TxSettings.
	TxSettings  string `env:"ESCALATOR_TX_SETTINGS"`
	PolicyFile  string `env:"ESCALATOR_POLICY_FILE"`
	LogLevel    string `env:"ESCALATOR_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"ESCALATOR_LOG_FORMAT" envDefault:"terminal"`
	MetricsAddr string `env:"ESCALATOR_METRICS_ADDR"`
}

// Load reads dotenvPath (DefaultDotEnv when empty) if it exists and parses
// the environment. Variables already set in the environment win over the
// file.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath == "" {
		dotenvPath = DefaultDotEnv
	}
	if _, err := os.Stat(dotenvPath); err == nil {
		if err := godotenv.Load(dotenvPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Settings merges defaults, ESCALATOR_TX_SETTINGS and the policy file, in
// that order.
func (c *Config) Settings() (TxSettings, error) {
	settings := DefaultTxSettings()
	if c.TxSettings != "" {
		fromEnv, err := ParseTxSettings(c.TxSettings)
		if err != nil {
			return TxSettings{}, err
		}
		settings = settings.Merge(fromEnv)
	}
	if c.PolicyFile != "" {
		fromFile, err := LoadPolicyFile(c.PolicyFile)
		if err != nil {
			return TxSettings{}, err
		}
		settings = settings.Merge(fromFile)
	}
	return settings, nil
}

// Policy returns the validated engine policy.
func (c *Config) Policy() (escalator.Policy, error) {
	settings, err := c.Settings()
	if err != nil {
		return escalator.Policy{}, err
	}
	return settings.Policy()
}

// LogHandler builds the root log handler for LogLevel and LogFormat
// ("terminal", "logfmt" or "json").
func (c *Config) LogHandler(w io.Writer, useColor bool) (slog.Handler, error) {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "terminal":
		return log.NewTerminalHandlerWithLevel(w, lvl, useColor), nil
	case "logfmt":
		return log.LogfmtHandlerWithLevel(w, lvl), nil
	case "json":
		return log.JSONHandlerWithLevel(w, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
}

// ParseLevel maps a level name to its slog level. Besides the slog names it
// accepts "trace" and "crit"; an empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return log.LevelInfo, nil
	case "trace":
		return log.LevelTrace, nil
	case "crit":
		return log.LevelCrit, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}
