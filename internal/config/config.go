// Package config loads txgate settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
)

// Config holds node settings. CLI flags override these after loading.
type Config struct {
	DB               string        `env:"TXGATE_DB"                 envDefault:"txgate.db"`
	DBBusyTimeout    time.Duration `env:"TXGATE_DB_BUSY_TIMEOUT"    envDefault:"5s"`
	NetworkID        uint32        `env:"TXGATE_NETWORK_ID"         envDefault:"0"`
	ValidityHorizon  time.Duration `env:"TXGATE_VALIDITY_HORIZON"   envDefault:"10m"`
	PreflightWorkers int           `env:"TXGATE_PREFLIGHT_WORKERS"  envDefault:"4"`
	LogLevel         string        `env:"TXGATE_LOG_LEVEL"          envDefault:"info"`
	Amendments       []string      `env:"TXGATE_AMENDMENTS"         envSeparator:","`
	BaseFee          int64         `env:"TXGATE_BASE_FEE"           envDefault:"10"`
	ReserveBase      int64         `env:"TXGATE_RESERVE_BASE"       envDefault:"10000000"`
	ReserveIncrement int64         `env:"TXGATE_RESERVE_INCREMENT"  envDefault:"2000000"`
	MaxMemoSize      int           `env:"TXGATE_MAX_MEMO_SIZE"      envDefault:"1024"`
}

// Load reads the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom reads settings from the given variables instead of the process
// environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.PreflightWorkers < 1 {
		errs = append(errs, fmt.Errorf("TXGATE_PREFLIGHT_WORKERS must be positive, got %d", c.PreflightWorkers))
	}
	if c.ValidityHorizon <= 0 {
		errs = append(errs, fmt.Errorf("TXGATE_VALIDITY_HORIZON must be positive, got %s", c.ValidityHorizon))
	}
	if c.DBBusyTimeout < 0 {
		errs = append(errs, fmt.Errorf("TXGATE_DB_BUSY_TIMEOUT must not be negative, got %s", c.DBBusyTimeout))
	}
	if c.BaseFee < 0 || c.ReserveBase < 0 || c.ReserveIncrement < 0 {
		errs = append(errs, errors.New("fee settings must not be negative"))
	}
	if _, err := c.Rules(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Rules returns the amendments named in TXGATE_AMENDMENTS.
func (c Config) Rules() (protocol.Rules, error) {
	ids := make([]protocol.Hash256, 0, len(c.Amendments))
	for _, name := range c.Amendments {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := protocol.FeatureByName(name)
		if !ok {
			return protocol.Rules{}, fmt.Errorf("unknown amendment %q", name)
		}
		ids = append(ids, id)
	}
	return protocol.NewRules(ids...), nil
}

// Fees returns the fee schedule used until a FeeSettings entry exists.
func (c Config) Fees() ledger.Fees {
	return ledger.Fees{
		Base:      protocol.Drops(c.BaseFee),
		Reserve:   protocol.Drops(c.ReserveBase),
		Increment: protocol.Drops(c.ReserveIncrement),
	}
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("TXGATE_LOG_LEVEL: %w", err)
	}
	return l, nil
}
