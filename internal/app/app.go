// Package app bundles the process-wide collaborators the transaction
// pipeline consults: node configuration, the validity cache and its checker,
// and the logger.
package app

import (
	"io"
	"log/slog"

	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/validity"
)

// Application is shared by every pipeline call. Its fields are set once at
// construction and only read afterwards; Validity is itself concurrent-safe.
type Application struct {
	Config   config.Config
	Validity *validity.Cache
	Checker  validity.Checker
	Logger   *slog.Logger

	// LoadFactor scales the minimum fee on open ledgers. TapUnlimited
	// submissions pay only the unscaled base fee.
	LoadFactor uint32
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.Logger = l }
}

// WithChecker replaces the validity checker.
func WithChecker(c validity.Checker) Option {
	return func(a *Application) { a.Checker = c }
}

// WithValidityCache shares an existing validity cache.
func WithValidityCache(c *validity.Cache) Option {
	return func(a *Application) { a.Validity = c }
}

// WithLoadFactor sets the open-ledger fee multiplier.
func WithLoadFactor(f uint32) Option {
	return func(a *Application) { a.LoadFactor = f }
}

// New builds an Application from cfg.
func New(cfg config.Config, opts ...Option) *Application {
	a := &Application{
		Config:     cfg,
		Validity:   validity.NewCache(),
		Checker:    validity.NewChecker(cfg.MaxMemoSize),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		LoadFactor: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
