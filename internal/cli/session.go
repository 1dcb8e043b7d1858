package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/engine"
	"github.com/roach88/txgate/internal/store"
)

// session is an engine restored from the journal and running until Close.
type session struct {
	app    *app.Application
	store  *store.Store
	engine *engine.Engine
	record store.LedgerRecord

	cancel context.CancelFunc
	done   chan error
}

// openStore opens an existing journal. It refuses to create one, since a
// journal only makes sense once init has written its genesis ledger.
func openStore(cfg config.Config, readOnly bool) (*store.Store, error) {
	if _, err := os.Stat(cfg.DB); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found (run txgate init)", err)
	}
	sopts := []store.Option{store.WithBusyTimeout(cfg.DBBusyTimeout)}
	if readOnly {
		sopts = append(sopts, store.ReadOnly())
	}
	st, err := store.Open(cfg.DB, sopts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	st, err := openStore(opts.Config, false)
	if err != nil {
		return nil, err
	}
	rec, err := st.LatestLedger(ctx)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewExitError(ExitCommandError, "journal is empty (run txgate init)")
		}
		return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	a := app.New(opts.Config, app.WithLogger(opts.Logger))
	eng, err := engine.Restore(ctx, a, st)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to restore ledger", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{app: a, store: st, engine: eng, record: rec, cancel: cancel, done: make(chan error, 1)}
	go func() { s.done <- eng.Run(runCtx) }()
	return s, nil
}

// Close stops the engine and closes the journal.
func (s *session) Close() error {
	s.engine.Stop()
	runErr := <-s.done
	s.cancel()
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
