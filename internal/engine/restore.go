package engine

import (
	"context"
	"fmt"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/store"
)

// Restore rebuilds the latest journaled ledger from s and returns an engine
// that continues from it. The rebuilt state must hash to the journaled
// state hash. The clock resumes after the highest journaled stamp.
func Restore(ctx context.Context, a *app.Application, s *store.Store, opts ...Option) (*Engine, error) {
	rec, err := s.LatestLedger(ctx)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeRestore, Message: "read latest ledger", Err: err}
	}

	l := ledger.New(rec.Seq, a.Config.Fees())
	l.SetParentCloseTime(rec.ParentCloseTime)
	entries, err := s.LoadEntries(ctx, rec.Seq)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeRestore, Message: "load entries", LedgerSeq: rec.Seq, Err: err}
	}
	for _, e := range entries {
		l.Put(e)
	}
	if got := l.StateHash(); got != rec.StateHash {
		return nil, &EngineError{
			Code:      ErrCodeRestore,
			Message:   fmt.Sprintf("state hash mismatch: journal %s, rebuilt %s", rec.StateHash, got),
			LedgerSeq: rec.Seq,
		}
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeRestore, Message: "read clock", LedgerSeq: rec.Seq, Err: err}
	}

	a.Logger.Info("journal restored", "ledger", rec.Seq, "entries", len(entries), "clock", last)
	opts = append([]Option{WithStore(s), WithClock(NewClockAt(last))}, opts...)
	return New(a, l, rec.CloseTime, opts...), nil
}
