package engine

import (
	"bytes"
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/ter"
	"github.com/roach88/txgate/internal/tx"
)

// PassResult is one pass over the remaining candidates.
type PassResult struct {
	Token    string
	Pass     int
	Seq      int64
	Outcomes []Outcome

	Applied int
	Retried int
	Failed  int
}

// CloseResult describes a finished close.
type CloseResult struct {
	Ledger    *ledger.Ledger
	CloseTime uint32
	Passes    []PassResult
}

// Final returns the last outcome recorded for id across all passes.
func (r *CloseResult) Final(id protocol.Hash256) (Outcome, bool) {
	for i := len(r.Passes) - 1; i >= 0; i-- {
		for _, o := range r.Passes[i].Outcomes {
			if o.TxID == id {
				return o, true
			}
		}
	}
	return Outcome{}, false
}

// closeLedger applies the candidate set to a fresh successor of the last
// closed ledger and publishes it. On error nothing is published and the
// candidates are kept.
func (e *Engine) closeLedger(ctx context.Context, closeTime uint32) (*CloseResult, error) {
	parent := e.closed.Load()
	building := parent.Successor(e.closeTime)
	building.SetOpen(false)
	log := e.app.Logger.With("ledger", building.Seq())

	remaining := e.ordered()
	res := &CloseResult{CloseTime: closeTime}
	log.Info("close started", "candidates", len(remaining))

	for pass := 1; len(remaining) > 0; {
		last := pass >= e.maxPasses
		pr, retry, err := e.runPass(ctx, building, pass, remaining, last, log)
		if err != nil {
			log.Warn("close abandoned", "pass", pass, "error", err)
			return nil, err
		}
		res.Passes = append(res.Passes, pr)
		if err := e.journalPass(ctx, building.Seq(), pr); err != nil {
			return nil, err
		}
		if last {
			break
		}
		remaining = retry
		if pr.Applied == 0 {
			// Nothing changed, so another retrying pass would repeat this one.
			pass = e.maxPasses
		} else {
			pass++
		}
	}

	if err := e.journalLedger(ctx, building, closeTime); err != nil {
		return nil, err
	}

	e.closed.Store(building)
	e.closeTime = closeTime
	e.open = building.Successor(closeTime)
	clear(e.candidates)

	res.Ledger = building
	if h := e.app.Config.ValidityHorizon; h > 0 {
		if n := e.app.Validity.Sweep(h); n > 0 {
			log.Debug("validity cache swept", "evicted", n, "horizon", h)
		}
	}
	log.Info("ledger closed",
		"txs", len(building.Transactions()),
		"passes", len(res.Passes),
		"state_hash", building.StateHash())
	return res, nil
}

// ordered returns the candidates sorted by account, then sequence or
// ticket, then id.
func (e *Engine) ordered() []candidate {
	out := make([]candidate, 0, len(e.candidates))
	for _, c := range e.candidates {
		out = append(out, c)
	}
	slices.SortFunc(out, compareCandidates)
	return out
}

func compareCandidates(a, b candidate) int {
	aa, ba := a.tx.Account(), b.tx.Account()
	if c := bytes.Compare(aa[:], ba[:]); c != 0 {
		return c
	}
	as, bs := a.tx.SeqProxy(), b.tx.SeqProxy()
	switch {
	case as.Less(bs):
		return -1
	case bs.Less(as):
		return 1
	}
	aid, bid := a.tx.ID(), b.tx.ID()
	return bytes.Compare(aid[:], bid[:])
}

// runPass applies cands in order. Non-final passes set TapRetry so that
// failures which may clear up are retried instead of claiming a fee.
func (e *Engine) runPass(ctx context.Context, building *ledger.Ledger, n int, cands []candidate, last bool, log *slog.Logger) (PassResult, []candidate, error) {
	flags := make([]tx.ApplyFlags, len(cands))
	for i, c := range cands {
		if last {
			flags[i] = c.flags &^ tx.TapRetry
		} else {
			flags[i] = c.flags | tx.TapRetry
		}
	}

	pfs, err := e.preflightAll(ctx, building.Rules(), cands, flags, log)
	if err != nil {
		return PassResult{}, nil, err
	}

	pr := PassResult{Token: e.tokens.Generate(), Pass: n, Seq: e.clock.Next()}
	var retry []candidate
	for i, c := range cands {
		pf := pfs[i]
		code, applied := guarded(log, c.tx, func() (ter.Code, bool) {
			pc := tx.Preclaim(pf, e.app, building)
			return tx.DoApply(pc, e.app, building)
		})

		o := newOutcome(c.tx, code, applied, building)
		o.Seq = e.clock.Next()
		switch {
		case applied:
			pr.Applied++
		case !last && (ter.IsRetry(code) || ter.IsTecClaim(code)):
			pr.Retried++
			o.Queued = true
			retry = append(retry, c)
		default:
			pr.Failed++
		}
		pr.Outcomes = append(pr.Outcomes, o)
	}

	log.Info("pass complete", "pass", n, "token", pr.Token,
		"applied", pr.Applied, "retried", pr.Retried, "failed", pr.Failed)
	return pr, retry, nil
}

// preflightAll runs the stateless checks concurrently. Results keep the
// order of cands.
func (e *Engine) preflightAll(ctx context.Context, rules protocol.Rules, cands []candidate, flags []tx.ApplyFlags, log *slog.Logger) ([]tx.PreflightResult, error) {
	out := make([]tx.PreflightResult, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = tx.Preflight(e.app, rules, c.tx, flags[i], log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) journalPass(ctx context.Context, seq uint32, pr PassResult) error {
	if e.store == nil {
		return nil
	}
	rec := store.PassRecord{
		ID:        pr.Token,
		LedgerSeq: seq,
		Pass:      pr.Pass,
		Seq:       pr.Seq,
		Applied:   pr.Applied,
		Retried:   pr.Retried,
		Failed:    pr.Failed,
	}
	results := make([]store.ResultRecord, 0, len(pr.Outcomes))
	for _, o := range pr.Outcomes {
		r, err := resultRecord(pr.Token, seq, o)
		if err != nil {
			return journalError(seq, "encode metadata", err)
		}
		results = append(results, r)
	}
	if err := e.store.WritePass(ctx, rec, results); err != nil {
		return journalError(seq, "write pass", err)
	}
	return nil
}

func (e *Engine) journalLedger(ctx context.Context, l *ledger.Ledger, closeTime uint32) error {
	if e.store == nil {
		return nil
	}
	rec := store.LedgerRecord{
		Seq:             l.Seq(),
		StateHash:       l.StateHash(),
		ParentCloseTime: l.ParentCloseTime(),
		CloseTime:       closeTime,
		TxCount:         len(l.Transactions()),
	}
	if err := e.store.WriteLedger(ctx, rec, l.Entries()); err != nil {
		return journalError(l.Seq(), "write ledger", err)
	}
	return nil
}

// Checkpoint journals the last closed ledger. Call it before Run, once,
// for a genesis ledger; later ledgers are journaled by Close.
func (e *Engine) Checkpoint(ctx context.Context) error {
	return e.journalLedger(ctx, e.LastClosed(), e.closeTime)
}

func resultRecord(passID string, seq uint32, o Outcome) (store.ResultRecord, error) {
	r := store.ResultRecord{
		PassID:    passID,
		TxID:      o.TxID,
		LedgerSeq: seq,
		Seq:       o.Seq,
		Account:   o.Account,
		TxType:    o.Type.String(),
		Result:    o.Result,
		Applied:   o.Applied,
		Blob:      o.tx.Bytes(),
	}
	if o.Meta != nil {
		data, err := o.Meta.MarshalJSON()
		if err != nil {
			return store.ResultRecord{}, err
		}
		r.Meta = string(data)
	}
	return r, nil
}
