package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/ter"
	"github.com/roach88/txgate/internal/tx"
	"github.com/roach88/txgate/internal/validity"
)

// DefaultMaxPasses is the number of passes a close makes over its
// candidates. Only the last pass applies without TapRetry.
const DefaultMaxPasses = 3

// Outcome is the result of one transaction against one ledger.
type Outcome struct {
	TxID    protocol.Hash256
	Account protocol.AccountID
	Type    protocol.TxType
	Result  ter.Code
	Applied bool

	// Queued is set when the transaction is held for the next close.
	Queued bool

	// Meta is set when the transaction was committed.
	Meta *ledger.Metadata

	// Seq is the clock stamp of the outcome. Zero for open-ledger outcomes.
	Seq int64

	tx *protocol.Tx
}

// Engine owns the open ledger and the candidate set for the next close.
//
// All state changes happen on the goroutine running Run. Submit and Close
// are safe to call from any goroutine; they enqueue a request and block
// until Run answers it.
type Engine struct {
	app       *app.Application
	store     *store.Store // nil disables journaling
	clock     *Clock
	tokens    PassTokenGenerator
	queue     *eventQueue
	workers   int
	maxPasses int

	closed atomic.Pointer[ledger.Ledger]

	// Owned by the Run loop.
	closeTime  uint32
	open       *ledger.Ledger
	candidates map[protocol.Hash256]candidate
}

type candidate struct {
	tx    *protocol.Tx
	flags tx.ApplyFlags
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore journals every pass and every closed ledger to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClock replaces the engine's clock, e.g. to resume a journal.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokens replaces the pass token generator.
func WithTokens(g PassTokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithWorkers bounds the number of concurrent preflights during a close.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxPasses sets the number of passes per close.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// New creates an engine whose last closed ledger is lastClosed, closed at
// closeTime. lastClosed must not be modified afterwards.
func New(a *app.Application, lastClosed *ledger.Ledger, closeTime uint32, opts ...Option) *Engine {
	e := &Engine{
		app:        a,
		clock:      NewClock(),
		tokens:     UUIDv7Generator{},
		queue:      newEventQueue(),
		workers:    a.Config.PreflightWorkers,
		maxPasses:  DefaultMaxPasses,
		closeTime:  closeTime,
		candidates: make(map[protocol.Hash256]candidate),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	lastClosed.SetOpen(false)
	e.closed.Store(lastClosed)
	e.open = lastClosed.Successor(closeTime)
	return e
}

// LastClosed returns the most recently closed ledger. It is never
// modified once published.
func (e *Engine) LastClosed() *ledger.Ledger {
	return e.closed.Load()
}

// Run processes submissions and closes until ctx is cancelled or Stop is
// called. Requests still queued when Run returns fail with a stopped error.
func (e *Engine) Run(ctx context.Context) error {
	log := e.app.Logger
	log.Info("engine started", "ledger", e.LastClosed().Seq(), "workers", e.workers, "max_passes", e.maxPasses)
	defer e.drain()

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("engine stopping", "reason", ctx.Err())
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				log.Info("engine stopped")
				return nil
			}
		}
	}
}

// Stop makes Run return once the queued requests are handled.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Submit applies t provisionally to the open ledger. A transaction that
// applies, or that may succeed later, is held as a candidate for the next
// close; dry runs never are.
func (e *Engine) Submit(ctx context.Context, t *protocol.Tx, flags tx.ApplyFlags) (Outcome, error) {
	req := &submitRequest{tx: t, flags: flags, reply: make(chan submitReply, 1)}
	if !e.queue.Enqueue(event{typ: eventSubmit, submit: req}) {
		return Outcome{}, errStopped()
	}
	select {
	case r := <-req.reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Close builds the next ledger from the candidate set. closeTime becomes
// the parent close time of the ledger opened after it.
func (e *Engine) Close(ctx context.Context, closeTime uint32) (*CloseResult, error) {
	req := &closeRequest{closeTime: closeTime, reply: make(chan closeReply, 1)}
	if !e.queue.Enqueue(event{typ: eventClose, close: req}) {
		return nil, errStopped()
	}
	select {
	case r := <-req.reply:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) process(ctx context.Context, ev event) {
	switch ev.typ {
	case eventSubmit:
		o := e.submit(ev.submit.tx, ev.submit.flags)
		ev.submit.reply <- submitReply{outcome: o}
	case eventClose:
		res, err := e.closeLedger(ctx, ev.close.closeTime)
		ev.close.reply <- closeReply{result: res, err: err}
	}
}

func (e *Engine) drain() {
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		switch ev.typ {
		case eventSubmit:
			ev.submit.reply <- submitReply{err: errStopped()}
		case eventClose:
			ev.close.reply <- closeReply{err: errStopped()}
		}
	}
}

func (e *Engine) submit(t *protocol.Tx, flags tx.ApplyFlags) Outcome {
	log := e.app.Logger.With("ledger", e.open.Seq())
	if t.IsPseudo() && !flags.Has(tx.TapDryRun) {
		// Pseudo-transactions only apply to a closing ledger.
		e.hold(t, flags)
		log.Debug("pseudo-transaction held", "tx", t.ID(), "type", t.Type())
		return Outcome{TxID: t.ID(), Type: t.Type(), Result: ter.TerQueued, Queued: true, tx: t}
	}
	if !flags.Has(tx.TapDryRun) {
		if code, ok := e.admit(t, log); !ok {
			return Outcome{TxID: t.ID(), Account: t.Account(), Type: t.Type(), Result: code}
		}
	}
	code, applied := guarded(log, t, func() (ter.Code, bool) {
		return tx.Apply(e.app, e.open, t, flags, log)
	})

	o := newOutcome(t, code, applied, e.open)
	if flags.Has(tx.TapDryRun) {
		o.Meta = nil
		return o
	}
	if applied || ter.IsRetry(code) || ter.IsTecClaim(code) {
		e.hold(t, flags)
		o.Queued = true
	}
	log.Debug("submitted", "tx", t.ID(), "type", t.Type(), "result", code, "applied", applied, "queued", o.Queued)
	return o
}

// admit consults the validity cache. Only a Valid transaction enters the
// pipeline: a bad signature is temBAD_SIGNATURE and a failed local check
// is temINVALID.
func (e *Engine) admit(t *protocol.Tx, log *slog.Logger) (ter.Code, bool) {
	v, reason := e.app.Checker.Check(e.app.Validity, t, e.open.Rules())
	switch v {
	case validity.Valid:
		return ter.Success, true
	case validity.SigBad:
		log.Debug("refused", "tx", t.ID(), "validity", v, "reason", reason)
		return ter.TemBadSignature, false
	default:
		log.Debug("refused", "tx", t.ID(), "validity", v, "reason", reason)
		return ter.TemInvalid, false
	}
}

// hold adds t to the candidate set. A transaction already held keeps its
// original flags.
func (e *Engine) hold(t *protocol.Tx, flags tx.ApplyFlags) {
	if _, held := e.candidates[t.ID()]; !held {
		e.candidates[t.ID()] = candidate{tx: t, flags: flags}
	}
}

func newOutcome(t *protocol.Tx, code ter.Code, applied bool, l *ledger.Ledger) Outcome {
	o := Outcome{
		TxID:    t.ID(),
		Account: t.Account(),
		Type:    t.Type(),
		Result:  code,
		Applied: applied,
		tx:      t,
	}
	if applied {
		if txs := l.Transactions(); len(txs) > 0 && txs[len(txs)-1].Tx.ID() == t.ID() {
			o.Meta = txs[len(txs)-1].Meta
		}
	}
	return o
}

// guarded runs fn, turning a panic into tefEXCEPTION. The sandbox that
// panicked is dropped, so the ledger is left as it was.
func guarded(log *slog.Logger, t *protocol.Tx, fn func() (ter.Code, bool)) (code ter.Code, applied bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("transaction aborted", "tx", t.ID(), "type", t.Type(), "panic", r)
			code, applied = ter.TefException, false
		}
	}()
	return fn()
}
