package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/engine"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/tx"
)

// Harness runs one scenario against a real engine backed by an in-memory
// journal. Pass tokens and clock stamps are deterministic, so two runs of
// the same scenario produce identical traces.
type Harness struct {
	scenario *Scenario
	cfg      config.Config
	store    *store.Store
	engine   *engine.Engine
	txs      map[string]*protocol.Tx
	nextSeq  map[string]uint32
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger replaces the discarding logger, e.g. for a verbose CLI run.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns its trace and any failures. An
// error means the scenario could not be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		txs:      make(map[string]*protocol.Tx),
		nextSeq:  make(map[string]uint32),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	cfg, err := config.LoadFrom(map[string]string{})
	if err != nil {
		return nil, err
	}
	if f := scenario.Fees; f != nil {
		cfg.BaseFee, cfg.ReserveBase, cfg.ReserveIncrement = f.Base, f.Reserve, f.Increment
	}
	cfg.Amendments = scenario.Amendments
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario settings: %w", err)
	}
	h.cfg = cfg

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	genesis, err := h.genesis()
	if err != nil {
		return nil, err
	}

	prefix := scenario.PassTokens
	if prefix == "" {
		prefix = "pass"
	}
	a := app.New(cfg, app.WithLogger(h.logger))
	h.engine = engine.New(a, genesis, 0,
		engine.WithStore(st),
		engine.WithTokens(&engine.SequenceGenerator{Prefix: prefix}))
	if err := h.engine.Checkpoint(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.engine.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		var err error
		if step.Submit != nil {
			err = h.submit(ctx, step.Submit, result)
		} else {
			err = h.close(ctx, step.Close, result)
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range h.evaluate(ctx, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) genesis() (*ledger.Ledger, error) {
	names := make([]string, 0, len(h.scenario.Accounts))
	for name := range h.scenario.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	accounts := make([]ledger.GenesisAccount, len(names))
	for i, name := range names {
		accounts[i] = ledger.GenesisAccount{
			ID:      protocol.AccountFromSeed(name),
			Balance: protocol.Drops(h.scenario.Accounts[name]),
		}
		h.nextSeq[name] = 1
	}
	rules, err := h.cfg.Rules()
	if err != nil {
		return nil, err
	}
	return ledger.Genesis(h.cfg.Fees(), rules, accounts...)
}

func (h *Harness) submit(ctx context.Context, step *SubmitStep, result *Result) error {
	t, err := h.build(step)
	if err != nil {
		return fmt.Errorf("build %s: %w", step.ID, err)
	}
	flags, err := tx.ParseApplyFlags(step.Flags...)
	if err != nil {
		return err
	}
	h.txs[step.ID] = t

	o, err := h.engine.Submit(ctx, t, flags)
	if err != nil {
		return fmt.Errorf("submit %s: %w", step.ID, err)
	}
	result.addTrace(TraceEvent{
		Kind:    "submit",
		Tx:      step.ID,
		Result:  o.Result.Token(),
		Applied: o.Applied,
		Queued:  o.Queued,
	})
	h.logger.Info("scenario submit", "id", step.ID, "result", o.Result, "queued", o.Queued)

	if exp := step.Expect; exp != nil {
		if exp.Result != "" && exp.Result != o.Result.Token() {
			result.AddError(fmt.Sprintf("submit %s: expected %s, got %s", step.ID, exp.Result, o.Result.Token()))
		}
		if exp.Applied != nil && *exp.Applied != o.Applied {
			result.AddError(fmt.Sprintf("submit %s: expected applied=%t, got %t", step.ID, *exp.Applied, o.Applied))
		}
		if exp.Queued != nil && *exp.Queued != o.Queued {
			result.AddError(fmt.Sprintf("submit %s: expected queued=%t, got %t", step.ID, *exp.Queued, o.Queued))
		}
	}
	return nil
}

func (h *Harness) close(ctx context.Context, step *CloseStep, result *Result) error {
	res, err := h.engine.Close(ctx, step.Time)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	labels := h.labels()
	for _, p := range res.Passes {
		result.addTrace(TraceEvent{Kind: "pass", Ledger: res.Ledger.Seq(), Pass: p.Pass, Token: p.Token, Seq: p.Seq})
		for _, o := range p.Outcomes {
			result.addTrace(TraceEvent{
				Kind:    "outcome",
				Tx:      labels[o.TxID],
				Result:  o.Result.Token(),
				Applied: o.Applied,
				Queued:  o.Queued,
				Seq:     o.Seq,
			})
		}
	}
	result.addTrace(TraceEvent{Kind: "close", Ledger: res.Ledger.Seq()})

	exp := step.Expect
	if exp == nil {
		return nil
	}
	if exp.Passes != nil && *exp.Passes != len(res.Passes) {
		result.AddError(fmt.Sprintf("close %d: expected %d passes, got %d", res.Ledger.Seq(), *exp.Passes, len(res.Passes)))
	}
	if exp.Transactions != nil {
		if got := len(res.Ledger.Transactions()); got != *exp.Transactions {
			result.AddError(fmt.Sprintf("close %d: expected %d transactions, got %d", res.Ledger.Seq(), *exp.Transactions, got))
		}
	}
	ids := make([]string, 0, len(exp.Results))
	for id := range exp.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		want := exp.Results[id]
		o, ok := res.Final(h.txs[id].ID())
		switch {
		case !ok:
			result.AddError(fmt.Sprintf("close %d: %s was not a candidate", res.Ledger.Seq(), id))
		case o.Result.Token() != want:
			result.AddError(fmt.Sprintf("close %d: expected %s for %s, got %s", res.Ledger.Seq(), want, id, o.Result.Token()))
		}
	}
	return nil
}

func (h *Harness) labels() map[protocol.Hash256]string {
	out := make(map[protocol.Hash256]string, len(h.txs))
	for id, t := range h.txs {
		out[t.ID()] = id
	}
	return out
}

// build assembles and signs the step's transaction. Pseudo-transactions are
// left unsigned.
func (h *Harness) build(step *SubmitStep) (*protocol.Tx, error) {
	fields := map[string]any{"TransactionType": step.Type}
	for name, raw := range step.Fields {
		v, err := h.resolve(name, raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields[name] = v
	}
	o, err := protocol.ParseObject(fields)
	if err != nil {
		return nil, err
	}

	tf, _ := protocol.DefaultFormats().TxByName(step.Type)
	if tf.Pseudo {
		o.SetAccount(protocol.FieldAccount, protocol.ZeroAccount)
		o.SetUint32(protocol.FieldSequence, 0)
		o.SetAmount(protocol.FieldFee, 0)
		o.SetBlob(protocol.FieldSigningPubKey, nil)
		return protocol.NewTx(o)
	}

	o.SetAccount(protocol.FieldAccount, protocol.AccountFromSeed(step.Account))
	switch {
	case step.Sequence != nil:
		o.SetUint32(protocol.FieldSequence, *step.Sequence)
	case step.Ticket != 0:
		o.SetUint32(protocol.FieldSequence, 0)
	default:
		o.SetUint32(protocol.FieldSequence, h.nextSeq[step.Account])
		h.nextSeq[step.Account]++
	}
	if step.Ticket != 0 {
		o.SetUint32(protocol.FieldTicketSequence, step.Ticket)
	}
	fee := h.cfg.BaseFee
	if step.Fee != nil {
		fee = *step.Fee
	}
	o.SetAmount(protocol.FieldFee, protocol.Drops(fee))

	signer := step.Signer
	if signer == "" {
		signer = step.Account
	}
	return protocol.Sign(o, protocol.KeyFromSeed(signer))
}

// resolve rewrites scenario shorthands into the JSON form ParseObject
// accepts: "$id" for an earlier transaction's hash, "check:id" for the
// check an earlier CheckCreate made, and the names ResolveField accepts.
func (h *Harness) resolve(name string, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return raw, nil
	}
	if f, ok := protocol.LookupField(name); ok && f.Type == protocol.TypeHash256 {
		if ref, ok := strings.CutPrefix(s, "$"); ok {
			t, ok := h.txs[ref]
			if !ok {
				return nil, fmt.Errorf("unknown transaction %q", ref)
			}
			return t.ID().String(), nil
		}
		if ref, ok := strings.CutPrefix(s, "check:"); ok {
			t, ok := h.txs[ref]
			if !ok {
				return nil, fmt.Errorf("unknown transaction %q", ref)
			}
			return protocol.CheckKeylet(t.Account(), t.SeqProxy().Value()).Key.String(), nil
		}
	}
	return ResolveField(name, raw), nil
}

// ResolveField rewrites a named account into its hex account ID and an
// amendment name into its feature hash. Other values pass through.
func ResolveField(name string, raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	f, ok := protocol.LookupField(name)
	if !ok {
		return raw
	}
	switch f.Type {
	case protocol.TypeAccount:
		if _, err := protocol.ParseAccountID(s); err == nil {
			return s
		}
		return protocol.AccountFromSeed(s).String()
	case protocol.TypeHash256:
		if id, ok := protocol.FeatureByName(s); ok {
			return id.String()
		}
	}
	return raw
}
