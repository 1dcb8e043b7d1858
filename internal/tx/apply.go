package tx

import (
	"log/slog"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// DoApply performs the transaction's state change against l. It returns
// the final code and whether the ledger changed.
//
// A transaction that is not likely to claim a fee is returned untouched. A
// success commits every change. A final tec discards the primary effect
// but still charges the fee and consumes the sequence. Anything else
// discards everything. Under TapDryRun nothing is committed, and applied
// reports what would have happened.
func DoApply(pc PreclaimResult, a *app.Application, l *ledger.Ledger) (ter.Code, bool) {
	if !pc.ran {
		a.Logger.Error("apply called without a preclaim result")
		return ter.TefException, false
	}
	if !pc.likelyToClaimFee {
		return pc.code, false
	}
	if pc.view.Seq() != l.Seq() {
		pc.log.Error("preclaim view does not match apply ledger",
			"tx", pc.tx.ID(), "preclaim_seq", pc.view.Seq(), "apply_seq", l.Seq())
		return ter.TefException, false
	}

	ctx := &applyContext{
		app:     a,
		view:    ledger.NewSandbox(l),
		tx:      pc.tx,
		flags:   pc.flags,
		log:     pc.log,
		baseFee: CalculateBaseFee(l, pc.tx),
	}
	return ctx.run(pc.code)
}

// Apply runs Preflight, Preclaim and DoApply against l under l's rules.
func Apply(a *app.Application, l *ledger.Ledger, t *protocol.Tx, flags ApplyFlags, log *slog.Logger) (ter.Code, bool) {
	pf := Preflight(a, l.Rules(), t, flags, log)
	pc := Preclaim(pf, a, l)
	return DoApply(pc, a, l)
}

func (ctx *applyContext) run(preclaimCode ter.Code) (ter.Code, bool) {
	code := preclaimCode
	if ter.IsSuccess(code) {
		code = ctx.apply()
	}

	applied := ter.IsSuccess(code)
	if IsTecClaimHardFail(code, ctx.flags) {
		ctx.view.Discard()
		if reset := ctx.reset(); !ter.IsSuccess(reset) {
			code = reset
		} else {
			applied = true
		}
	} else if !applied {
		ctx.view.Discard()
	}

	if !applied {
		return code, false
	}
	if ctx.flags.Has(TapDryRun) {
		ctx.view.Discard()
		return code, true
	}

	meta := ctx.view.Apply(ctx.tx, code)
	ctx.log.Debug("transaction applied",
		"tx", ctx.tx.ID(), "type", ctx.tx.Type(), "result", code, "affected", len(meta.AffectedNodes))
	return code, true
}

// apply consumes the sequence, charges the fee, and runs the transactor.
func (ctx *applyContext) apply() (code ter.Code) {
	defer guard(ctx.log, "apply", ctx.tx, &code)

	tr := mustTransactor(ctx.tx)
	if ctx.tx.IsPseudo() {
		return tr.doApply(ctx)
	}

	root := ctx.view.Peek(protocol.AccountKeylet(ctx.tx.Account()))
	if root == nil {
		return ter.TefInternal
	}
	ctx.priorBalance = root.Amount(protocol.FieldBalance)
	if code := ctx.consumeSeqProxy(root); !ter.IsSuccess(code) {
		return code
	}
	root.SetAmount(protocol.FieldBalance, ctx.priorBalance-ctx.tx.Fee())
	if root.Has(protocol.FieldAccountTxnID) {
		root.SetHash256(protocol.FieldAccountTxnID, ctx.tx.ID())
	}
	ctx.view.Update(root)

	return tr.doApply(ctx)
}

// reset charges the fee and consumes the sequence after the primary effect
// was discarded. A fee above the balance takes the whole balance.
func (ctx *applyContext) reset() (code ter.Code) {
	defer guard(ctx.log, "reset", ctx.tx, &code)

	root := ctx.view.Peek(protocol.AccountKeylet(ctx.tx.Account()))
	if root == nil {
		return ter.TefInternal
	}
	balance := root.Amount(protocol.FieldBalance)
	fee := min(ctx.tx.Fee(), balance)
	if code := ctx.consumeSeqProxy(root); !ter.IsSuccess(code) {
		return code
	}
	root.SetAmount(protocol.FieldBalance, balance-fee)
	if root.Has(protocol.FieldAccountTxnID) {
		root.SetHash256(protocol.FieldAccountTxnID, ctx.tx.ID())
	}
	ctx.view.Update(root)
	return ter.Success
}

// consumeSeqProxy advances the account sequence or deletes the ticket used.
func (ctx *applyContext) consumeSeqProxy(root *protocol.LedgerEntry) ter.Code {
	sp := ctx.tx.SeqProxy()
	if !sp.IsTicket() {
		root.SetUint32(protocol.FieldSequence, sp.Value()+1)
		return ter.Success
	}

	ticket := ctx.view.Peek(protocol.TicketKeylet(ctx.tx.Account(), sp.Value()))
	if ticket == nil {
		return ter.TefBadLedger
	}
	ctx.view.Erase(ticket)
	adjustOwnerCount(root, -1)
	if n := root.Uint32(protocol.FieldTicketCount); n > 1 {
		root.SetUint32(protocol.FieldTicketCount, n-1)
	} else {
		root.Remove(protocol.FieldTicketCount)
	}
	return ter.Success
}

func adjustOwnerCount(root *protocol.LedgerEntry, delta int) {
	n := int64(root.Uint32(protocol.FieldOwnerCount)) + int64(delta)
	if n < 0 {
		n = 0
	}
	root.SetUint32(protocol.FieldOwnerCount, uint32(n))
}
