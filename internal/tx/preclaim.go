package tx

import (
	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// Preclaim runs the checks that need ledger state. A failed preflight is
// carried through unchanged. If view's rules differ from those preflight
// ran under, preflight is repeated against view's rules first.
func Preclaim(pf PreflightResult, a *app.Application, view ledger.ReadView) PreclaimResult {
	if !pf.ran {
		a.Logger.Error("preclaim called without a preflight result")
		return PreclaimResult{code: ter.TefException}
	}
	code := pf.code
	if !pf.rules.Equal(view.Rules()) {
		pf.log.Debug("rules changed since preflight", "tx", pf.tx.ID())
		code = Preflight(a, view.Rules(), pf.tx, pf.flags, pf.log).code
	}

	if ter.IsSuccess(code) {
		ctx := &preclaimContext{app: a, view: view, tx: pf.tx, flags: pf.flags, log: pf.log}
		code = invokePreclaim(ctx)
		if !ter.IsSuccess(code) {
			pf.log.Debug("preclaim failed", "tx", pf.tx.ID(), "type", pf.tx.Type(), "result", code)
		}
	}

	return PreclaimResult{
		ran:              true,
		view:             view,
		tx:               pf.tx,
		flags:            pf.flags,
		log:              pf.log,
		code:             code,
		likelyToClaimFee: likelyToClaimFee(code, pf.flags),
	}
}

func invokePreclaim(ctx *preclaimContext) (code ter.Code) {
	defer guard(ctx.log, "preclaim", ctx.tx, &code)

	tr := mustTransactor(ctx.tx)
	if !ctx.tx.Account().IsZero() {
		if code = checkSeqProxy(ctx); !ter.IsSuccess(code) {
			return code
		}
		if code = checkPriorTxAndLastLedger(ctx); !ter.IsSuccess(code) {
			return code
		}
		if code = checkFee(ctx, tr.baseFee(ctx.view, ctx.tx)); !ter.IsSuccess(code) {
			return code
		}
		if code = checkSign(ctx); !ter.IsSuccess(code) {
			return code
		}
	}
	return tr.preclaim(ctx)
}

func checkSeqProxy(ctx *preclaimContext) ter.Code {
	id := ctx.tx.Account()
	root := ctx.view.Read(protocol.AccountKeylet(id))
	if root == nil {
		return ter.TerNoAccount
	}

	sp := ctx.tx.SeqProxy()
	acctSeq := root.Uint32(protocol.FieldSequence)
	if !sp.IsTicket() {
		switch {
		case sp.Value() < acctSeq:
			return ter.TefPastSeq
		case sp.Value() > acctSeq:
			return ter.TerPreSeq
		}
		return ter.Success
	}

	if !ctx.view.Exists(protocol.TicketKeylet(id, sp.Value())) {
		if sp.Value() >= acctSeq {
			return ter.TerPreTicket
		}
		return ter.TefNoTicket
	}
	return ter.Success
}

func checkPriorTxAndLastLedger(ctx *preclaimContext) ter.Code {
	if ctx.tx.Has(protocol.FieldAccountTxnID) {
		root := ctx.view.Read(protocol.AccountKeylet(ctx.tx.Account()))
		if root.Hash256(protocol.FieldAccountTxnID) != ctx.tx.Hash256(protocol.FieldAccountTxnID) {
			return ter.TefWrongPrior
		}
	}
	if ctx.tx.Has(protocol.FieldLastLedgerSequence) &&
		ctx.tx.Uint32(protocol.FieldLastLedgerSequence) < ctx.view.Seq() {
		return ter.TefMaxLedger
	}
	if ctx.view.TxExists(ctx.tx.ID()) {
		return ter.TefAlready
	}
	return ter.Success
}

// checkFee requires the declared fee to meet the minimum on an open ledger
// and the sender to hold enough to pay it.
func checkFee(ctx *preclaimContext, baseFee protocol.Drops) ter.Code {
	fee := ctx.tx.Fee()
	if fee < 0 || fee > protocol.MaxDrops {
		return ter.TemBadAmount
	}

	if ctx.view.Open() {
		due := baseFee
		if !ctx.flags.Has(TapUnlimited) && ctx.app.LoadFactor > 1 {
			due *= protocol.Drops(ctx.app.LoadFactor)
		}
		if fee < due {
			ctx.log.Debug("insufficient fee", "tx", ctx.tx.ID(), "paid", fee, "due", due)
			return ter.TelInsufFeeP
		}
	}

	if fee == 0 {
		return ter.Success
	}

	root := ctx.view.Read(protocol.AccountKeylet(ctx.tx.Account()))
	if root == nil {
		return ter.TerNoAccount
	}
	balance := root.Amount(protocol.FieldBalance)
	if balance < fee {
		if balance > 0 && !ctx.view.Open() {
			return ter.TecInsuffFee
		}
		return ter.TerInsufFeeB
	}
	return ter.Success
}

// checkSign authorises the signing key: the regular key, or the master key
// unless disabled. The signature itself was verified in preflight.
func checkSign(ctx *preclaimContext) ter.Code {
	spk := ctx.tx.SigningPubKey()
	if len(spk) == 0 && ctx.flags.Has(TapDryRun) {
		return ter.Success
	}

	account := ctx.tx.Account()
	root := ctx.view.Read(protocol.AccountKeylet(account))
	if root == nil {
		return ter.TerNoAccount
	}
	signer := protocol.AccountIDFromPublicKey(spk)
	masterDisabled := root.Uint32(protocol.FieldFlags)&protocol.LsfDisableMaster != 0
	hasRegular := root.Has(protocol.FieldRegularKey)

	switch {
	case hasRegular && signer == root.Account(protocol.FieldRegularKey):
		return ter.Success
	case signer == account && !masterDisabled:
		return ter.Success
	case signer == account:
		return ter.TefMasterDisabled
	case !hasRegular:
		return ter.TefBadAuthMaster
	default:
		return ter.TefBadAuth
	}
}
