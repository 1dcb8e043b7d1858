package tx

import (
	"log/slog"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
	"github.com/roach88/txgate/internal/validity"
)

// Networks with an ID at or below this value predate the NetworkID field
// and must not carry it.
const legacyNetworkIDMax = 1024

// Preflight runs the ledger-independent checks. It reads no ledger state
// and is safe to call concurrently. A nil log uses the application logger.
func Preflight(a *app.Application, rules protocol.Rules, t *protocol.Tx, flags ApplyFlags, log *slog.Logger) PreflightResult {
	if log == nil {
		log = a.Logger
	}
	ctx := &preflightContext{app: a, rules: rules, tx: t, flags: flags, log: log}
	code, cons := invokePreflight(ctx)
	if !ter.IsSuccess(code) {
		log.Debug("preflight failed", "tx", t.ID(), "type", t.Type(), "result", code)
	}
	return PreflightResult{
		ran:          true,
		tx:           t,
		rules:        rules,
		consequences: cons,
		flags:        flags,
		log:          log,
		code:         code,
	}
}

func invokePreflight(ctx *preflightContext) (code ter.Code, cons Consequences) {
	defer guard(ctx.log, "preflight", ctx.tx, &code)

	tr, ok := transactorFor(ctx.tx.Type())
	if !ok {
		return ter.TemUnknown, Consequences{}
	}
	if feature, ok := tr.requiredFeature(); ok && !ctx.rules.Enabled(feature) {
		return ter.TemDisabled, Consequences{}
	}

	if ctx.tx.IsPseudo() {
		code = tr.preflight(ctx)
	} else {
		code = preflight1(ctx)
		if ter.IsSuccess(code) {
			code = tr.preflight(ctx)
		}
		if ter.IsSuccess(code) {
			code = preflight2(ctx)
		}
	}
	if !ter.IsSuccess(code) {
		return code, Consequences{}
	}
	return code, tr.consequences(ctx.tx)
}

// preflight0 checks the NetworkID field against the node's network.
func preflight0(ctx *preflightContext) ter.Code {
	nodeID := ctx.app.Config.NetworkID
	if nodeID <= legacyNetworkIDMax {
		if ctx.tx.Has(protocol.FieldNetworkID) {
			return ter.TelNetworkIDMakesTxNonCanonical
		}
		return ter.Success
	}
	if !ctx.tx.Has(protocol.FieldNetworkID) {
		return ter.TelRequiresNetworkID
	}
	if ctx.tx.Uint32(protocol.FieldNetworkID) != nodeID {
		return ter.TelWrongNetwork
	}
	return ter.Success
}

// preflight1 holds the structural checks every account-originated
// transaction must pass.
func preflight1(ctx *preflightContext) ter.Code {
	if code := preflight0(ctx); !ter.IsSuccess(code) {
		return code
	}
	t := ctx.tx

	if t.Has(protocol.FieldTicketSequence) && !ctx.rules.Enabled(protocol.FeatureTicketBatch) {
		return ter.TemMalformed
	}
	if t.Account().IsZero() {
		return ter.TemBadSrcAccount
	}
	if fee := t.Fee(); fee < 0 || fee > protocol.MaxDrops {
		return ter.TemBadFee
	}
	if spk := t.SigningPubKey(); len(spk) != 0 && !validKeyType(spk) {
		return ter.TemBadSignature
	}
	if t.Uint32(protocol.FieldSequence) != 0 && t.Has(protocol.FieldTicketSequence) {
		return ter.TemSeqAndTicket
	}
	if t.SeqProxy().IsTicket() && t.Has(protocol.FieldAccountTxnID) {
		return ter.TemInvalid
	}
	return ter.Success
}

// preflight2 consults the validity cache. A dry run skips signature checks.
func preflight2(ctx *preflightContext) ter.Code {
	if ctx.flags.Has(TapDryRun) {
		return ter.Success
	}
	v, reason := ctx.app.Checker.Check(ctx.app.Validity, ctx.tx, ctx.rules)
	if v == validity.SigBad {
		ctx.log.Debug("signature rejected", "tx", ctx.tx.ID(), "reason", reason)
		return ter.TemInvalid
	}
	return ter.Success
}

func validKeyType(pub []byte) bool {
	return len(pub) == 33 && pub[0] == protocol.KeyPrefixEd25519
}

// checkFlags rejects flags outside mask.
func checkFlags(t *protocol.Tx, mask uint32) ter.Code {
	if t.Flags()&mask != 0 {
		return ter.TemInvalidFlag
	}
	return ter.Success
}
