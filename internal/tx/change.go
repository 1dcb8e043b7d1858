package tx

import (
	"slices"

	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// change applies the EnableAmendment and SetFee pseudo-transactions. They
// come from consensus rather than an account: no sender, no fee, no
// signature.
type change struct{}

func (change) requiredFeature() (protocol.Hash256, bool) { return protocol.Hash256{}, false }

func (change) preflight(ctx *preflightContext) ter.Code {
	if code := preflight0(ctx); !ter.IsSuccess(code) {
		return code
	}
	t := ctx.tx
	switch {
	case !t.Account().IsZero():
		return ter.TemBadSrcAccount
	case t.Fee() != 0:
		return ter.TemBadFee
	case len(t.SigningPubKey()) != 0 || t.Has(protocol.FieldTxnSignature):
		return ter.TemBadSignature
	case t.Uint32(protocol.FieldSequence) != 0 || t.Has(protocol.FieldPreviousTxnID):
		return ter.TemBadSequence
	}
	return ter.Success
}

// preclaim admits pseudo-transactions only while a ledger is closing.
func (change) preclaim(ctx *preclaimContext) ter.Code {
	if ctx.view.Open() {
		ctx.log.Warn("pseudo-transaction on open ledger", "tx", ctx.tx.ID(), "type", ctx.tx.Type())
		return ter.TelLocalError
	}
	return ter.Success
}

func (change) doApply(ctx *applyContext) ter.Code {
	switch ctx.tx.Type() {
	case protocol.TtEnableAmendment:
		return applyAmendment(ctx)
	case protocol.TtSetFee:
		return applyFee(ctx)
	default:
		return ter.TefFailure
	}
}

func (change) consequences(*protocol.Tx) Consequences { return Consequences{} }

func (change) baseFee(ledger.ReadView, *protocol.Tx) protocol.Drops { return 0 }

func applyAmendment(ctx *applyContext) ter.Code {
	id := ctx.tx.Hash256(protocol.FieldAmendment)
	k := protocol.AmendmentsKeylet()

	entry := ctx.view.Peek(k)
	created := entry == nil
	if created {
		entry = newEntry(k)
	}
	enabled := entry.Vector256(protocol.FieldAmendments)
	if slices.Contains(enabled, id) {
		return ter.TefAlready
	}
	entry.SetVector256(protocol.FieldAmendments, append(enabled, id))

	if created {
		ctx.view.Insert(entry)
	} else {
		ctx.view.Update(entry)
	}

	name := protocol.FeatureName(id)
	if name == id.String() {
		ctx.log.Warn("unsupported amendment enabled", "amendment", id)
	} else {
		ctx.log.Info("amendment enabled", "amendment", name, "ledger", ctx.view.Seq())
	}
	return ter.Success
}

func applyFee(ctx *applyContext) ter.Code {
	t := ctx.tx
	k := protocol.FeesKeylet()

	entry := ctx.view.Peek(k)
	created := entry == nil
	if created {
		entry = newEntry(k)
	}
	entry.SetUint64(protocol.FieldBaseFee, t.Uint64(protocol.FieldBaseFee))
	entry.SetUint32(protocol.FieldReferenceFeeUnits, t.Uint32(protocol.FieldReferenceFeeUnits))
	entry.SetUint32(protocol.FieldReserveBase, t.Uint32(protocol.FieldReserveBase))
	entry.SetUint32(protocol.FieldReserveIncrement, t.Uint32(protocol.FieldReserveIncrement))

	if created {
		ctx.view.Insert(entry)
	} else {
		ctx.view.Update(entry)
	}
	ctx.log.Info("fee schedule changed", "base_fee", t.Uint64(protocol.FieldBaseFee), "ledger", ctx.view.Seq())
	return ter.Success
}
