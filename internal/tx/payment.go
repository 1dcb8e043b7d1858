package tx

import (
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// payment moves XRP from the sender to the destination, creating the
// destination account when the amount covers its reserve.
type payment struct{ normal }

func (payment) preflight(ctx *preflightContext) ter.Code {
	t := ctx.tx
	if code := checkFlags(t, protocol.TfPaymentMask); !ter.IsSuccess(code) {
		return code
	}

	dst := t.AccountField(protocol.FieldDestination)
	amount := t.Amount(protocol.FieldAmount)
	flags := t.Flags()
	switch {
	case dst.IsZero():
		return ter.TemDstNeeded
	case amount <= 0 || amount > protocol.MaxDrops:
		return ter.TemBadAmount
	case dst == t.Account():
		return ter.TemRedundant
	case t.Has(protocol.FieldSendMax):
		return ter.TemBadSendXRPMax
	case flags&protocol.TfPartialPayment != 0:
		return ter.TemBadSendXRPPartial
	case flags&protocol.TfNoRippleDirect != 0:
		return ter.TemBadSendXRPNoDirect
	case flags&protocol.TfLimitQuality != 0:
		return ter.TemBadSendXRPLimit
	case t.Has(protocol.FieldDeliverMin):
		// DeliverMin requires a partial payment.
		return ter.TemBadAmount
	}
	return ter.Success
}

func (payment) preclaim(ctx *preclaimContext) ter.Code {
	t := ctx.tx
	amount := t.Amount(protocol.FieldAmount)
	fees := ctx.view.Fees()

	dst := ctx.view.Read(protocol.AccountKeylet(t.AccountField(protocol.FieldDestination)))
	if dst == nil {
		if amount < fees.AccountReserve(0) {
			return ter.TecNoDstInsufXRP
		}
	} else if requiresDestTag(dst) && !t.Has(protocol.FieldDestinationTag) {
		return ter.TecDstTagNeeded
	}

	src := ctx.view.Read(protocol.AccountKeylet(t.Account()))
	if !canSend(src, fees, t.Fee(), amount, src.Amount(protocol.FieldBalance)) {
		return ter.TecUnfundedPayment
	}
	return ter.Success
}

func (payment) doApply(ctx *applyContext) ter.Code {
	t := ctx.tx
	amount := t.Amount(protocol.FieldAmount)
	fees := ctx.view.Fees()

	src := ctx.view.Peek(protocol.AccountKeylet(t.Account()))
	if !canSend(src, fees, t.Fee(), amount, ctx.priorBalance) {
		return ter.TecUnfundedPayment
	}

	dstID := t.AccountField(protocol.FieldDestination)
	k := protocol.AccountKeylet(dstID)
	dst := ctx.view.Peek(k)
	if dst == nil {
		if amount < fees.AccountReserve(0) {
			return ter.TecNoDstInsufXRP
		}
		dst = newEntry(k)
		dst.SetAccount(protocol.FieldAccount, dstID)
		dst.SetUint32(protocol.FieldSequence, ctx.view.Seq())
		dst.SetAmount(protocol.FieldBalance, amount)
		ctx.view.Insert(dst)
	} else {
		dst.SetAmount(protocol.FieldBalance, dst.Amount(protocol.FieldBalance)+amount)
		ctx.view.Update(dst)
	}

	src.SetAmount(protocol.FieldBalance, src.Amount(protocol.FieldBalance)-amount)
	ctx.view.Update(src)
	ctx.view.SetDeliveredAmount(amount)
	return ter.Success
}

func (payment) consequences(t *protocol.Tx) Consequences {
	c := normalConsequences(t)
	c.potentialSpend = t.Amount(protocol.FieldAmount)
	c.accounts = append(c.accounts, t.AccountField(protocol.FieldDestination))
	return c
}

// canSend reports whether a sender holding balance before the fee can pay
// amount and still keep its reserve, or the fee if that is larger.
func canSend(src *protocol.LedgerEntry, fees ledger.Fees, fee, amount, balance protocol.Drops) bool {
	reserve := fees.AccountReserve(src.Uint32(protocol.FieldOwnerCount))
	return balance >= amount+max(reserve, fee)
}

func requiresDestTag(root *protocol.LedgerEntry) bool {
	return root.Uint32(protocol.FieldFlags)&protocol.LsfRequireDestTag != 0
}
