package tx

import (
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// checkCreate writes a Check the destination may later cash.
type checkCreate struct{ normal }

func (checkCreate) requiredFeature() (protocol.Hash256, bool) {
	return protocol.FeatureChecks, true
}

func (checkCreate) preflight(ctx *preflightContext) ter.Code {
	t := ctx.tx
	if code := checkFlags(t, protocol.TfUniversalMask); !ter.IsSuccess(code) {
		return code
	}
	if t.AccountField(protocol.FieldDestination) == t.Account() {
		return ter.TemRedundant
	}
	if sendMax := t.Amount(protocol.FieldSendMax); sendMax <= 0 || sendMax > protocol.MaxDrops {
		return ter.TemBadAmount
	}
	if t.Has(protocol.FieldExpiration) && t.Uint32(protocol.FieldExpiration) == 0 {
		return ter.TemBadExpiration
	}
	return ter.Success
}

func (checkCreate) preclaim(ctx *preclaimContext) ter.Code {
	t := ctx.tx
	dst := ctx.view.Read(protocol.AccountKeylet(t.AccountField(protocol.FieldDestination)))
	if dst == nil {
		return ter.TecNoDst
	}
	if requiresDestTag(dst) && !t.Has(protocol.FieldDestinationTag) {
		return ter.TecDstTagNeeded
	}
	if t.Has(protocol.FieldExpiration) && hasExpired(ctx.view.ParentCloseTime(), t.Uint32(protocol.FieldExpiration)) {
		return ter.TecExpired
	}
	return ter.Success
}

func (checkCreate) doApply(ctx *applyContext) ter.Code {
	t := ctx.tx
	account := t.Account()
	root := ctx.view.Peek(protocol.AccountKeylet(account))

	owners := root.Uint32(protocol.FieldOwnerCount)
	if ctx.priorBalance < ctx.view.Fees().AccountReserve(owners+1) {
		return ter.TecInsufficientReserve
	}

	seq := t.SeqProxy().Value()
	k := protocol.CheckKeylet(account, seq)
	if ctx.view.Exists(k) {
		return ter.TecDuplicate
	}

	check := newEntry(k)
	check.SetAccount(protocol.FieldAccount, account)
	check.SetAccount(protocol.FieldDestination, t.AccountField(protocol.FieldDestination))
	check.SetAmount(protocol.FieldSendMax, t.Amount(protocol.FieldSendMax))
	check.SetUint32(protocol.FieldSequence, seq)
	for _, f := range []*protocol.SField{
		protocol.FieldExpiration,
		protocol.FieldSourceTag,
		protocol.FieldDestinationTag,
	} {
		if t.Has(f) {
			check.SetUint32(f, t.Uint32(f))
		}
	}
	if t.Has(protocol.FieldInvoiceID) {
		check.SetHash256(protocol.FieldInvoiceID, t.Hash256(protocol.FieldInvoiceID))
	}
	ctx.view.Insert(check)

	adjustOwnerCount(root, 1)
	ctx.view.Update(root)
	return ter.Success
}

func (checkCreate) consequences(t *protocol.Tx) Consequences {
	c := normalConsequences(t)
	c.accounts = append(c.accounts, t.AccountField(protocol.FieldDestination))
	return c
}

// checkCancel removes a Check. Before expiry only its creator or
// destination may cancel it; afterwards anyone may.
type checkCancel struct{ normal }

func (checkCancel) requiredFeature() (protocol.Hash256, bool) {
	return protocol.FeatureChecks, true
}

func (checkCancel) preflight(ctx *preflightContext) ter.Code {
	return checkFlags(ctx.tx, protocol.TfUniversalMask)
}

func (checkCancel) preclaim(ctx *preclaimContext) ter.Code {
	check := ctx.view.Read(protocol.CheckKeyletFromKey(ctx.tx.Hash256(protocol.FieldCheckID)))
	if check == nil {
		return ter.TecNoEntry
	}
	expired := check.Has(protocol.FieldExpiration) &&
		hasExpired(ctx.view.ParentCloseTime(), check.Uint32(protocol.FieldExpiration))
	if expired {
		return ter.Success
	}
	account := ctx.tx.Account()
	if account != check.Account(protocol.FieldAccount) && account != check.Account(protocol.FieldDestination) {
		return ter.TecNoPermission
	}
	return ter.Success
}

func (checkCancel) doApply(ctx *applyContext) ter.Code {
	check := ctx.view.Peek(protocol.CheckKeyletFromKey(ctx.tx.Hash256(protocol.FieldCheckID)))
	if check == nil {
		return ter.TecNoEntry
	}
	ctx.view.Erase(check)

	owner := ctx.view.Peek(protocol.AccountKeylet(check.Account(protocol.FieldAccount)))
	if owner == nil {
		return ter.TefBadLedger
	}
	adjustOwnerCount(owner, -1)
	ctx.view.Update(owner)
	return ter.Success
}

// hasExpired reports whether a ledger closing after parentCloseTime is past
// expiration.
func hasExpired(parentCloseTime, expiration uint32) bool {
	return parentCloseTime >= expiration
}
