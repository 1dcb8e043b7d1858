package tx

import (
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// setRegularKey assigns or removes the account's regular key.
type setRegularKey struct{ normal }

func (setRegularKey) preflight(ctx *preflightContext) ter.Code {
	t := ctx.tx
	if code := checkFlags(t, protocol.TfUniversalMask); !ter.IsSuccess(code) {
		return code
	}
	if t.Has(protocol.FieldRegularKey) && t.AccountField(protocol.FieldRegularKey) == t.Account() {
		return ter.TemBadRegKey
	}
	return ter.Success
}

// baseFee makes the first key change signed with the master key free, so
// an account can recover from a compromised key without funds.
func (setRegularKey) baseFee(view ledger.ReadView, t *protocol.Tx) protocol.Drops {
	account := t.Account()
	if protocol.AccountIDFromPublicKey(t.SigningPubKey()) == account {
		root := view.Read(protocol.AccountKeylet(account))
		if root != nil && root.Uint32(protocol.FieldFlags)&protocol.LsfPasswordSpent == 0 {
			return 0
		}
	}
	return CalculateDefaultBaseFee(view, t)
}

func (setRegularKey) doApply(ctx *applyContext) ter.Code {
	t := ctx.tx
	root := ctx.view.Peek(protocol.AccountKeylet(t.Account()))
	flags := root.Uint32(protocol.FieldFlags)

	if ctx.baseFee == 0 {
		flags |= protocol.LsfPasswordSpent
		root.SetUint32(protocol.FieldFlags, flags)
	}

	if t.Has(protocol.FieldRegularKey) {
		root.SetAccount(protocol.FieldRegularKey, t.AccountField(protocol.FieldRegularKey))
	} else {
		if flags&protocol.LsfDisableMaster != 0 {
			return ter.TecNoAlternativeKey
		}
		root.Remove(protocol.FieldRegularKey)
	}
	ctx.view.Update(root)
	return ter.Success
}

func (setRegularKey) consequences(t *protocol.Tx) Consequences {
	c := normalConsequences(t)
	c.blocker = true
	return c
}
