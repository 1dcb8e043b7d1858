package tx

import (
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

const (
	maxDomainLength = 256
	transferRateMin = 1_000_000_000
	transferRateMax = 2_000_000_000
)

// accountSet changes account flags and settings.
type accountSet struct{ normal }

// flagPair is an account flag that both a transaction flag and an asf value
// can set or clear.
type flagPair struct {
	asf            uint32
	lsf            uint32
	tfSet, tfClear uint32
}

var accountFlagPairs = []flagPair{
	{protocol.AsfRequireDest, protocol.LsfRequireDestTag, protocol.TfRequireDestTag, protocol.TfOptionalDestTag},
	{protocol.AsfRequireAuth, protocol.LsfRequireAuth, protocol.TfRequireAuth, protocol.TfOptionalAuth},
	{protocol.AsfDisallowXRP, protocol.LsfDisallowXRP, protocol.TfDisallowXRP, protocol.TfAllowXRP},
}

// asf values with no transaction-flag equivalent.
var accountFlagsByAsf = map[uint32]uint32{
	protocol.AsfDefaultRipple: protocol.LsfDefaultRipple,
	protocol.AsfDepositAuth:   protocol.LsfDepositAuth,
	protocol.AsfGlobalFreeze:  protocol.LsfGlobalFreeze,
}

func (accountSet) preflight(ctx *preflightContext) ter.Code {
	t := ctx.tx
	if code := checkFlags(t, protocol.TfAccountSetMask); !ter.IsSuccess(code) {
		return code
	}

	setFlag := t.Uint32(protocol.FieldSetFlag)
	clearFlag := t.Uint32(protocol.FieldClearFlag)
	if setFlag != 0 && setFlag == clearFlag {
		return ter.TemInvalidFlag
	}
	flags := t.Flags()
	for _, p := range accountFlagPairs {
		setting := flags&p.tfSet != 0 || setFlag == p.asf
		clearing := flags&p.tfClear != 0 || clearFlag == p.asf
		if setting && clearing {
			return ter.TemInvalidFlag
		}
	}

	if t.Has(protocol.FieldTransferRate) {
		rate := t.Uint32(protocol.FieldTransferRate)
		if rate != 0 && (rate < transferRateMin || rate > transferRateMax) {
			return ter.TemBadTransferRate
		}
	}
	if len(t.Blob(protocol.FieldDomain)) > maxDomainLength {
		return ter.TelBadDomain
	}
	return ter.Success
}

func (accountSet) doApply(ctx *applyContext) ter.Code {
	t := ctx.tx
	root := ctx.view.Peek(protocol.AccountKeylet(t.Account()))
	flagsIn := root.Uint32(protocol.FieldFlags)
	flagsOut := flagsIn

	txFlags := t.Flags()
	setFlag := t.Uint32(protocol.FieldSetFlag)
	clearFlag := t.Uint32(protocol.FieldClearFlag)
	sigWithMaster := protocol.AccountIDFromPublicKey(t.SigningPubKey()) == t.Account()

	for _, p := range accountFlagPairs {
		if txFlags&p.tfSet != 0 || setFlag == p.asf {
			flagsOut |= p.lsf
		}
		if txFlags&p.tfClear != 0 || clearFlag == p.asf {
			flagsOut &^= p.lsf
		}
	}

	switch setFlag {
	case protocol.AsfDisableMaster:
		if !sigWithMaster {
			return ter.TecNeedMasterKey
		}
		if !root.Has(protocol.FieldRegularKey) {
			return ter.TecNoAlternativeKey
		}
		flagsOut |= protocol.LsfDisableMaster
	case protocol.AsfNoFreeze:
		if !sigWithMaster {
			return ter.TecNeedMasterKey
		}
		flagsOut |= protocol.LsfNoFreeze
	case protocol.AsfAccountTxnID:
		if !root.Has(protocol.FieldAccountTxnID) {
			root.SetHash256(protocol.FieldAccountTxnID, protocol.ZeroHash)
		}
	default:
		flagsOut |= accountFlagsByAsf[setFlag]
	}

	switch clearFlag {
	case protocol.AsfDisableMaster:
		flagsOut &^= protocol.LsfDisableMaster
	case protocol.AsfAccountTxnID:
		root.Remove(protocol.FieldAccountTxnID)
	case protocol.AsfGlobalFreeze:
		// Irrevocable once NoFreeze is set.
		if flagsOut&protocol.LsfNoFreeze == 0 {
			flagsOut &^= protocol.LsfGlobalFreeze
		}
	case protocol.AsfNoFreeze:
		// NoFreeze cannot be cleared.
	default:
		flagsOut &^= accountFlagsByAsf[clearFlag]
	}

	if t.Has(protocol.FieldDomain) {
		if domain := t.Blob(protocol.FieldDomain); len(domain) == 0 {
			root.Remove(protocol.FieldDomain)
		} else {
			root.SetBlob(protocol.FieldDomain, domain)
		}
	}
	if t.Has(protocol.FieldTransferRate) {
		if rate := t.Uint32(protocol.FieldTransferRate); rate == 0 || rate == transferRateMin {
			root.Remove(protocol.FieldTransferRate)
		} else {
			root.SetUint32(protocol.FieldTransferRate, rate)
		}
	}

	if flagsOut != flagsIn {
		root.SetUint32(protocol.FieldFlags, flagsOut)
	}
	ctx.view.Update(root)
	return ter.Success
}

// consequences marks changes to signing or authorisation as blockers.
func (accountSet) consequences(t *protocol.Tx) Consequences {
	c := normalConsequences(t)
	if t.Flags()&(protocol.TfRequireAuth|protocol.TfOptionalAuth) != 0 {
		c.blocker = true
	}
	for _, f := range []uint32{t.Uint32(protocol.FieldSetFlag), t.Uint32(protocol.FieldClearFlag)} {
		switch f {
		case protocol.AsfRequireAuth, protocol.AsfDisableMaster, protocol.AsfAccountTxnID:
			c.blocker = true
		}
	}
	return c
}
