package tx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

func accountSetTx(f *fixture, name string, build func(o *protocol.Object)) *protocol.Object {
	o := f.txObject(name, protocol.TtAccountSet)
	build(o)
	return o
}

func TestAccountSetPreflight(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		build func(o *protocol.Object)
		want  ter.Code
	}{
		{"plain", func(o *protocol.Object) {}, ter.Success},
		{"set and clear same flag", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldSetFlag, protocol.AsfDefaultRipple)
			o.SetUint32(protocol.FieldClearFlag, protocol.AsfDefaultRipple)
		}, ter.TemInvalidFlag},
		{"conflicting tx flags", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldFlags, protocol.TfRequireDestTag|protocol.TfOptionalDestTag)
		}, ter.TemInvalidFlag},
		{"tx flag against asf", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldFlags, protocol.TfRequireAuth)
			o.SetUint32(protocol.FieldClearFlag, protocol.AsfRequireAuth)
		}, ter.TemInvalidFlag},
		{"transfer rate too low", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldTransferRate, 5)
		}, ter.TemBadTransferRate},
		{"transfer rate cleared", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldTransferRate, 0)
		}, ter.Success},
		{"domain too long", func(o *protocol.Object) {
			o.SetBlob(protocol.FieldDomain, bytes.Repeat([]byte("a"), maxDomainLength+1))
		}, ter.TelBadDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := f.sign("alice", accountSetTx(f, "alice", tt.build))
			assert.Equal(t, tt.want, Preflight(f.app, f.ledger.Rules(), tx, TapNone, nil).Code())
		})
	}
}

func TestAccountSetRequireDestTag(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 10_000)
	f.fund("bob", 10_000)

	code, _ := f.apply(f.sign("bob", accountSetTx(f, "bob", func(o *protocol.Object) {
		o.SetUint32(protocol.FieldFlags, protocol.TfRequireDestTag)
		o.SetBlob(protocol.FieldDomain, []byte("example.com"))
		o.SetUint32(protocol.FieldTransferRate, 1_500_000_000)
	})), TapNone)
	require.Equal(t, ter.Success, code)

	root := f.root("bob")
	assert.NotZero(t, root.Uint32(protocol.FieldFlags)&protocol.LsfRequireDestTag)
	assert.Equal(t, []byte("example.com"), root.Blob(protocol.FieldDomain))
	assert.Equal(t, uint32(1_500_000_000), root.Uint32(protocol.FieldTransferRate))

	code, applied := f.apply(f.sign("alice", f.payment("alice", "bob", 300)), TapNone)
	assert.Equal(t, ter.TecDstTagNeeded, code)
	assert.True(t, applied)

	tagged := f.payment("alice", "bob", 300)
	tagged.SetUint32(protocol.FieldDestinationTag, 7)
	code, _ = f.apply(f.sign("alice", tagged), TapNone)
	assert.Equal(t, ter.Success, code)

	code, _ = f.apply(f.sign("bob", accountSetTx(f, "bob", func(o *protocol.Object) {
		o.SetUint32(protocol.FieldClearFlag, protocol.AsfRequireDest)
		o.SetBlob(protocol.FieldDomain, nil)
		o.SetUint32(protocol.FieldTransferRate, 0)
	})), TapNone)
	require.Equal(t, ter.Success, code)
	root = f.root("bob")
	assert.Zero(t, root.Uint32(protocol.FieldFlags)&protocol.LsfRequireDestTag)
	assert.False(t, root.Has(protocol.FieldDomain))
	assert.False(t, root.Has(protocol.FieldTransferRate))
}

func TestAccountTxnIDTracksLastTransaction(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 10_000)

	enable := f.sign("alice", accountSetTx(f, "alice", func(o *protocol.Object) {
		o.SetUint32(protocol.FieldSetFlag, protocol.AsfAccountTxnID)
	}))
	code, _ := f.apply(enable, TapNone)
	require.Equal(t, ter.Success, code)
	root := f.root("alice")
	require.True(t, root.Has(protocol.FieldAccountTxnID))
	assert.Equal(t, protocol.ZeroHash, root.Hash256(protocol.FieldAccountTxnID))

	o := f.payment("alice", "bob", 300)
	o.SetHash256(protocol.FieldAccountTxnID, protocol.ZeroHash)
	pay := f.sign("alice", o)
	code, _ = f.apply(pay, TapNone)
	require.Equal(t, ter.Success, code)
	assert.Equal(t, pay.ID(), f.root("alice").Hash256(protocol.FieldAccountTxnID))

	stale := f.payment("alice", "bob", 300)
	stale.SetHash256(protocol.FieldAccountTxnID, enable.ID())
	code, _ = f.apply(f.sign("alice", stale), TapNone)
	assert.Equal(t, ter.TefWrongPrior, code)

	next := f.payment("alice", "bob", 300)
	next.SetHash256(protocol.FieldAccountTxnID, pay.ID())
	code, _ = f.apply(f.sign("alice", next), TapNone)
	assert.Equal(t, ter.Success, code)
}

func TestRegularKeyAndDisableMaster(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 10_000)
	f.fund("bob", 10_000)
	f.fund("mallory", 10_000)

	setKey := f.txObject("alice", protocol.TtSetRegularKey)
	setKey.SetAccount(protocol.FieldRegularKey, accountOf("alice-regular"))
	keyTx := f.sign("alice", setKey)
	assert.True(t, Preflight(f.app, f.ledger.Rules(), keyTx, TapNone, nil).Consequences().IsBlocker())

	code, _ := f.apply(keyTx, TapNone)
	require.Equal(t, ter.Success, code)
	root := f.root("alice")
	assert.Equal(t, accountOf("alice-regular"), root.Account(protocol.FieldRegularKey))
	assert.NotZero(t, root.Uint32(protocol.FieldFlags)&protocol.LsfPasswordSpent)

	disable := func(signer string) *protocol.Tx {
		return f.sign(signer, accountSetTx(f, "alice", func(o *protocol.Object) {
			o.SetUint32(protocol.FieldSetFlag, protocol.AsfDisableMaster)
		}))
	}
	code, applied := f.apply(disable("alice-regular"), TapNone)
	assert.Equal(t, ter.TecNeedMasterKey, code)
	assert.True(t, applied)

	masterTx := disable("alice")
	assert.True(t, Preflight(f.app, f.ledger.Rules(), masterTx, TapNone, nil).Consequences().IsBlocker())
	code, _ = f.apply(masterTx, TapNone)
	require.Equal(t, ter.Success, code)
	assert.NotZero(t, f.root("alice").Uint32(protocol.FieldFlags)&protocol.LsfDisableMaster)

	code, applied = f.apply(f.sign("alice", f.payment("alice", "bob", 300)), TapNone)
	assert.Equal(t, ter.TefMasterDisabled, code)
	assert.False(t, applied)

	code, applied = f.apply(f.sign("mallory", f.payment("alice", "bob", 300)), TapNone)
	assert.Equal(t, ter.TefBadAuth, code)
	assert.False(t, applied)

	code, _ = f.apply(f.sign("alice-regular", f.payment("alice", "bob", 300)), TapNone)
	assert.Equal(t, ter.Success, code)

	clearKey := f.txObject("alice", protocol.TtSetRegularKey)
	code, applied = f.apply(f.sign("alice-regular", clearKey), TapNone)
	assert.Equal(t, ter.TecNoAlternativeKey, code)
	assert.True(t, applied)
	assert.True(t, f.root("alice").Has(protocol.FieldRegularKey))
}

func TestSetRegularKeyRejectsOwnAccount(t *testing.T) {
	f := newFixture(t)
	o := f.txObject("alice", protocol.TtSetRegularKey)
	o.SetAccount(protocol.FieldRegularKey, accountOf("alice"))
	assert.Equal(t, ter.TemBadRegKey, Preflight(f.app, f.ledger.Rules(), f.sign("alice", o), TapNone, nil).Code())
}

func ticketCreateTx(f *fixture, name string, count uint32) *protocol.Object {
	o := f.txObject(name, protocol.TtTicketCreate)
	o.SetUint32(protocol.FieldTicketCount, count)
	return o
}

func ticketPayment(f *fixture, from, to string, amount protocol.Drops, ticket uint32) *protocol.Object {
	o := f.payment(from, to, amount)
	o.SetUint32(protocol.FieldSequence, 0)
	o.SetUint32(protocol.FieldTicketSequence, ticket)
	return o
}

func TestTicketCreateAndUse(t *testing.T) {
	f := newFixture(t, protocol.FeatureTicketBatch)
	f.fund("alice", 10_000)
	f.fund("bob", 10_000)

	create := f.sign("alice", ticketCreateTx(f, "alice", 2))
	pf := Preflight(f.app, f.ledger.Rules(), create, TapNone, nil)
	require.Equal(t, ter.Success, pf.Code())
	assert.Equal(t, uint32(2), pf.Consequences().SequencesConsumed())
	assert.Equal(t, protocol.SequenceProxy(4), pf.Consequences().FollowingSeq())

	code, applied := DoApply(Preclaim(pf, f.app, f.ledger), f.app, f.ledger)
	require.Equal(t, ter.Success, code)
	require.True(t, applied)

	root := f.root("alice")
	assert.Equal(t, uint32(4), root.Uint32(protocol.FieldSequence))
	assert.Equal(t, uint32(2), root.Uint32(protocol.FieldTicketCount))
	assert.Equal(t, uint32(2), root.Uint32(protocol.FieldOwnerCount))
	assert.True(t, f.ledger.Exists(protocol.TicketKeylet(accountOf("alice"), 2)))
	assert.True(t, f.ledger.Exists(protocol.TicketKeylet(accountOf("alice"), 3)))

	spend := f.sign("alice", ticketPayment(f, "alice", "bob", 100, 3))
	pf = Preflight(f.app, f.ledger.Rules(), spend, TapNone, nil)
	assert.Equal(t, protocol.TicketProxy(3), pf.Consequences().FollowingSeq())
	code, _ = DoApply(Preclaim(pf, f.app, f.ledger), f.app, f.ledger)
	require.Equal(t, ter.Success, code)

	root = f.root("alice")
	assert.Equal(t, uint32(4), root.Uint32(protocol.FieldSequence))
	assert.Equal(t, uint32(1), root.Uint32(protocol.FieldTicketCount))
	assert.Equal(t, uint32(1), root.Uint32(protocol.FieldOwnerCount))
	assert.False(t, f.ledger.Exists(protocol.TicketKeylet(accountOf("alice"), 3)))

	code, _ = f.apply(f.sign("alice", ticketPayment(f, "alice", "bob", 100, 3)), TapNone)
	assert.Equal(t, ter.TefNoTicket, code)

	code, _ = f.apply(f.sign("alice", ticketPayment(f, "alice", "bob", 100, 9)), TapNone)
	assert.Equal(t, ter.TerPreTicket, code)

	code, _ = f.apply(f.sign("alice", ticketPayment(f, "alice", "bob", 100, 2)), TapNone)
	require.Equal(t, ter.Success, code)
	root = f.root("alice")
	assert.False(t, root.Has(protocol.FieldTicketCount))
	assert.Equal(t, uint32(0), root.Uint32(protocol.FieldOwnerCount))
}

func TestTicketCreateLimits(t *testing.T) {
	f := newFixture(t, protocol.FeatureTicketBatch)
	f.fund("alice", 10_000)
	f.fund("poor", 250)

	for _, n := range []uint32{0, maxTickets + 1} {
		pf := Preflight(f.app, f.ledger.Rules(), f.sign("alice", ticketCreateTx(f, "alice", n)), TapNone, nil)
		assert.Equal(t, ter.TemInvalidCount, pf.Code(), "count %d", n)
	}

	root := f.root("alice")
	root.SetUint32(protocol.FieldTicketCount, maxTickets)
	f.ledger.Put(root)
	code, _ := f.apply(f.sign("alice", ticketCreateTx(f, "alice", 1)), TapNone)
	assert.Equal(t, ter.TecDirFull, code)

	code, applied := f.apply(f.sign("poor", ticketCreateTx(f, "poor", 2)), TapNone)
	assert.Equal(t, ter.TecInsufficientReserve, code)
	assert.True(t, applied)
	assert.Equal(t, protocol.Drops(240), f.balance("poor"))
	assert.Equal(t, uint32(2), f.sequence("poor"))
}

func TestTicketWithAccountTxnIDIsInvalid(t *testing.T) {
	f := newFixture(t, protocol.FeatureTicketBatch)
	o := ticketPayment(f, "alice", "bob", 100, 5)
	o.SetHash256(protocol.FieldAccountTxnID, protocol.Hash256{1})
	assert.Equal(t, ter.TemInvalid, Preflight(f.app, f.ledger.Rules(), f.sign("alice", o), TapNone, nil).Code())

	o = ticketPayment(f, "alice", "bob", 100, 5)
	o.SetUint32(protocol.FieldSequence, 4)
	assert.Equal(t, ter.TemSeqAndTicket, Preflight(f.app, f.ledger.Rules(), f.sign("alice", o), TapNone, nil).Code())
}

func checkCreateTx(f *fixture, from, to string, sendMax protocol.Drops) *protocol.Object {
	o := f.txObject(from, protocol.TtCheckCreate)
	o.SetAccount(protocol.FieldDestination, accountOf(to))
	o.SetAmount(protocol.FieldSendMax, sendMax)
	return o
}

func checkCancelTx(f *fixture, name string, id protocol.Hash256) *protocol.Object {
	o := f.txObject(name, protocol.TtCheckCancel)
	o.SetHash256(protocol.FieldCheckID, id)
	return o
}

func TestCheckCreateAndCancel(t *testing.T) {
	f := newFixture(t, protocol.FeatureChecks)
	f.fund("alice", 10_000)
	f.fund("bob", 10_000)
	f.fund("mallory", 10_000)

	o := checkCreateTx(f, "alice", "bob", 100)
	o.SetUint32(protocol.FieldDestinationTag, 4)
	o.SetHash256(protocol.FieldInvoiceID, protocol.Hash256{7})
	code, _ := f.apply(f.sign("alice", o), TapNone)
	require.Equal(t, ter.Success, code)

	k := protocol.CheckKeylet(accountOf("alice"), 1)
	check := f.ledger.Read(k)
	require.NotNil(t, check)
	assert.Equal(t, accountOf("bob"), check.Account(protocol.FieldDestination))
	assert.Equal(t, protocol.Drops(100), check.Amount(protocol.FieldSendMax))
	assert.Equal(t, uint32(4), check.Uint32(protocol.FieldDestinationTag))
	assert.Equal(t, protocol.Hash256{7}, check.Hash256(protocol.FieldInvoiceID))
	assert.Equal(t, uint32(1), f.root("alice").Uint32(protocol.FieldOwnerCount))

	code, applied := f.apply(f.sign("mallory", checkCancelTx(f, "mallory", k.Key)), TapNone)
	assert.Equal(t, ter.TecNoPermission, code)
	assert.True(t, applied)
	assert.True(t, f.ledger.Exists(k))

	code, _ = f.apply(f.sign("bob", checkCancelTx(f, "bob", k.Key)), TapNone)
	require.Equal(t, ter.Success, code)
	assert.False(t, f.ledger.Exists(k))
	assert.Equal(t, uint32(0), f.root("alice").Uint32(protocol.FieldOwnerCount))
	assert.Equal(t, f.ledger.Transactions()[2].Tx.ID(), f.root("alice").Hash256(protocol.FieldPreviousTxnID))

	code, _ = f.apply(f.sign("bob", checkCancelTx(f, "bob", k.Key)), TapNone)
	assert.Equal(t, ter.TecNoEntry, code)
}

func TestExpiredCheckMayBeCancelledByAnyone(t *testing.T) {
	f := newFixture(t, protocol.FeatureChecks)
	f.fund("alice", 10_000)
	f.fund("bob", 10_000)
	f.fund("mallory", 10_000)

	o := checkCreateTx(f, "alice", "bob", 100)
	o.SetUint32(protocol.FieldExpiration, 50)
	code, _ := f.apply(f.sign("alice", o), TapNone)
	require.Equal(t, ter.Success, code)

	f.ledger.SetParentCloseTime(50)
	k := protocol.CheckKeylet(accountOf("alice"), 1)
	code, _ = f.apply(f.sign("mallory", checkCancelTx(f, "mallory", k.Key)), TapNone)
	assert.Equal(t, ter.Success, code)
	assert.False(t, f.ledger.Exists(k))
}

func TestCheckCreateFailures(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture) *protocol.Object
		want  ter.Code
	}{
		{"to self", func(f *fixture) *protocol.Object { return checkCreateTx(f, "alice", "alice", 100) }, ter.TemRedundant},
		{"zero send max", func(f *fixture) *protocol.Object { return checkCreateTx(f, "alice", "bob", 0) }, ter.TemBadAmount},
		{"zero expiration", func(f *fixture) *protocol.Object {
			o := checkCreateTx(f, "alice", "bob", 100)
			o.SetUint32(protocol.FieldExpiration, 0)
			return o
		}, ter.TemBadExpiration},
		{"no destination", func(f *fixture) *protocol.Object { return checkCreateTx(f, "alice", "carol", 100) }, ter.TecNoDst},
		{"already expired", func(f *fixture) *protocol.Object {
			o := checkCreateTx(f, "alice", "bob", 100)
			o.SetUint32(protocol.FieldExpiration, 10)
			return o
		}, ter.TecExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, protocol.FeatureChecks)
			f.fund("alice", 10_000)
			f.fund("bob", 10_000)
			f.ledger.SetParentCloseTime(20)
			code, _ := f.apply(f.sign("alice", tt.build(f)), TapNone)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestEnableAmendment(t *testing.T) {
	f := newFixture(t)
	amendment := pseudo(t, protocol.TtEnableAmendment, func(o *protocol.Object) {
		o.SetUint32(protocol.FieldLedgerSequence, f.ledger.Seq())
		o.SetHash256(protocol.FieldAmendment, protocol.FeatureChecks)
	})

	code, applied := f.apply(amendment, TapNone)
	assert.Equal(t, ter.TelLocalError, code)
	assert.False(t, applied)

	f.ledger.SetOpen(false)
	pf := Preflight(f.app, f.ledger.Rules(), amendment, TapNone, nil)
	require.Equal(t, ter.Success, pf.Code())
	assert.Equal(t, Consequences{}, pf.Consequences())

	code, applied = DoApply(Preclaim(pf, f.app, f.ledger), f.app, f.ledger)
	assert.Equal(t, ter.Success, code)
	assert.True(t, applied)
	assert.True(t, f.ledger.Rules().Enabled(protocol.FeatureChecks))

	code, applied = f.apply(amendment, TapNone)
	assert.Equal(t, ter.TefAlready, code)
	assert.False(t, applied)

	unknown := pseudo(t, protocol.TtEnableAmendment, func(o *protocol.Object) {
		o.SetUint32(protocol.FieldLedgerSequence, f.ledger.Seq())
		o.SetHash256(protocol.FieldAmendment, protocol.Hash256{0xAB})
	})
	code, _ = f.apply(unknown, TapNone)
	assert.Equal(t, ter.Success, code)
	assert.True(t, f.ledger.Rules().Enabled(protocol.Hash256{0xAB}))
}

func TestSetFee(t *testing.T) {
	f := newFixture(t)
	f.ledger.SetOpen(false)
	fee := pseudo(t, protocol.TtSetFee, func(o *protocol.Object) {
		o.SetUint64(protocol.FieldBaseFee, 12)
		o.SetUint32(protocol.FieldReferenceFeeUnits, 10)
		o.SetUint32(protocol.FieldReserveBase, 1_000)
		o.SetUint32(protocol.FieldReserveIncrement, 100)
	})

	code, applied := f.apply(fee, TapNone)
	require.Equal(t, ter.Success, code)
	assert.True(t, applied)
	assert.Equal(t, protocol.Drops(12), f.ledger.Fees().Base)
	assert.Equal(t, protocol.Drops(1_100), f.ledger.Fees().AccountReserve(1))
}

func TestPseudoTransactionChecks(t *testing.T) {
	f := newFixture(t)
	f.ledger.SetOpen(false)
	tests := []struct {
		name  string
		build func(o *protocol.Object)
		want  ter.Code
	}{
		{"sender", func(o *protocol.Object) { o.SetAccount(protocol.FieldAccount, accountOf("alice")) }, ter.TemBadSrcAccount},
		{"fee", func(o *protocol.Object) { o.SetAmount(protocol.FieldFee, 10) }, ter.TemBadFee},
		{"signing key", func(o *protocol.Object) { o.SetBlob(protocol.FieldSigningPubKey, signingKey("alice")) }, ter.TemBadSignature},
		{"sequence", func(o *protocol.Object) { o.SetUint32(protocol.FieldSequence, 1) }, ter.TemBadSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := pseudo(t, protocol.TtEnableAmendment, func(o *protocol.Object) {
				o.SetUint32(protocol.FieldLedgerSequence, f.ledger.Seq())
				o.SetHash256(protocol.FieldAmendment, protocol.FeatureChecks)
				tt.build(o)
			})
			assert.Equal(t, tt.want, Preflight(f.app, f.ledger.Rules(), tx, TapNone, nil).Code())
		})
	}
}
