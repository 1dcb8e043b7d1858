package tx

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

var testFees = ledger.Fees{Base: 10, Reserve: 200, Increment: 50}

func testKey(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func signingKey(name string) []byte {
	pub := testKey(name).Public().(ed25519.PublicKey)
	return append([]byte{protocol.KeyPrefixEd25519}, pub...)
}

func accountOf(name string) protocol.AccountID {
	return protocol.AccountIDFromPublicKey(signingKey(name))
}

type fixture struct {
	t      *testing.T
	app    *app.Application
	ledger *ledger.Ledger
}

func newFixture(t *testing.T, features ...protocol.Hash256) *fixture {
	t.Helper()
	cfg := config.Config{MaxMemoSize: protocol.MaxMemoSize}
	f := &fixture{
		t:      t,
		app:    app.New(cfg),
		ledger: ledger.New(3, testFees),
	}
	if len(features) > 0 {
		am, err := protocol.NewLedgerEntry(protocol.AmendmentsKeylet())
		require.NoError(t, err)
		am.SetVector256(protocol.FieldAmendments, features)
		f.ledger.Put(am)
	}
	return f
}

func (f *fixture) fund(name string, balance protocol.Drops) {
	f.t.Helper()
	id := accountOf(name)
	root, err := protocol.NewLedgerEntry(protocol.AccountKeylet(id))
	require.NoError(f.t, err)
	root.SetAccount(protocol.FieldAccount, id)
	root.SetUint32(protocol.FieldSequence, 1)
	root.SetAmount(protocol.FieldBalance, balance)
	f.ledger.Put(root)
}

func (f *fixture) root(name string) *protocol.LedgerEntry {
	return f.ledger.Read(protocol.AccountKeylet(accountOf(name)))
}

func (f *fixture) balance(name string) protocol.Drops {
	f.t.Helper()
	root := f.root(name)
	require.NotNil(f.t, root, "no account for %s", name)
	return root.Amount(protocol.FieldBalance)
}

func (f *fixture) sequence(name string) uint32 {
	return f.root(name).Uint32(protocol.FieldSequence)
}

// txObject starts a transaction from name at its current sequence with the
// base fee.
func (f *fixture) txObject(name string, tt protocol.TxType) *protocol.Object {
	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(tt))
	o.SetAccount(protocol.FieldAccount, accountOf(name))
	seq := uint32(1)
	if root := f.root(name); root != nil {
		seq = root.Uint32(protocol.FieldSequence)
	}
	o.SetUint32(protocol.FieldSequence, seq)
	o.SetAmount(protocol.FieldFee, testFees.Base)
	return o
}

func (f *fixture) sign(signer string, o *protocol.Object) *protocol.Tx {
	f.t.Helper()
	tx, err := protocol.Sign(o, testKey(signer))
	require.NoError(f.t, err)
	return tx
}

func (f *fixture) payment(from, to string, amount protocol.Drops) *protocol.Object {
	o := f.txObject(from, protocol.TtPayment)
	o.SetAccount(protocol.FieldDestination, accountOf(to))
	o.SetAmount(protocol.FieldAmount, amount)
	return o
}

func (f *fixture) apply(tx *protocol.Tx, flags ApplyFlags) (ter.Code, bool) {
	return Apply(f.app, f.ledger, tx, flags, nil)
}

// pseudo builds an unsigned pseudo-transaction.
func pseudo(t *testing.T, tt protocol.TxType, build func(o *protocol.Object)) *protocol.Tx {
	t.Helper()
	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(tt))
	o.SetAccount(protocol.FieldAccount, protocol.ZeroAccount)
	o.SetUint32(protocol.FieldSequence, 0)
	o.SetAmount(protocol.FieldFee, 0)
	o.SetBlob(protocol.FieldSigningPubKey, nil)
	build(o)
	tx, err := protocol.NewTx(o)
	require.NoError(t, err)
	return tx
}
