package engine

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/ter"
	"github.com/roach88/txgate/internal/tx"
	"github.com/roach88/txgate/internal/validity"
)

var testFees = ledger.Fees{Base: 10, Reserve: 200, Increment: 50}

func testKey(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte(name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func accountOf(name string) protocol.AccountID {
	pub := testKey(name).Public().(ed25519.PublicKey)
	return protocol.AccountIDFromPublicKey(append([]byte{protocol.KeyPrefixEd25519}, pub...))
}

func testApp() *app.Application {
	cfg := config.Config{MaxMemoSize: protocol.MaxMemoSize, PreflightWorkers: 2}
	return app.New(cfg)
}

// genesis builds a closed ledger 1 holding the named accounts.
func genesis(t *testing.T, balances map[string]protocol.Drops) *ledger.Ledger {
	t.Helper()
	l := ledger.New(1, testFees)
	for name, bal := range balances {
		id := accountOf(name)
		root, err := protocol.NewLedgerEntry(protocol.AccountKeylet(id))
		require.NoError(t, err)
		root.SetAccount(protocol.FieldAccount, id)
		root.SetUint32(protocol.FieldSequence, 1)
		root.SetAmount(protocol.FieldBalance, bal)
		l.Put(root)
	}
	return l
}

func payment(t *testing.T, from, to string, seq uint32, amount protocol.Drops) *protocol.Tx {
	t.Helper()
	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(protocol.TtPayment))
	o.SetAccount(protocol.FieldAccount, accountOf(from))
	o.SetUint32(protocol.FieldSequence, seq)
	o.SetAmount(protocol.FieldFee, testFees.Base)
	o.SetAccount(protocol.FieldDestination, accountOf(to))
	o.SetAmount(protocol.FieldAmount, amount)
	signed, err := protocol.Sign(o, testKey(from))
	require.NoError(t, err)
	return signed
}

// startEngine runs e until the test ends.
func startEngine(t *testing.T, e *Engine) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return ctx
}

func balanceOf(t *testing.T, l *ledger.Ledger, name string) protocol.Drops {
	t.Helper()
	root := l.Read(protocol.AccountKeylet(accountOf(name)))
	require.NotNil(t, root, "no account for %s", name)
	return root.Amount(protocol.FieldBalance)
}

func TestEngine_SubmitAndClose(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0,
		WithTokens(&SequenceGenerator{Prefix: "pass"}))
	ctx := startEngine(t, e)

	pay := payment(t, "alice", "bob", 1, 100)
	o, err := e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.Success, o.Result)
	assert.True(t, o.Applied)
	assert.True(t, o.Queued)
	assert.Zero(t, o.Seq)
	require.NotNil(t, o.Meta)

	// The provisional result never touches the closed ledger.
	assert.Equal(t, protocol.Drops(1000), balanceOf(t, e.LastClosed(), "alice"))

	res, err := e.Close(ctx, 100)
	require.NoError(t, err)
	require.Len(t, res.Passes, 1)
	assert.Equal(t, "pass-1", res.Passes[0].Token)
	assert.Equal(t, 1, res.Passes[0].Applied)

	final, ok := res.Final(pay.ID())
	require.True(t, ok)
	assert.True(t, final.Applied)
	assert.Equal(t, ter.Success, final.Result)
	assert.Greater(t, final.Seq, res.Passes[0].Seq)

	closed := e.LastClosed()
	assert.Same(t, res.Ledger, closed)
	assert.Equal(t, uint32(2), closed.Seq())
	assert.False(t, closed.Open())
	assert.Equal(t, protocol.Drops(890), balanceOf(t, closed, "alice"))
	assert.Equal(t, protocol.Drops(1100), balanceOf(t, closed, "bob"))
	assert.True(t, closed.TxExists(pay.ID()))

	// The candidate set is cleared by a close.
	res, err = e.Close(ctx, 200)
	require.NoError(t, err)
	assert.Empty(t, res.Passes)
	assert.Equal(t, uint32(3), e.LastClosed().Seq())
	assert.Equal(t, uint32(100), e.LastClosed().ParentCloseTime())
}

func TestEngine_ClosesInSequenceOrder(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	second := payment(t, "alice", "bob", 2, 10)
	first := payment(t, "alice", "bob", 1, 10)

	o, err := e.Submit(ctx, second, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.TerPreSeq, o.Result)
	assert.False(t, o.Applied)
	assert.True(t, o.Queued)

	_, err = e.Submit(ctx, first, tx.TapNone)
	require.NoError(t, err)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	require.Len(t, res.Passes, 1)
	assert.Equal(t, 2, res.Passes[0].Applied)

	txs := res.Ledger.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, first.ID(), txs[0].Tx.ID())
	assert.Equal(t, second.ID(), txs[1].Tx.ID())
}

func TestEngine_RetriesInLaterPass(t *testing.T) {
	// The newcomer must sort before its funder so its first attempt fails.
	funder, newcomer := "carol", "dave"
	if a, b := accountOf(funder), accountOf(newcomer); bytes.Compare(a[:], b[:]) < 0 {
		funder, newcomer = newcomer, funder
	}

	e := New(testApp(), genesis(t, map[string]protocol.Drops{funder: 5000}), 0)
	ctx := startEngine(t, e)

	// Accounts created in ledger 2 start at sequence 2.
	spend := payment(t, newcomer, funder, 2, 100)
	o, err := e.Submit(ctx, spend, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.TerNoAccount, o.Result)
	assert.True(t, o.Queued)

	fund := payment(t, funder, newcomer, 1, 1000)
	_, err = e.Submit(ctx, fund, tx.TapNone)
	require.NoError(t, err)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	require.Len(t, res.Passes, 2)
	assert.Equal(t, 1, res.Passes[0].Applied)
	assert.Equal(t, 1, res.Passes[0].Retried)
	assert.Equal(t, 2, res.Passes[1].Pass)

	final, ok := res.Final(spend.ID())
	require.True(t, ok)
	assert.True(t, final.Applied)
	assert.Equal(t, protocol.Drops(890), balanceOf(t, res.Ledger, newcomer))
}

func TestEngine_UnresolvedRetryIsDropped(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	gap := payment(t, "alice", "bob", 5, 10)
	_, err := e.Submit(ctx, gap, tx.TapNone)
	require.NoError(t, err)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)

	// A pass that applies nothing skips straight to the final pass.
	require.Len(t, res.Passes, 2)
	assert.Equal(t, 1, res.Passes[0].Pass)
	assert.Equal(t, DefaultMaxPasses, res.Passes[1].Pass)
	assert.Equal(t, 1, res.Passes[1].Failed)

	final, ok := res.Final(gap.ID())
	require.True(t, ok)
	assert.Equal(t, ter.TerPreSeq, final.Result)
	assert.False(t, final.Applied)
	assert.Empty(t, res.Ledger.Transactions())
}

func TestEngine_FinalPassClaimsFee(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 500, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	pay := payment(t, "alice", "bob", 1, 1000)
	o, err := e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.TecUnfundedPayment, o.Result)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	require.Len(t, res.Passes, 2)

	first := res.Passes[0].Outcomes[0]
	assert.Equal(t, ter.TecUnfundedPayment, first.Result)
	assert.False(t, first.Applied, "retrying passes must not claim the fee")

	final, ok := res.Final(pay.ID())
	require.True(t, ok)
	assert.True(t, final.Applied)
	require.NotNil(t, final.Meta)
	assert.Equal(t, ter.TecUnfundedPayment, final.Meta.TransactionResult)
	assert.Equal(t, protocol.Drops(490), balanceOf(t, res.Ledger, "alice"))
}

func TestEngine_DuplicateSubmission(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	pay := payment(t, "alice", "bob", 1, 10)
	_, err := e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)
	o, err := e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.TefAlready, o.Result)
	assert.False(t, o.Queued)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, res.Ledger.Transactions(), 1)
}

func TestEngine_DryRunIsNotHeld(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	o, err := e.Submit(ctx, payment(t, "alice", "bob", 1, 10), tx.TapDryRun)
	require.NoError(t, err)
	assert.Equal(t, ter.Success, o.Result)
	assert.False(t, o.Queued)
	assert.Nil(t, o.Meta)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Passes)
}

func TestEngine_RefusesTransactionsFailingValidity(t *testing.T) {
	e := New(testApp(), genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(protocol.TtPayment))
	o.SetAccount(protocol.FieldAccount, accountOf("alice"))
	o.SetUint32(protocol.FieldSequence, 1)
	o.SetAmount(protocol.FieldFee, testFees.Base)
	o.SetAccount(protocol.FieldDestination, accountOf("bob"))
	o.SetAmount(protocol.FieldAmount, 10)
	memo := protocol.NewInnerObject(protocol.FieldMemo)
	memo.SetBlob(protocol.FieldMemoData, bytes.Repeat([]byte{0xAB}, 4000))
	o.SetArray(protocol.FieldMemos, []*protocol.Object{memo})
	bigMemo, err := protocol.Sign(o, testKey("alice"))
	require.NoError(t, err)

	forged := protocol.NewObject()
	forged.SetUint16(protocol.FieldTransactionType, uint16(protocol.TtPayment))
	forged.SetAccount(protocol.FieldAccount, accountOf("bob"))
	forged.SetUint32(protocol.FieldSequence, 1)
	forged.SetAmount(protocol.FieldFee, testFees.Base)
	forged.SetAccount(protocol.FieldDestination, accountOf("alice"))
	forged.SetAmount(protocol.FieldAmount, 10)
	forged.SetBlob(protocol.FieldSigningPubKey, protocol.SigningKey(testKey("bob")))
	forged.SetBlob(protocol.FieldTxnSignature, make([]byte, 64))
	badSig, err := protocol.NewTx(forged)
	require.NoError(t, err)

	tests := []struct {
		name string
		tx   *protocol.Tx
		want ter.Code
	}{
		{"oversized memo", bigMemo, ter.TemInvalid},
		{"bad signature", badSig, ter.TemBadSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Submit(ctx, tt.tx, tx.TapNone)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Result)
			assert.False(t, out.Applied)
			assert.False(t, out.Queued)
			assert.Nil(t, out.Meta)
		})
	}

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Passes)
	assert.False(t, res.Ledger.TxExists(bigMemo.ID()))
	assert.False(t, res.Ledger.TxExists(badSig.ID()))
	assert.Equal(t, protocol.Drops(1000), balanceOf(t, res.Ledger, "alice"))
}

func TestEngine_CloseSweepsValidityCache(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := validity.NewCache(validity.WithNow(func() time.Time { return now }))
	cfg := config.Config{MaxMemoSize: protocol.MaxMemoSize, PreflightWorkers: 2, ValidityHorizon: 10 * time.Minute}
	a := app.New(cfg, app.WithValidityCache(cache))

	e := New(a, genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0)
	ctx := startEngine(t, e)

	stale := protocol.Hash256{0xEE}
	cache.Set(stale, validity.FlagSigGood)
	require.Equal(t, 1, cache.Len())

	now = now.Add(11 * time.Minute)
	pay := payment(t, "alice", "bob", 1, 10)
	_, err := e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)

	_, err = e.Close(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Flags(pay.ID()).Has(validity.FlagLocalGood))

	now = now.Add(11 * time.Minute)
	_, err = e.Close(ctx, 20)
	require.NoError(t, err)
	assert.Zero(t, cache.Len())
}

func TestEngine_PseudoTransactionAppliesAtClose(t *testing.T) {
	e := New(testApp(), genesis(t, nil), 0)
	ctx := startEngine(t, e)

	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(protocol.TtEnableAmendment))
	o.SetAccount(protocol.FieldAccount, protocol.ZeroAccount)
	o.SetUint32(protocol.FieldSequence, 0)
	o.SetAmount(protocol.FieldFee, 0)
	o.SetBlob(protocol.FieldSigningPubKey, nil)
	o.SetHash256(protocol.FieldAmendment, protocol.FeatureTicketBatch)
	o.SetUint32(protocol.FieldLedgerSequence, 2)
	enable, err := protocol.NewTx(o)
	require.NoError(t, err)

	out, err := e.Submit(ctx, enable, tx.TapNone)
	require.NoError(t, err)
	assert.Equal(t, ter.TerQueued, out.Result)
	assert.True(t, out.Queued)

	res, err := e.Close(ctx, 10)
	require.NoError(t, err)
	final, ok := res.Final(enable.ID())
	require.True(t, ok)
	assert.Equal(t, ter.Success, final.Result)
	assert.True(t, res.Ledger.Rules().Enabled(protocol.FeatureTicketBatch))
}

func TestEngine_JournalAndRestore(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	a := testApp()
	e := New(a, genesis(t, map[string]protocol.Drops{"alice": 1000, "bob": 1000}), 0, WithStore(s))
	require.NoError(t, e.Checkpoint(context.Background()))
	ctx := startEngine(t, e)

	pay := payment(t, "alice", "bob", 1, 100)
	_, err = e.Submit(ctx, pay, tx.TapNone)
	require.NoError(t, err)
	res, err := e.Close(ctx, 50)
	require.NoError(t, err)

	passes, err := s.ReadPasses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, res.Passes[0].Token, passes[0].ID)
	assert.Equal(t, 1, passes[0].Applied)

	rec, err := s.ReadTx(ctx, pay.ID())
	require.NoError(t, err)
	assert.Equal(t, ter.Success, rec.Result)
	assert.Equal(t, "Payment", rec.TxType)
	assert.Contains(t, rec.Meta, `"TransactionResult":"tesSUCCESS"`)
	decoded, err := rec.Tx()
	require.NoError(t, err)
	assert.Equal(t, pay.ID(), decoded.ID())

	history, err := s.ReadHistory(ctx, accountOf("alice"))
	require.NoError(t, err)
	assert.Len(t, history, 1)

	restored, err := Restore(ctx, a, s)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), restored.LastClosed().Seq())
	assert.Equal(t, res.Ledger.StateHash(), restored.LastClosed().StateHash())
	assert.Equal(t, uint32(50), restored.closeTime)
	assert.Greater(t, restored.clock.Next(), res.Passes[0].Outcomes[0].Seq)
}

func TestEngine_RestoreEmptyJournal(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = Restore(context.Background(), testApp(), s)
	require.Error(t, err)
	assert.True(t, IsRestoreError(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEngine_StopRejectsRequests(t *testing.T) {
	e := New(testApp(), genesis(t, nil), 0)
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	_, err := e.Close(context.Background(), 10)
	assert.True(t, IsStoppedError(err))
	_, err = e.Submit(context.Background(), payment(t, "alice", "bob", 1, 10), tx.TapNone)
	assert.True(t, IsStoppedError(err))
}

func TestEngine_RunReturnsOnCancel(t *testing.T) {
	e := New(testApp(), genesis(t, nil), 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestGuarded_RecoversPanic(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	code, applied := guarded(log, payment(t, "alice", "bob", 1, 10), func() (ter.Code, bool) {
		panic("boom")
	})
	assert.Equal(t, ter.TefException, code)
	assert.False(t, applied)
}

func TestCompareCandidates(t *testing.T) {
	a1 := candidate{tx: payment(t, "alice", "bob", 1, 10)}
	a2 := candidate{tx: payment(t, "alice", "bob", 2, 10)}
	b1 := candidate{tx: payment(t, "bob", "alice", 1, 10)}

	assert.Negative(t, compareCandidates(a1, a2))
	assert.Positive(t, compareCandidates(a2, a1))
	assert.Zero(t, compareCandidates(a1, a1))

	aa, ba := accountOf("alice"), accountOf("bob")
	want := bytes.Compare(aa[:], ba[:])
	assert.Equal(t, want, compareCandidates(a2, b1))
}

func TestEngineError(t *testing.T) {
	err := journalError(7, "write pass", assert.AnError)
	assert.Equal(t, "JOURNAL: write pass (ledger=7): "+assert.AnError.Error(), err.Error())
	assert.True(t, IsJournalError(err))
	assert.False(t, IsStoppedError(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "STOPPED: engine stopped", errStopped().Error())
}
