package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/txgate/internal/protocol"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccount(b byte) protocol.AccountID {
	var a protocol.AccountID
	for i := range a {
		a[i] = b
	}
	return a
}

// createTestEntry builds an AccountRoot with the given balance.
func createTestEntry(t *testing.T, id protocol.AccountID, balance protocol.Drops) *protocol.LedgerEntry {
	t.Helper()
	e, err := protocol.NewLedgerEntry(protocol.AccountKeylet(id))
	if err != nil {
		t.Fatalf("NewLedgerEntry() failed: %v", err)
	}
	e.SetAccount(protocol.FieldAccount, id)
	e.SetUint32(protocol.FieldSequence, 1)
	e.SetAmount(protocol.FieldBalance, balance)
	return e
}

// createTestTx builds an unsigned payment; the store only needs its bytes.
func createTestTx(t *testing.T, from protocol.AccountID, seq uint32) *protocol.Tx {
	t.Helper()
	o := protocol.NewObject()
	o.SetUint16(protocol.FieldTransactionType, uint16(protocol.TtPayment))
	o.SetAccount(protocol.FieldAccount, from)
	o.SetUint32(protocol.FieldSequence, seq)
	o.SetAmount(protocol.FieldFee, 10)
	o.SetBlob(protocol.FieldSigningPubKey, nil)
	o.SetAccount(protocol.FieldDestination, testAccount(0xEE))
	o.SetAmount(protocol.FieldAmount, 100)
	tx, err := protocol.NewTx(o)
	if err != nil {
		t.Fatalf("NewTx() failed: %v", err)
	}
	return tx
}

func createTestResult(t *testing.T, tx *protocol.Tx, ledgerSeq uint32, seq int64) ResultRecord {
	t.Helper()
	return ResultRecord{
		TxID:      tx.ID(),
		LedgerSeq: ledgerSeq,
		Seq:       seq,
		Account:   tx.Account(),
		TxType:    tx.Type().String(),
		Blob:      tx.Bytes(),
	}
}
