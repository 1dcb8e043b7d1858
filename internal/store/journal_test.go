package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

func TestWriteLedger_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entries := []*protocol.LedgerEntry{
		createTestEntry(t, testAccount(1), 500),
		createTestEntry(t, testAccount(2), 900),
	}
	rec := LedgerRecord{Seq: 4, StateHash: protocol.Hash256{0xAA}, ParentCloseTime: 10, CloseTime: 20, TxCount: 3}
	if err := s.WriteLedger(ctx, rec, entries); err != nil {
		t.Fatalf("WriteLedger() failed: %v", err)
	}

	got, err := s.ReadLedger(ctx, 4)
	if err != nil {
		t.Fatalf("ReadLedger() failed: %v", err)
	}
	if got != rec {
		t.Errorf("ReadLedger() = %+v, want %+v", got, rec)
	}

	loaded, err := s.LoadEntries(ctx, 4)
	if err != nil {
		t.Fatalf("LoadEntries() failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadEntries() returned %d entries, want 2", len(loaded))
	}
	byKey := map[protocol.Hash256]*protocol.LedgerEntry{}
	for _, e := range entries {
		byKey[e.Key()] = e
	}
	for _, e := range loaded {
		want, ok := byKey[e.Key()]
		if !ok {
			t.Fatalf("unexpected entry %s", e.Key())
		}
		if !e.Equal(want) {
			t.Errorf("entry %s = %s, want %s", e.Key(), e.Text(), want.Text())
		}
	}

	accounts, err := s.LoadEntriesOfType(ctx, 4, protocol.LtAccountRoot)
	if err != nil {
		t.Fatalf("LoadEntriesOfType() failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("LoadEntriesOfType(AccountRoot) returned %d entries, want 2", len(accounts))
	}
	tickets, err := s.LoadEntriesOfType(ctx, 4, protocol.LtTicket)
	if err != nil {
		t.Fatalf("LoadEntriesOfType() failed: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("LoadEntriesOfType(Ticket) returned %d entries, want 0", len(tickets))
	}
}

func TestWriteLedger_DuplicateSeqFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := LedgerRecord{Seq: 4}

	if err := s.WriteLedger(ctx, rec, nil); err != nil {
		t.Fatalf("first WriteLedger() failed: %v", err)
	}
	if err := s.WriteLedger(ctx, rec, nil); err == nil {
		t.Error("second WriteLedger() succeeded, want error")
	}
}

func TestLatestLedger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestLedger(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestLedger() on empty journal = %v, want ErrNotFound", err)
	}

	for _, seq := range []uint32{3, 5, 4} {
		if err := s.WriteLedger(ctx, LedgerRecord{Seq: seq}, nil); err != nil {
			t.Fatalf("WriteLedger(%d) failed: %v", seq, err)
		}
	}
	got, err := s.LatestLedger(ctx)
	if err != nil {
		t.Fatalf("LatestLedger() failed: %v", err)
	}
	if got.Seq != 5 {
		t.Errorf("LatestLedger().Seq = %d, want 5", got.Seq)
	}
}

func TestWritePass_RecordsResults(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	alice, bob := testAccount(1), testAccount(2)
	tx1 := createTestTx(t, alice, 1)
	tx2 := createTestTx(t, bob, 7)
	tx3 := createTestTx(t, alice, 2)

	r1 := createTestResult(t, tx1, 4, 2)
	r1.Result, r1.Applied, r1.Meta = ter.Success, true, `{"TransactionResult":"tesSUCCESS"}`
	r2 := createTestResult(t, tx2, 4, 3)
	r2.Result = ter.TerPreSeq
	r3 := createTestResult(t, tx3, 4, 4)
	r3.Result, r3.Applied = ter.TecUnfundedPayment, true

	pass := PassRecord{ID: "pass-1", LedgerSeq: 4, Pass: 1, Seq: 1, Applied: 2, Retried: 1}
	if err := s.WritePass(ctx, pass, []ResultRecord{r1, r2, r3}); err != nil {
		t.Fatalf("WritePass() failed: %v", err)
	}

	passes, err := s.ReadPasses(ctx, 4)
	if err != nil {
		t.Fatalf("ReadPasses() failed: %v", err)
	}
	if len(passes) != 1 || passes[0] != pass {
		t.Fatalf("ReadPasses() = %+v, want [%+v]", passes, pass)
	}

	history, err := s.ReadHistory(ctx, alice)
	if err != nil {
		t.Fatalf("ReadHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("ReadHistory() returned %d records, want 2", len(history))
	}
	if history[0].TxID != tx1.ID() || history[1].TxID != tx3.ID() {
		t.Errorf("ReadHistory() out of seq order")
	}
	if history[0].Result != ter.Success || !history[0].Applied {
		t.Errorf("first result = %s applied=%v, want tesSUCCESS applied", history[0].Result, history[0].Applied)
	}
	if history[0].Meta != r1.Meta {
		t.Errorf("Meta = %q, want %q", history[0].Meta, r1.Meta)
	}
	if history[1].Meta != "" {
		t.Errorf("Meta = %q, want empty", history[1].Meta)
	}
	if history[0].PassID != "pass-1" {
		t.Errorf("PassID = %q, want pass-1", history[0].PassID)
	}

	decoded, err := history[1].Tx()
	if err != nil {
		t.Fatalf("Tx() failed: %v", err)
	}
	if decoded.ID() != tx3.ID() {
		t.Errorf("decoded tx id = %s, want %s", decoded.ID(), tx3.ID())
	}

	all, err := s.ReadLedgerResults(ctx, 4)
	if err != nil {
		t.Fatalf("ReadLedgerResults() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ReadLedgerResults() returned %d records, want 3", len(all))
	}
}

func TestWritePass_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx := createTestTx(t, testAccount(1), 1)
	r := createTestResult(t, tx, 4, 2)
	r.Result = ter.TerPreSeq
	pass := PassRecord{ID: "pass-1", LedgerSeq: 4, Pass: 1, Seq: 1, Retried: 1}

	for range 2 {
		if err := s.WritePass(ctx, pass, []ResultRecord{r}); err != nil {
			t.Fatalf("WritePass() failed: %v", err)
		}
	}
	results, err := s.ReadLedgerResults(ctx, 4)
	if err != nil {
		t.Fatalf("ReadLedgerResults() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after rewrite, want 1", len(results))
	}
}

func TestReadTx_LatestOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tx := createTestTx(t, testAccount(1), 1)

	if _, err := s.ReadTx(ctx, tx.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadTx() before write = %v, want ErrNotFound", err)
	}

	retry := createTestResult(t, tx, 4, 2)
	retry.Result = ter.TerPreSeq
	if err := s.WritePass(ctx, PassRecord{ID: "p1", LedgerSeq: 4, Pass: 1, Seq: 1}, []ResultRecord{retry}); err != nil {
		t.Fatalf("WritePass(p1) failed: %v", err)
	}
	final := createTestResult(t, tx, 4, 4)
	final.Result, final.Applied = ter.Success, true
	if err := s.WritePass(ctx, PassRecord{ID: "p2", LedgerSeq: 4, Pass: 2, Seq: 3}, []ResultRecord{final}); err != nil {
		t.Fatalf("WritePass(p2) failed: %v", err)
	}

	got, err := s.ReadTx(ctx, tx.ID())
	if err != nil {
		t.Fatalf("ReadTx() failed: %v", err)
	}
	if got.Result != ter.Success || got.PassID != "p2" {
		t.Errorf("ReadTx() = %s in %s, want tesSUCCESS in p2", got.Result, got.PassID)
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 4 {
		t.Errorf("LastSeq() = %d, want 4", last)
	}
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	last, err := s.LastSeq(context.Background())
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 0 {
		t.Errorf("LastSeq() = %d, want 0", last)
	}
}
