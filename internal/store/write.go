package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/txgate/internal/protocol"
)

// ErrReadOnly is returned by writes to a store opened with ReadOnly.
var ErrReadOnly = errors.New("journal opened read-only")

// WritePass records a close pass and the outcome of every transaction it
// attempted, atomically.
//
// Uses ON CONFLICT DO NOTHING for idempotency: rewriting a pass with the
// same token leaves the first write in place.
func (s *Store) WritePass(ctx context.Context, pass PassRecord, results []ResultRecord) error {
	if s.readOnly {
		return fmt.Errorf("write pass: %w", ErrReadOnly)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write pass: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO close_passes
		(id, ledger_seq, pass, seq, applied, retried, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		pass.ID,
		pass.LedgerSeq,
		pass.Pass,
		pass.Seq,
		pass.Applied,
		pass.Retried,
		pass.Failed,
	)
	if err != nil {
		return fmt.Errorf("write pass %s: %w", pass.ID, err)
	}

	for _, r := range results {
		if err := writeResult(ctx, tx, pass.ID, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write pass %s: commit: %w", pass.ID, err)
	}
	return nil
}

func writeResult(ctx context.Context, tx *sql.Tx, passID string, r ResultRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tx_results
		(pass_id, tx_id, ledger_seq, seq, account, tx_type, result, applied, tx_blob, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		passID,
		r.TxID.String(),
		r.LedgerSeq,
		r.Seq,
		r.Account.String(),
		r.TxType,
		r.Result.Token(),
		r.Applied,
		r.Blob,
		nullString(r.Meta),
	)
	if err != nil {
		return fmt.Errorf("write result %s: %w", r.TxID, err)
	}
	return nil
}

// WriteLedger records a closed ledger and a snapshot of its entries,
// atomically.
func (s *Store) WriteLedger(ctx context.Context, rec LedgerRecord, entries []*protocol.LedgerEntry) error {
	if s.readOnly {
		return fmt.Errorf("write ledger: %w", ErrReadOnly)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write ledger: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers
		(seq, state_hash, parent_close_time, close_time, tx_count)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.Seq,
		rec.StateHash.String(),
		rec.ParentCloseTime,
		rec.CloseTime,
		rec.TxCount,
	)
	if err != nil {
		return fmt.Errorf("write ledger %d: %w", rec.Seq, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (ledger_seq, key, entry_type, data)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write ledger %d: prepare: %w", rec.Seq, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		key := e.Key()
		if _, err := stmt.ExecContext(ctx, rec.Seq, key.String(), e.Type().String(), e.Bytes()); err != nil {
			return fmt.Errorf("write entry %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write ledger %d: commit: %w", rec.Seq, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
