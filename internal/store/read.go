package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// ErrNotFound is returned when a requested ledger or transaction is absent.
var ErrNotFound = errors.New("not found")

// LatestLedger returns the highest closed ledger recorded.
// Returns ErrNotFound on an empty journal.
func (s *Store) LatestLedger(ctx context.Context) (LedgerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, state_hash, parent_close_time, close_time, tx_count
		FROM ledgers
		ORDER BY seq DESC
		LIMIT 1
	`)
	return scanLedgerRow(row)
}

// ReadLedger returns the closed ledger with the given sequence.
// Returns ErrNotFound if it was never recorded.
func (s *Store) ReadLedger(ctx context.Context, seq uint32) (LedgerRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, state_hash, parent_close_time, close_time, tx_count
		FROM ledgers
		WHERE seq = ?
	`, seq)
	return scanLedgerRow(row)
}

func scanLedgerRow(row *sql.Row) (LedgerRecord, error) {
	var rec LedgerRecord
	var hash string
	err := row.Scan(&rec.Seq, &hash, &rec.ParentCloseTime, &rec.CloseTime, &rec.TxCount)
	if errors.Is(err, sql.ErrNoRows) {
		return LedgerRecord{}, ErrNotFound
	}
	if err != nil {
		return LedgerRecord{}, fmt.Errorf("scan ledger: %w", err)
	}
	if rec.StateHash, err = protocol.ParseHash256(hash); err != nil {
		return LedgerRecord{}, fmt.Errorf("scan ledger %d: %w", rec.Seq, err)
	}
	return rec, nil
}

// LoadEntries rebuilds the entry snapshot of a closed ledger, ordered by key.
// Each entry is re-validated against its format template.
func (s *Store) LoadEntries(ctx context.Context, ledgerSeq uint32) ([]*protocol.LedgerEntry, error) {
	return s.loadEntries(ctx, `
		SELECT key, data FROM ledger_entries
		WHERE ledger_seq = ?
		ORDER BY key COLLATE BINARY ASC
	`, ledgerSeq)
}

// LoadEntriesOfType is LoadEntries restricted to one entry type.
func (s *Store) LoadEntriesOfType(ctx context.Context, ledgerSeq uint32, t protocol.LedgerEntryType) ([]*protocol.LedgerEntry, error) {
	return s.loadEntries(ctx, `
		SELECT key, data FROM ledger_entries
		WHERE ledger_seq = ? AND entry_type = ?
		ORDER BY key COLLATE BINARY ASC
	`, ledgerSeq, t.String())
}

func (s *Store) loadEntries(ctx context.Context, query string, args ...any) ([]*protocol.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []*protocol.LedgerEntry{}
	for rows.Next() {
		var keyHex string
		var data []byte
		if err := rows.Scan(&keyHex, &data); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		key, err := protocol.ParseHash256(keyHex)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e, err := protocol.LedgerEntryFromBytes(data, key)
		if err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", keyHex, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// ReadPasses returns the passes recorded for a ledger in pass order.
func (s *Store) ReadPasses(ctx context.Context, ledgerSeq uint32) ([]PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ledger_seq, pass, seq, applied, retried, failed
		FROM close_passes
		WHERE ledger_seq = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, ledgerSeq)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []PassRecord{}
	for rows.Next() {
		var p PassRecord
		if err := rows.Scan(&p.ID, &p.LedgerSeq, &p.Pass, &p.Seq, &p.Applied, &p.Retried, &p.Failed); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

const resultColumns = `pass_id, tx_id, ledger_seq, seq, account, tx_type, result, applied, tx_blob, metadata`

// ReadHistory returns every recorded outcome for transactions sent by
// account, oldest first. A transaction retried across passes appears once
// per pass.
func (s *Store) ReadHistory(ctx context.Context, account protocol.AccountID) ([]ResultRecord, error) {
	return s.readResults(ctx, `
		SELECT `+resultColumns+` FROM tx_results
		WHERE account = ?
		ORDER BY seq ASC, tx_id COLLATE BINARY ASC
	`, account.String())
}

// ReadLedgerResults returns every outcome recorded while closing a ledger.
func (s *Store) ReadLedgerResults(ctx context.Context, ledgerSeq uint32) ([]ResultRecord, error) {
	return s.readResults(ctx, `
		SELECT `+resultColumns+` FROM tx_results
		WHERE ledger_seq = ?
		ORDER BY seq ASC, tx_id COLLATE BINARY ASC
	`, ledgerSeq)
}

// ReadTx returns the final recorded outcome of a transaction.
// Returns ErrNotFound if the transaction was never attempted.
func (s *Store) ReadTx(ctx context.Context, id protocol.Hash256) (ResultRecord, error) {
	results, err := s.readResults(ctx, `
		SELECT `+resultColumns+` FROM tx_results
		WHERE tx_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, id.String())
	if err != nil {
		return ResultRecord{}, err
	}
	if len(results) == 0 {
		return ResultRecord{}, ErrNotFound
	}
	return results[0], nil
}

func (s *Store) readResults(ctx context.Context, query string, args ...any) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ResultRecord{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func scanResult(rows *sql.Rows) (ResultRecord, error) {
	var (
		r             ResultRecord
		txID, account string
		result        string
		meta          sql.NullString
	)
	err := rows.Scan(&r.PassID, &txID, &r.LedgerSeq, &r.Seq, &account, &r.TxType, &result, &r.Applied, &r.Blob, &meta)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("scan result: %w", err)
	}
	if r.TxID, err = protocol.ParseHash256(txID); err != nil {
		return ResultRecord{}, fmt.Errorf("scan result: %w", err)
	}
	if r.Account, err = protocol.ParseAccountID(account); err != nil {
		return ResultRecord{}, fmt.Errorf("scan result %s: %w", txID, err)
	}
	if r.Result, err = ter.Parse(result); err != nil {
		return ResultRecord{}, fmt.Errorf("scan result %s: %w", txID, err)
	}
	r.Meta = meta.String
	return r, nil
}

// LastSeq returns the highest logical clock value recorded, or 0 for an
// empty journal. The engine resumes its clock from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM close_passes
			UNION ALL
			SELECT seq FROM tx_results
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
