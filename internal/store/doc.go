// Package store provides SQLite-backed durable storage for the close journal.
//
// The journal is append-only:
//   - Ledgers: one row per closed ledger with its state hash and close time
//   - Close passes: one row per pass over a ledger's candidate set
//   - Results: one row per transaction outcome in a pass, with metadata
//   - Ledger entries: a full state snapshot per closed ledger
//
// # Ordering
//
// Every pass and result carries a seq from the engine's logical clock. All
// queries order by seq ASC, then by a binary-collated id, so reads are
// identical across runs. Wall-clock time is never used for ordering.
//
// # Opening
//
// A read-write Open puts the database in WAL mode with synchronous=NORMAL,
// creates the schema and runs pending migrations. ReadOnly skips all of
// that, requires an already current schema and sets query_only. Both wait
// on locks for the busy timeout (5s unless WithBusyTimeout says otherwise).
//
// Entries are stored in their binary encoding and rebuilt through the
// protocol format registry on load.
package store
