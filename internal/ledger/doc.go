// Package ledger holds ledger state and the views transactions read and
// write through.
//
// A Ledger is the committed state for one sequence number: a map from key to
// LedgerEntry, the fee schedule, and the amendment rules derived from its own
// Amendments and FeeSettings entries.
//
// Transactions never write a Ledger directly. Each application runs in a
// Sandbox layered over the ledger; the sandbox is either applied (mutations
// committed, affected entries threaded, metadata recorded) or discarded.
//
// Single-writer discipline: one Sandbox is applied or discarded before the
// next is opened against the same Ledger. Ledger is not safe for concurrent
// mutation.
package ledger
