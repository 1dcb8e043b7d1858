// Package protocol provides the object model shared by every stage of the
// transaction pipeline.
//
// This package contains no ledger or pipeline logic. All other internal
// packages import protocol; protocol imports only ter. It provides:
//
//   - Primitive values: Hash256, AccountID, Drops
//   - Typed fields (SField) and field objects (Object) with per-field kinds
//   - Templates describing required/optional fields, and the format registry
//     that maps entry and transaction types to templates. Formats are declared
//     in formats.cue and compiled once at process start; the registry is
//     read-only afterwards.
//   - Keylets: the (type, key) identity of a ledger entry
//   - Tx: an immutable, signed transaction with a content-hash identity
//   - LedgerEntry: a typed, templated ledger state object with the
//     previous-transaction back-pointer chain (Thread)
//   - Binary and canonical-JSON encodings used for identity and persistence
//
// Key design constraints:
//   - A Tx is never mutated after construction
//   - A LedgerEntry's type never changes after construction
//   - Unknown entry types and template violations are FatalError values, not
//     silently malformed objects
package protocol
