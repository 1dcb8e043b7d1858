// Package harness runs end-to-end scenarios through the engine.
//
// A scenario funds a genesis ledger, submits signed transactions, closes
// ledgers and then asserts on the final state and the journal. Runs are
// deterministic: accounts are derived from their names, pass tokens come
// from a numbered generator and every stamp comes from the engine's
// logical clock. The resulting trace is compared against golden files.
//
// # Scenario Format
//
//	name: payment_creates_account
//	description: "A funded payment creates its destination"
//	fees: { base: 10, reserve: 200, increment: 50 }
//	amendments: [TicketBatch]
//	accounts:
//	  alice: 1000
//	steps:
//	  - submit:
//	      id: pay
//	      type: Payment
//	      account: alice
//	      fields: { Destination: carol, Amount: 300 }
//	      expect: { result: tesSUCCESS, queued: true }
//	  - close:
//	      time: 10
//	      expect: { passes: 1, results: { pay: tesSUCCESS } }
//	assertions:
//	  - { type: balance, account: carol, expect: 300 }
//	  - { type: previous_txn, account: carol, tx: pay }
//
// Field values accept shorthands: an account name where an account is
// expected, an amendment name where a hash is expected, "$id" for the hash
// of an earlier transaction and "check:id" for the check an earlier
// CheckCreate made.
//
// # Assertion Types
//
//   - balance, sequence, owner_count: fields of an account root
//   - exists: whether an account root exists
//   - previous_txn: the transaction last threaded to an account root
//   - result: the final journaled result of a transaction
//   - history: the number of journaled outcomes sent by an account
//   - tx_count: transactions in the last closed ledger
//   - amendment: whether an amendment is enabled
package harness
