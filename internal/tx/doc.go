// Package tx runs the three admission phases for a transaction.
//
//	Preflight(app, rules, tx, flags, log) -> PreflightResult
//	Preclaim(pf, app, view)               -> PreclaimResult
//	DoApply(pc, app, ledger)              -> (code, applied)
//
// Each phase consumes the result of the one before it. Result types have
// only unexported fields, so the sole way to obtain a PreclaimResult is to
// run Preclaim on a PreflightResult, which in turn only Preflight produces.
//
// Preflight touches no ledger state and may run on many goroutines at once.
// Preclaim reads a view that must not change underneath it. DoApply is the
// only phase that writes, and the caller must serialise DoApply calls
// against the same ledger.
//
// Per-type behavior lives in a transactor: Payment, AccountSet,
// SetRegularKey, TicketCreate, CheckCreate, CheckCancel, and the
// EnableAmendment and SetFee pseudo-transactions.
package tx
