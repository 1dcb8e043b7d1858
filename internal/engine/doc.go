// Package engine drives ledger closes over the transaction pipeline.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Submissions and close requests are events on a FIFO queue. Run() dequeues
// them one at a time in a single goroutine, so the open ledger and the
// ledger being built are only ever touched by one writer.
//
// Submission:
// A submitted transaction must first be Valid in the validity cache; a bad
// signature or failed local check is refused before the pipeline. It is then
// applied provisionally to the open ledger for an immediate result. If it applied, or may succeed later (a ter code), it
// joins the candidate set for the next close.
//
// Close:
//  1. The candidate set is ordered by account, sequence proxy, then id
//  2. Each pass preflights the remaining candidates in parallel
//  3. Preclaim and DoApply run sequentially in candidate order
//  4. Transactions that may still succeed are retried in the next pass
//  5. The final pass drops TapRetry, so fee-claiming failures become final
//  6. Every pass and the closed ledger are journaled to the store
//  7. Validity cache entries older than the configured horizon are swept
//
// Ordering:
// Passes and results are stamped from a logical Clock, never wall time.
// Parallel preflight reads no ledger state, so the outcome of a close is
// independent of worker scheduling.
package engine
