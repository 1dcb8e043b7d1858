// Package validity caches signature and local-check verdicts per transaction.
//
// A verdict is a set of four latched bits. Once a bit is set it stays set
// for as long as the entry lives, so concurrent checkers can only move a
// transaction towards a final answer, never back. Eviction is the owner's
// policy: Cache.Sweep drops entries untouched for longer than a horizon.
package validity
