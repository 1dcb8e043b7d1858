// Package ter defines the closed family of transaction result codes.
//
// Every phase of the admission pipeline reports its verdict as a Code. Codes
// are opaque values: callers classify them only through the category
// predicates (IsLocal, IsMalformed, IsFailure, IsRetry, IsSuccess, IsTecClaim)
// and never through numeric ranges.
//
// Categories, from least to most final:
//
//	tel  local error; this node will not process the transaction right now
//	tem  malformed; can never succeed in any ledger
//	tef  failure; cannot succeed against this ledger and claims no fee
//	ter  retry; might succeed later (e.g. a sequence gap)
//	tes  success
//	tec  claimed a fee but the primary effect did not happen
//
// The numeric values match the wire values used in transaction metadata so a
// code survives a round trip through the journal.
package ter
