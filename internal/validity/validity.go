package validity

import (
	"github.com/roach88/txgate/internal/protocol"
)

// Validity is how far a transaction has been verified.
type Validity uint8

const (
	// SigBad: the signature is invalid.
	SigBad Validity = iota
	// SigGoodOnly: the signature is valid but local checks failed.
	SigGoodOnly
	// Valid: both the signature and local checks passed.
	Valid
)

func (v Validity) String() string {
	switch v {
	case SigBad:
		return "SigBad"
	case SigGoodOnly:
		return "SigGoodOnly"
	case Valid:
		return "Valid"
	default:
		return "Validity(?)"
	}
}

// Checker holds the verification functions consulted on a cache miss.
type Checker struct {
	// VerifySignature returns an error describing why the signature is bad.
	VerifySignature func(tx *protocol.Tx, requireCanonical bool) error
	// LocalChecks returns a reason and false when the transaction fails.
	LocalChecks func(tx *protocol.Tx) (string, bool)
}

// NewChecker returns the standard checker with the given memo size limit.
func NewChecker(maxMemoSize int) Checker {
	return Checker{
		VerifySignature: func(tx *protocol.Tx, requireCanonical bool) error {
			return tx.CheckSign(requireCanonical)
		},
		LocalChecks: func(tx *protocol.Tx) (string, bool) {
			return protocol.PassesLocalChecks(tx, maxMemoSize)
		},
	}
}

var defaultChecker = NewChecker(protocol.MaxMemoSize)

// Check determines the validity of tx, consulting and updating cache. The
// signature is verified at most once per cache entry lifetime, and likewise
// the local checks.
func (ck Checker) Check(cache *Cache, tx *protocol.Tx, rules protocol.Rules) (Validity, string) {
	id := tx.ID()
	flags := cache.Flags(id)
	if flags.Has(FlagSigBad) {
		return SigBad, "Transaction has bad signature."
	}

	if !flags.Has(FlagSigGood) {
		requireCanonical := rules.Enabled(protocol.FeatureRequireFullyCanonicalSig)
		if err := ck.VerifySignature(tx, requireCanonical); err != nil {
			cache.Set(id, FlagSigBad)
			return SigBad, err.Error()
		}
		cache.Set(id, FlagSigGood)
	}

	if flags.Has(FlagLocalBad) {
		return SigGoodOnly, "Local checks failed."
	}
	if flags.Has(FlagLocalGood) {
		return Valid, ""
	}

	if reason, ok := ck.LocalChecks(tx); !ok {
		cache.Set(id, FlagLocalBad)
		return SigGoodOnly, reason
	}
	cache.Set(id, FlagLocalGood)
	return Valid, ""
}

// CheckValidity runs Check with the standard checker.
func CheckValidity(cache *Cache, tx *protocol.Tx, rules protocol.Rules) (Validity, string) {
	return defaultChecker.Check(cache, tx, rules)
}

// ForceValidity records a verdict reached elsewhere, such as a transaction
// already included in a validated ledger. SigBad records nothing.
func ForceValidity(cache *Cache, id protocol.Hash256, v Validity) {
	switch v {
	case Valid:
		cache.Set(id, FlagLocalGood|FlagSigGood)
	case SigGoodOnly:
		cache.Set(id, FlagSigGood)
	}
}
