package protocol

import (
	"slices"
	"sort"
)

// FeatureID returns the amendment identifier for a feature name.
func FeatureID(name string) Hash256 {
	return SHA512Half([]byte(name))
}

// Known amendments.
var (
	FeatureRequireFullyCanonicalSig = FeatureID("RequireFullyCanonicalSig")
	FeatureTicketBatch              = FeatureID("TicketBatch")
	FeatureChecks                   = FeatureID("Checks")
	FixPreviousTxnID                = FeatureID("fixPreviousTxnID")
)

var featureNames = map[Hash256]string{
	FeatureRequireFullyCanonicalSig: "RequireFullyCanonicalSig",
	FeatureTicketBatch:              "TicketBatch",
	FeatureChecks:                   "Checks",
	FixPreviousTxnID:                "fixPreviousTxnID",
}

// FeatureByName resolves a known amendment name.
func FeatureByName(name string) (Hash256, bool) {
	for id, n := range featureNames {
		if n == name {
			return id, true
		}
	}
	return Hash256{}, false
}

// FeatureName returns the name of a known amendment, or its hex ID.
func FeatureName(id Hash256) string {
	if n, ok := featureNames[id]; ok {
		return n
	}
	return id.String()
}

// Rules is the immutable set of amendments enabled for one ledger.
type Rules struct {
	enabled []Hash256 // sorted
}

// NewRules builds a rule set from enabled amendment IDs.
func NewRules(features ...Hash256) Rules {
	enabled := slices.Clone(features)
	sort.Slice(enabled, func(i, j int) bool {
		return slices.Compare(enabled[i][:], enabled[j][:]) < 0
	})
	return Rules{enabled: slices.Compact(enabled)}
}

// Enabled reports whether an amendment is active.
func (r Rules) Enabled(feature Hash256) bool {
	_, found := slices.BinarySearchFunc(r.enabled, feature, func(a, b Hash256) int {
		return slices.Compare(a[:], b[:])
	})
	return found
}

// Equal reports whether both rule sets enable exactly the same amendments.
func (r Rules) Equal(other Rules) bool {
	return slices.Equal(r.enabled, other.enabled)
}

// Features returns the enabled amendment IDs in sorted order.
func (r Rules) Features() []Hash256 {
	return slices.Clone(r.enabled)
}
