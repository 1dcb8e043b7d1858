package tx

import (
	"fmt"
	"strings"
)

// ApplyFlags modify how a transaction is processed.
type ApplyFlags uint32

const (
	TapNone ApplyFlags = 0x00

	// TapRetry marks a transaction that may be retried later in the same
	// close. A tec result under TapRetry is not final and claims nothing.
	TapRetry ApplyFlags = 0x20

	// TapPreferQueue asks for queueing over immediate application. It is
	// carried through the phases for the caller's benefit.
	TapPreferQueue ApplyFlags = 0x40

	// TapUnlimited exempts the transaction from the open-ledger load factor.
	TapUnlimited ApplyFlags = 0x400

	// TapDryRun runs every phase but commits nothing and skips signature
	// checks.
	TapDryRun ApplyFlags = 0x1000
)

// Has reports whether every flag in f is set.
func (a ApplyFlags) Has(f ApplyFlags) bool { return a&f == f }

var flagNames = []struct {
	f    ApplyFlags
	name string
}{
	{TapRetry, "tapRETRY"},
	{TapPreferQueue, "tapPREFER_QUEUE"},
	{TapUnlimited, "tapUNLIMITED"},
	{TapDryRun, "tapDRY_RUN"},
}

func (a ApplyFlags) String() string {
	if a == TapNone {
		return "tapNONE"
	}
	var parts []string
	for _, n := range flagNames {
		if a.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseApplyFlags combines flags named either as String renders them
// ("tapDRY_RUN") or in short form ("dry_run"), case-insensitively.
func ParseApplyFlags(names ...string) (ApplyFlags, error) {
	var out ApplyFlags
	for _, raw := range names {
		name := strings.ToUpper(raw)
		name = strings.TrimPrefix(name, "TAP")
		found := false
		for _, n := range flagNames {
			if strings.TrimPrefix(strings.ToUpper(n.name), "TAP") == name {
				out |= n.f
				found = true
				break
			}
		}
		if !found && name != "NONE" {
			return TapNone, fmt.Errorf("unknown apply flag %q", raw)
		}
	}
	return out, nil
}
