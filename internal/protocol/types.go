package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Hash256 is a 256-bit identifier: transaction IDs, ledger keys, amendment IDs.
type Hash256 [32]byte

// ZeroHash is the all-zero Hash256.
var ZeroHash Hash256

// String renders the hash as 64 uppercase hex characters.
func (h Hash256) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// IsZero reports whether every byte is zero.
func (h Hash256) IsZero() bool { return h == ZeroHash }

// MarshalText implements encoding.TextMarshaler.
func (h Hash256) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash256) UnmarshalText(data []byte) error {
	parsed, err := ParseHash256(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash256 parses 64 hex characters (either case).
func ParseHash256(s string) (Hash256, error) {
	var h Hash256
	if len(s) != 64 {
		return h, fmt.Errorf("hash256: expected 64 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("hash256: %w", err)
	}
	return h, nil
}

// AccountID identifies an account. It is derived from the account's master
// public key.
type AccountID [20]byte

// ZeroAccount is the all-zero account. Pseudo-transactions use it as their
// source account.
var ZeroAccount AccountID

// String renders the account as 40 uppercase hex characters.
func (a AccountID) String() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// IsZero reports whether every byte is zero.
func (a AccountID) IsZero() bool { return a == ZeroAccount }

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(data []byte) error {
	parsed, err := ParseAccountID(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAccountID parses 40 hex characters (either case).
func ParseAccountID(s string) (AccountID, error) {
	var a AccountID
	if len(s) != 40 {
		return a, fmt.Errorf("account: expected 40 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("account: %w", err)
	}
	return a, nil
}

// AccountIDFromPublicKey derives the account controlled by a public key:
// the first 20 bytes of SHA-256 over the key bytes.
func AccountIDFromPublicKey(pub []byte) AccountID {
	sum := sha256.Sum256(pub)
	var a AccountID
	copy(a[:], sum[:20])
	return a
}

// Drops is an amount of the native asset in its smallest unit.
// All arithmetic is integer-only.
type Drops int64

// String renders drops as a base-10 integer, the external representation
// of native amounts.
func (d Drops) String() string { return strconv.FormatInt(int64(d), 10) }

// ParseDrops parses a base-10 drop amount.
func ParseDrops(s string) (Drops, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("drops: %w", err)
	}
	return Drops(v), nil
}

// MaxDrops is the total native supply; no legal amount exceeds it.
const MaxDrops Drops = 100_000_000_000_000_000
