package protocol

import (
	"crypto/sha512"
	"encoding/binary"
)

// HashPrefix separates the hash domains of different serialized objects.
type HashPrefix uint32

func makePrefix(a, b, c byte) HashPrefix {
	return HashPrefix(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8)
}

var (
	// PrefixTransactionID prefixes a signed transaction when computing its ID.
	PrefixTransactionID = makePrefix('T', 'X', 'N')
	// PrefixTxSign prefixes the signing serialization of a transaction.
	PrefixTxSign = makePrefix('S', 'T', 'X')
	// PrefixLedgerState prefixes the digest of a whole ledger state.
	PrefixLedgerState = makePrefix('M', 'L', 'N')
)

// Bytes returns the 4-byte big-endian prefix.
func (p HashPrefix) Bytes() []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(p))
	return b[:]
}

// SHA512Half returns the first 256 bits of SHA-512 over the concatenated parts.
func SHA512Half(parts ...[]byte) Hash256 {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}
