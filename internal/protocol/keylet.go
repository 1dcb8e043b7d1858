package protocol

import "encoding/binary"

// Keylet is the identity of a ledger entry: its type and 256-bit key.
// Two keylets with the same key must have the same type.
type Keylet struct {
	Type LedgerEntryType
	Key  Hash256
}

// ledger key namespaces
const (
	spaceAccount     uint16 = 'a'
	spaceOwnerDir    uint16 = 'O'
	spaceTicket      uint16 = 'T'
	spaceCheck       uint16 = 'C'
	spaceAmendments  uint16 = 'f'
	spaceFees        uint16 = 'e'
	spaceNegativeUNL uint16 = 'N'
	spaceSkip        uint16 = 's'
	spaceAMM         uint16 = 'A'
)

func indexHash(space uint16, parts ...[]byte) Hash256 {
	var ns [2]byte
	binary.BigEndian.PutUint16(ns[:], space)
	return SHA512Half(append([][]byte{ns[:]}, parts...)...)
}

func u32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// AccountKeylet locates an account root.
func AccountKeylet(id AccountID) Keylet {
	return Keylet{Type: LtAccountRoot, Key: indexHash(spaceAccount, id[:])}
}

// OwnerDirKeylet locates the root page of an account's owner directory.
func OwnerDirKeylet(id AccountID) Keylet {
	return Keylet{Type: LtDirectoryNode, Key: indexHash(spaceOwnerDir, id[:])}
}

// TicketKeylet locates the ticket an account created at seq.
func TicketKeylet(id AccountID, seq uint32) Keylet {
	return Keylet{Type: LtTicket, Key: indexHash(spaceTicket, id[:], u32(seq))}
}

// CheckKeylet locates the check an account created at seq.
func CheckKeylet(id AccountID, seq uint32) Keylet {
	return Keylet{Type: LtCheck, Key: indexHash(spaceCheck, id[:], u32(seq))}
}

// CheckKeyletFromKey wraps a known check key.
func CheckKeyletFromKey(key Hash256) Keylet {
	return Keylet{Type: LtCheck, Key: key}
}

// AmendmentsKeylet locates the singleton amendments entry.
func AmendmentsKeylet() Keylet {
	return Keylet{Type: LtAmendments, Key: indexHash(spaceAmendments)}
}

// FeesKeylet locates the singleton fee settings entry.
func FeesKeylet() Keylet {
	return Keylet{Type: LtFeeSettings, Key: indexHash(spaceFees)}
}

// NegativeUNLKeylet locates the singleton negative UNL entry.
func NegativeUNLKeylet() Keylet {
	return Keylet{Type: LtNegativeUNL, Key: indexHash(spaceNegativeUNL)}
}

// SkipKeylet locates the recent ledger hashes entry.
func SkipKeylet() Keylet {
	return Keylet{Type: LtLedgerHashes, Key: indexHash(spaceSkip)}
}

// AMMKeylet locates an AMM instance by its pool identifier.
func AMMKeylet(pool Hash256) Keylet {
	return Keylet{Type: LtAMM, Key: indexHash(spaceAMM, pool[:])}
}
