package ledger

import (
	"github.com/roach88/txgate/internal/protocol"
)

// Fees is the fee schedule of a ledger.
type Fees struct {
	Base      protocol.Drops // reference transaction cost
	Reserve   protocol.Drops // account reserve
	Increment protocol.Drops // reserve per owned object
}

// AccountReserve returns the balance an account owning ownerCount objects
// must keep.
func (f Fees) AccountReserve(ownerCount uint32) protocol.Drops {
	return f.Reserve + protocol.Drops(ownerCount)*f.Increment
}

// ReadView is read-only access to ledger state. Read returns a copy the
// caller may modify freely.
type ReadView interface {
	Seq() uint32
	Open() bool
	ParentCloseTime() uint32
	Rules() protocol.Rules
	Fees() Fees
	Read(k protocol.Keylet) *protocol.LedgerEntry
	Exists(k protocol.Keylet) bool
	TxExists(id protocol.Hash256) bool
}

// ApplyView is a ReadView that a transactor mutates.
//
// Peek returns the view's own copy of an entry; changes to it take effect
// once Update is called. Insert, Update and Erase panic with a
// protocol.FatalError when used against the wrong state (inserting an
// existing key, updating an entry never peeked).
type ApplyView interface {
	ReadView
	Peek(k protocol.Keylet) *protocol.LedgerEntry
	Insert(e *protocol.LedgerEntry)
	Update(e *protocol.LedgerEntry)
	Erase(e *protocol.LedgerEntry)
	SetDeliveredAmount(d protocol.Drops)
}
