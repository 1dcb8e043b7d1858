package ledger

import (
	"bytes"
	"sort"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// AppliedTx records one transaction committed to a ledger.
type AppliedTx struct {
	Tx   *protocol.Tx
	Meta *Metadata
}

// Ledger is the committed state for one ledger sequence.
type Ledger struct {
	seq             uint32
	open            bool
	parentCloseTime uint32
	defaultFees     Fees
	state           map[protocol.Hash256]*protocol.LedgerEntry
	txs             []AppliedTx
}

// New returns an empty open ledger. defaultFees apply until a FeeSettings
// entry exists.
func New(seq uint32, defaultFees Fees) *Ledger {
	return &Ledger{
		seq:         seq,
		open:        true,
		defaultFees: defaultFees,
		state:       make(map[protocol.Hash256]*protocol.LedgerEntry),
	}
}

func (l *Ledger) Seq() uint32             { return l.seq }
func (l *Ledger) Open() bool              { return l.open }
func (l *Ledger) ParentCloseTime() uint32 { return l.parentCloseTime }

// SetOpen marks the ledger open (accepting submissions) or closing.
// Pseudo-transactions only apply to a closing ledger.
func (l *Ledger) SetOpen(open bool) { l.open = open }

// SetParentCloseTime sets the close time, in seconds, of the parent ledger.
func (l *Ledger) SetParentCloseTime(t uint32) { l.parentCloseTime = t }

// Rules returns the amendments enabled by this ledger's Amendments entry.
func (l *Ledger) Rules() protocol.Rules {
	e := l.entry(protocol.AmendmentsKeylet())
	if e == nil {
		return protocol.NewRules()
	}
	return protocol.NewRules(e.Vector256(protocol.FieldAmendments)...)
}

// Fees returns the schedule from the FeeSettings entry, or the defaults.
func (l *Ledger) Fees() Fees {
	e := l.entry(protocol.FeesKeylet())
	if e == nil {
		return l.defaultFees
	}
	return Fees{
		Base:      protocol.Drops(e.Uint64(protocol.FieldBaseFee)),
		Reserve:   protocol.Drops(e.Uint32(protocol.FieldReserveBase)),
		Increment: protocol.Drops(e.Uint32(protocol.FieldReserveIncrement)),
	}
}

// Read returns a copy of the entry, or nil when absent or of another type.
func (l *Ledger) Read(k protocol.Keylet) *protocol.LedgerEntry {
	if e := l.entry(k); e != nil {
		return e.Clone()
	}
	return nil
}

// Exists reports whether an entry of the keylet's type is stored at its key.
func (l *Ledger) Exists(k protocol.Keylet) bool { return l.entry(k) != nil }

func (l *Ledger) entry(k protocol.Keylet) *protocol.LedgerEntry {
	e, ok := l.state[k.Key]
	if !ok || e.Type() != k.Type {
		return nil
	}
	return e
}

// Put stores an entry directly, bypassing transaction processing. It is
// used to build genesis state and to load persisted state.
func (l *Ledger) Put(e *protocol.LedgerEntry) {
	l.state[e.Key()] = e.Clone()
}

// Entries returns copies of every entry ordered by key.
func (l *Ledger) Entries() []*protocol.LedgerEntry {
	out := make([]*protocol.LedgerEntry, 0, len(l.state))
	for _, e := range l.state {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key(), out[j].Key()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.state) }

// Transactions returns the transactions applied to this ledger in order.
func (l *Ledger) Transactions() []AppliedTx {
	out := make([]AppliedTx, len(l.txs))
	copy(out, l.txs)
	return out
}

// StateHash digests every entry, in key order, under the ledger-state prefix.
func (l *Ledger) StateHash() protocol.Hash256 {
	parts := [][]byte{protocol.PrefixLedgerState.Bytes()}
	for _, e := range l.Entries() {
		key := e.Key()
		parts = append(parts, key[:], e.Bytes())
	}
	return protocol.SHA512Half(parts...)
}

// Successor returns the next open ledger sharing this ledger's state.
// Entries are never mutated in place, so the map copy is shallow.
func (l *Ledger) Successor(closeTime uint32) *Ledger {
	next := New(l.seq+1, l.defaultFees)
	next.parentCloseTime = closeTime
	for k, e := range l.state {
		next.state[k] = e
	}
	return next
}

func (l *Ledger) commit(tx *protocol.Tx, meta *Metadata) {
	l.txs = append(l.txs, AppliedTx{Tx: tx, Meta: meta})
}

// TxExists reports whether the transaction was applied to this ledger.
func (l *Ledger) TxExists(id protocol.Hash256) bool {
	_, ok := l.Result(id)
	return ok
}

// Result returns the recorded result of a transaction applied to this
// ledger.
func (l *Ledger) Result(id protocol.Hash256) (ter.Code, bool) {
	for _, at := range l.txs {
		if at.Tx.ID() == id {
			return at.Meta.TransactionResult, true
		}
	}
	return ter.Code{}, false
}
