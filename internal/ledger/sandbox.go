package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

type action uint8

const (
	actCache action = iota
	actInsert
	actModify
	actErase
)

type item struct {
	act   action
	entry *protocol.LedgerEntry
	orig  *protocol.LedgerEntry // committed version; nil for inserts
}

// Sandbox buffers one transaction's mutations over a Ledger.
type Sandbox struct {
	base      *Ledger
	items     map[protocol.Hash256]*item
	delivered *protocol.Drops
}

// NewSandbox opens a sandbox over l.
func NewSandbox(l *Ledger) *Sandbox {
	return &Sandbox{base: l, items: make(map[protocol.Hash256]*item)}
}

func (s *Sandbox) Seq() uint32             { return s.base.Seq() }
func (s *Sandbox) Open() bool              { return s.base.Open() }
func (s *Sandbox) ParentCloseTime() uint32 { return s.base.ParentCloseTime() }
func (s *Sandbox) Rules() protocol.Rules   { return s.base.Rules() }
func (s *Sandbox) Fees() Fees              { return s.base.Fees() }

func (s *Sandbox) Read(k protocol.Keylet) *protocol.LedgerEntry {
	if e := s.Peek(k); e != nil {
		return e.Clone()
	}
	return nil
}

func (s *Sandbox) Exists(k protocol.Keylet) bool     { return s.Peek(k) != nil }
func (s *Sandbox) TxExists(id protocol.Hash256) bool { return s.base.TxExists(id) }

// Peek returns the sandbox's working copy of an entry.
func (s *Sandbox) Peek(k protocol.Keylet) *protocol.LedgerEntry {
	if it, ok := s.items[k.Key]; ok {
		if it.act == actErase || it.entry.Type() != k.Type {
			return nil
		}
		return it.entry
	}
	committed := s.base.entry(k)
	if committed == nil {
		return nil
	}
	e := committed.Clone()
	s.items[k.Key] = &item{act: actCache, entry: e, orig: committed}
	return e
}

func logicError(op string, e *protocol.LedgerEntry) *protocol.FatalError {
	return &protocol.FatalError{
		Code:    protocol.ErrCodeTemplate,
		Message: fmt.Sprintf("%s: invalid state for %s %s", op, e.Type(), e.Key()),
	}
}

// Insert adds a new entry.
func (s *Sandbox) Insert(e *protocol.LedgerEntry) {
	if it, ok := s.items[e.Key()]; ok {
		if it.act != actErase {
			panic(logicError("insert", e))
		}
		it.act, it.entry = actModify, e
		return
	}
	if _, exists := s.base.state[e.Key()]; exists {
		panic(logicError("insert", e))
	}
	s.items[e.Key()] = &item{act: actInsert, entry: e}
}

// Update marks a peeked or inserted entry as modified.
func (s *Sandbox) Update(e *protocol.LedgerEntry) {
	it, ok := s.items[e.Key()]
	if !ok || it.act == actErase {
		panic(logicError("update", e))
	}
	it.entry = e
	if it.act == actCache {
		it.act = actModify
	}
}

// Erase deletes a peeked or inserted entry.
func (s *Sandbox) Erase(e *protocol.LedgerEntry) {
	it, ok := s.items[e.Key()]
	if !ok || it.act == actErase {
		panic(logicError("erase", e))
	}
	if it.act == actInsert {
		delete(s.items, e.Key())
		return
	}
	it.act, it.entry = actErase, e
}

// SetDeliveredAmount records the amount a payment delivered.
func (s *Sandbox) SetDeliveredAmount(d protocol.Drops) { s.delivered = &d }

// Discard drops every buffered mutation.
func (s *Sandbox) Discard() {
	s.items = make(map[protocol.Hash256]*item)
	s.delivered = nil
}

// Apply commits the buffered mutations to the base ledger, threads the
// affected entries to tx, and records the transaction with its metadata.
func (s *Sandbox) Apply(tx *protocol.Tx, result ter.Code) *Metadata {
	rules := s.base.Rules()
	txID, seq := tx.ID(), s.base.Seq()

	meta := &Metadata{
		TransactionIndex:  uint32(len(s.base.txs)),
		TransactionResult: result,
		DeliveredAmount:   s.delivered,
	}

	s.threadOwners()

	keys := make([]protocol.Hash256, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })

	for _, key := range keys {
		it := s.items[key]
		switch it.act {
		case actCache:
			continue

		case actInsert:
			node := AffectedNode{Kind: CreatedNode, LedgerEntryType: it.entry.Type(), LedgerIndex: key}
			if it.entry.IsThreadedType(rules) {
				it.entry.Thread(txID, seq)
			}
			node.NewFields = newFields(it.entry)
			meta.AffectedNodes = append(meta.AffectedNodes, node)
			s.base.state[key] = it.entry

		case actModify:
			node := AffectedNode{Kind: ModifiedNode, LedgerEntryType: it.entry.Type(), LedgerIndex: key}
			if it.entry.IsThreadedType(rules) {
				if prev, prevSeq, threaded := it.entry.Thread(txID, seq); threaded && !prev.IsZero() {
					node.PreviousTxnID, node.PreviousTxnLgrSeq = prev, prevSeq
				}
			}
			node.FinalFields = finalFields(it.entry)
			node.PreviousFields = previousFields(it.orig, it.entry)
			meta.AffectedNodes = append(meta.AffectedNodes, node)
			s.base.state[key] = it.entry

		case actErase:
			node := AffectedNode{
				Kind:            DeletedNode,
				LedgerEntryType: it.entry.Type(),
				LedgerIndex:     key,
				FinalFields:     finalFields(it.entry),
			}
			if it.entry.Has(protocol.FieldPreviousTxnID) {
				node.PreviousTxnID = it.entry.Hash256(protocol.FieldPreviousTxnID)
				node.PreviousTxnLgrSeq = it.entry.Uint32(protocol.FieldPreviousTxnLgrSeq)
			}
			meta.AffectedNodes = append(meta.AffectedNodes, node)
			delete(s.base.state, key)
		}
	}

	s.base.commit(tx, meta)
	s.items = make(map[protocol.Hash256]*item)
	s.delivered = nil
	return meta
}

// threadOwners marks the account roots owning created or deleted objects as
// modified so their history chain records the transaction.
func (s *Sandbox) threadOwners() {
	var owners []protocol.AccountID
	for _, it := range s.items {
		if it.act != actInsert && it.act != actErase {
			continue
		}
		if it.entry.Type() == protocol.LtAccountRoot || !it.entry.Has(protocol.FieldAccount) {
			continue
		}
		owners = append(owners, it.entry.Account(protocol.FieldAccount))
	}
	for _, owner := range owners {
		if root := s.Peek(protocol.AccountKeylet(owner)); root != nil {
			s.Update(root)
		}
	}
}
