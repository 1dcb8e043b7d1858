package ledger

import (
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// NodeKind names how a transaction affected an entry.
type NodeKind string

const (
	CreatedNode  NodeKind = "CreatedNode"
	ModifiedNode NodeKind = "ModifiedNode"
	DeletedNode  NodeKind = "DeletedNode"
)

// AffectedNode describes one entry a transaction touched.
type AffectedNode struct {
	Kind            NodeKind
	LedgerEntryType protocol.LedgerEntryType
	LedgerIndex     protocol.Hash256

	// Set when the entry was threaded away from an earlier transaction.
	PreviousTxnID     protocol.Hash256
	PreviousTxnLgrSeq uint32

	NewFields      *protocol.Object // CreatedNode
	FinalFields    *protocol.Object // ModifiedNode, DeletedNode
	PreviousFields *protocol.Object // ModifiedNode: prior values of changed fields
}

// Metadata is the outcome record of one applied transaction.
type Metadata struct {
	TransactionIndex  uint32
	TransactionResult ter.Code
	AffectedNodes     []AffectedNode
	DeliveredAmount   *protocol.Drops
}

// JSONValue renders the node as {"<Kind>": {...}}.
func (n AffectedNode) JSONValue() any {
	body := map[string]any{
		"LedgerEntryType": n.LedgerEntryType.String(),
		"LedgerIndex":     n.LedgerIndex.String(),
	}
	if !n.PreviousTxnID.IsZero() {
		body["PreviousTxnID"] = n.PreviousTxnID.String()
		body["PreviousTxnLgrSeq"] = int64(n.PreviousTxnLgrSeq)
	}
	if n.NewFields != nil && n.NewFields.Len() > 0 {
		body["NewFields"] = n.NewFields.JSONValue()
	}
	if n.FinalFields != nil && n.FinalFields.Len() > 0 {
		body["FinalFields"] = n.FinalFields.JSONValue()
	}
	if n.PreviousFields != nil && n.PreviousFields.Len() > 0 {
		body["PreviousFields"] = n.PreviousFields.JSONValue()
	}
	return map[string]any{string(n.Kind): body}
}

// JSONValue renders the metadata in the generic JSON form.
func (m *Metadata) JSONValue() any {
	nodes := make([]any, len(m.AffectedNodes))
	for i, n := range m.AffectedNodes {
		nodes[i] = n.JSONValue()
	}
	out := map[string]any{
		"AffectedNodes":     nodes,
		"TransactionIndex":  int64(m.TransactionIndex),
		"TransactionResult": m.TransactionResult.Token(),
	}
	if m.DeliveredAmount != nil {
		out["delivered_amount"] = m.DeliveredAmount.String()
	}
	return out
}

// MarshalJSON renders the metadata as canonical JSON.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	return protocol.MarshalCanonical(m.JSONValue())
}

// metadata fields never listed in NewFields, FinalFields or PreviousFields.
func skipInMeta(f *protocol.SField) bool {
	return f == protocol.FieldLedgerEntryType ||
		f == protocol.FieldPreviousTxnID ||
		f == protocol.FieldPreviousTxnLgrSeq
}

func newFields(e *protocol.LedgerEntry) *protocol.Object {
	out := protocol.NewObject()
	for _, f := range e.Fields() {
		v, _ := e.Get(f)
		if skipInMeta(f) || protocol.IsDefaultValue(v) {
			continue
		}
		out.Set(f, v)
	}
	return out
}

func finalFields(e *protocol.LedgerEntry) *protocol.Object {
	out := protocol.NewObject()
	for _, f := range e.Fields() {
		if skipInMeta(f) {
			continue
		}
		v, _ := e.Get(f)
		out.Set(f, v)
	}
	return out
}

func previousFields(orig, cur *protocol.LedgerEntry) *protocol.Object {
	out := protocol.NewObject()
	for _, f := range orig.Fields() {
		if skipInMeta(f) {
			continue
		}
		ov, _ := orig.Get(f)
		cv, present := cur.Get(f)
		if !present || !protocol.ValuesEqual(ov, cv) {
			out.Set(f, ov)
		}
	}
	return out
}
