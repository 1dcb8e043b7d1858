package protocol

import (
	"fmt"
	"slices"
	"strings"
)

// LedgerEntry is a typed, templated ledger state object. It embeds its
// fields; LedgerEntryType cannot be rewritten through the embedded setters.
type LedgerEntry struct {
	*Object
	key    Hash256
	format *EntryFormat
}

// NewLedgerEntry creates an entry for a keylet with every required field set
// to its default. An unregistered type is a FatalError.
func NewLedgerEntry(k Keylet) (*LedgerEntry, error) {
	format, ok := DefaultFormats().Entry(k.Type)
	if !ok {
		return nil, &FatalError{
			Code:    ErrCodeUnknownEntryType,
			Message: fmt.Sprintf("no format for ledger entry type 0x%04x", uint16(k.Type)),
		}
	}
	obj := format.Template.instantiate()
	obj.fields[FieldLedgerEntryType] = uint16(k.Type)
	obj.typeLocked = true
	return &LedgerEntry{Object: obj, key: k.Key, format: format}, nil
}

// LedgerEntryFromBytes decodes a serialized entry stored under key. The type
// is read from the entry's own LedgerEntryType field and the template is
// enforced.
func LedgerEntryFromBytes(data []byte, key Hash256) (*LedgerEntry, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return LedgerEntryFromObject(obj, key)
}

// LedgerEntryFromObject binds a copy of obj to the template of its own
// LedgerEntryType.
func LedgerEntryFromObject(obj *Object, key Hash256) (*LedgerEntry, error) {
	if !obj.Has(FieldLedgerEntryType) {
		return nil, &FatalError{Code: ErrCodeTemplate, Message: "missing LedgerEntryType", Field: FieldLedgerEntryType.Name}
	}
	t := LedgerEntryType(obj.Uint16(FieldLedgerEntryType))
	format, ok := DefaultFormats().Entry(t)
	if !ok {
		return nil, &FatalError{
			Code:    ErrCodeUnknownEntryType,
			Message: fmt.Sprintf("no format for ledger entry type 0x%04x", uint16(t)),
		}
	}
	c := obj.Clone()
	c.template = nil
	c.typeLocked = false
	if err := c.ApplyTemplate(format.Template); err != nil {
		return nil, err
	}
	c.typeLocked = true
	return &LedgerEntry{Object: c, key: key, format: format}, nil
}

func (e *LedgerEntry) Key() Hash256          { return e.key }
func (e *LedgerEntry) Type() LedgerEntryType { return e.format.Type }
func (e *LedgerEntry) Format() *EntryFormat  { return e.format }
func (e *LedgerEntry) Keylet() Keylet        { return Keylet{Type: e.format.Type, Key: e.key} }

// Clone returns an independent copy of the entry.
func (e *LedgerEntry) Clone() *LedgerEntry {
	return &LedgerEntry{Object: e.Object.Clone(), key: e.key, format: e.format}
}

// Equal reports whether both entries share a key and hold equal fields.
func (e *LedgerEntry) Equal(other *LedgerEntry) bool {
	return e.key == other.key && e.Object.Equal(other.Object)
}

// IsThreadedType reports whether this entry type carries the
// previous-transaction chain under rules. Types in the fixPreviousTxnID set
// only thread once that amendment is enabled; types without PreviousTxnID
// never do.
func (e *LedgerEntry) IsThreadedType(rules Rules) bool {
	excluded := !rules.Enabled(FixPreviousTxnID) && slices.Contains(fixPreviousTxnIDTypes, e.format.Type)
	return !excluded && e.format.Template.Index(FieldPreviousTxnID) >= 0
}

// Thread points the entry at the transaction that just touched it. When
// the entry already points at txID it is left unchanged and threaded is
// false. Otherwise the former pointer is returned for metadata. Callers
// check IsThreadedType first.
func (e *LedgerEntry) Thread(txID Hash256, ledgerSeq uint32) (prevTxID Hash256, prevLedgerSeq uint32, threaded bool) {
	old := e.Hash256(FieldPreviousTxnID)
	if e.Has(FieldPreviousTxnID) && old == txID {
		return Hash256{}, 0, false
	}
	prevTxID = old
	prevLedgerSeq = e.Uint32(FieldPreviousTxnLgrSeq)
	e.SetHash256(FieldPreviousTxnID, txID)
	e.SetUint32(FieldPreviousTxnLgrSeq, ledgerSeq)
	return prevTxID, prevLedgerSeq, true
}

// Text renders the key and field values.
func (e *LedgerEntry) Text() string {
	return fmt.Sprintf("{ %s, %s }", e.key, e.Object.Text())
}

// FullText renders the key, type name, and named field values.
func (e *LedgerEntry) FullText() string {
	return fmt.Sprintf("%q = { %s, %s }", e.key.String(), e.format.Name, e.Object.FullText())
}

// JSONValue renders the entry's fields plus its key as "index".
func (e *LedgerEntry) JSONValue() any {
	m := e.Object.JSON()
	m["index"] = e.key.String()
	return m
}

// JSON is JSONValue with a concrete map type.
func (e *LedgerEntry) JSON() map[string]any {
	return e.JSONValue().(map[string]any)
}

// MarshalJSON renders the entry as canonical JSON.
func (e *LedgerEntry) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(e.JSONValue())
}

// Text renders field values in canonical order.
func (o *Object) Text() string {
	parts := make([]string, 0, len(o.fields))
	for _, f := range o.Fields() {
		parts = append(parts, textValue(f, o.fields[f]))
	}
	return strings.Join(parts, ", ")
}

// FullText renders "Name = value" pairs in canonical order.
func (o *Object) FullText() string {
	parts := make([]string, 0, len(o.fields))
	for _, f := range o.Fields() {
		parts = append(parts, f.Name+" = "+textValue(f, o.fields[f]))
	}
	return strings.Join(parts, ", ")
}

func textValue(f *SField, v any) string {
	switch val := v.(type) {
	case *Object:
		return "{" + val.FullText() + "}"
	case []*Object:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = "{" + el.FullText() + "}"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []Hash256:
		parts := make([]string, len(val))
		for i, h := range val {
			parts[i] = h.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(fieldJSON(f, v))
}
