package protocol

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
)

// KeyPrefixEd25519 marks a 33-byte ed25519 signing key.
const KeyPrefixEd25519 byte = 0xED

// MaxMemoSize is the default limit on the serialized size of a Memos array.
const MaxMemoSize = 1024

// SeqProxy is either an account sequence number or a ticket sequence.
type SeqProxy struct {
	ticket bool
	value  uint32
}

func SequenceProxy(v uint32) SeqProxy { return SeqProxy{value: v} }
func TicketProxy(v uint32) SeqProxy   { return SeqProxy{ticket: true, value: v} }

func (s SeqProxy) IsTicket() bool { return s.ticket }
func (s SeqProxy) Value() uint32  { return s.value }

// Less orders sequences before tickets, then by value.
func (s SeqProxy) Less(o SeqProxy) bool {
	if s.ticket != o.ticket {
		return !s.ticket
	}
	return s.value < o.value
}

func (s SeqProxy) String() string {
	if s.ticket {
		return fmt.Sprintf("ticket %d", s.value)
	}
	return fmt.Sprintf("sequence %d", s.value)
}

// Tx is an immutable transaction. Its identity is the SHA-512Half of its
// full serialization under the TXN prefix.
type Tx struct {
	obj    *Object
	format *TxFormat
	id     Hash256
}

// NewTx validates obj against its transaction template and freezes a copy.
func NewTx(obj *Object) (*Tx, error) {
	if !obj.Has(FieldTransactionType) {
		return nil, &FatalError{Code: ErrCodeTemplate, Message: "missing TransactionType", Field: FieldTransactionType.Name}
	}
	tt := TxType(obj.Uint16(FieldTransactionType))
	format, ok := DefaultFormats().Tx(tt)
	if !ok {
		return nil, &FatalError{Code: ErrCodeUnknownTxType, Message: fmt.Sprintf("no format for transaction type %d", uint16(tt))}
	}
	frozen := obj.Clone()
	frozen.template = nil
	if err := frozen.ApplyTemplate(format.Template); err != nil {
		return nil, err
	}
	return &Tx{
		obj:    frozen,
		format: format,
		id:     SHA512Half(PrefixTransactionID.Bytes(), frozen.Bytes()),
	}, nil
}

// TxFromBytes decodes and validates a serialized transaction.
func TxFromBytes(data []byte) (*Tx, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return NewTx(obj)
}

// TxFromJSON builds a transaction from its generic JSON form.
func TxFromJSON(m map[string]any) (*Tx, error) {
	obj, err := ParseObject(m)
	if err != nil {
		return nil, err
	}
	return NewTx(obj)
}

// Sign sets SigningPubKey and TxnSignature on a copy of obj using an ed25519
// key and returns the resulting transaction.
func Sign(obj *Object, priv ed25519.PrivateKey) (*Tx, error) {
	signed := obj.Clone()
	signed.template = nil
	pub := priv.Public().(ed25519.PublicKey)
	signed.SetBlob(FieldSigningPubKey, append([]byte{KeyPrefixEd25519}, pub...))
	signed.Remove(FieldTxnSignature)
	msg := append(PrefixTxSign.Bytes(), signed.SigningBytes()...)
	signed.SetBlob(FieldTxnSignature, ed25519.Sign(priv, msg))
	return NewTx(signed)
}

func (t *Tx) ID() Hash256           { return t.id }
func (t *Tx) Type() TxType          { return t.format.Type }
func (t *Tx) Format() *TxFormat     { return t.format }
func (t *Tx) IsPseudo() bool        { return t.format.Pseudo }
func (t *Tx) Account() AccountID    { return t.obj.Account(FieldAccount) }
func (t *Tx) Fee() Drops            { return t.obj.Amount(FieldFee) }
func (t *Tx) Flags() uint32         { return t.obj.Uint32(FieldFlags) }
func (t *Tx) Bytes() []byte         { return t.obj.Bytes() }
func (t *Tx) SigningPubKey() []byte { return t.obj.Blob(FieldSigningPubKey) }

// SeqProxy returns the ticket when Sequence is zero and TicketSequence is
// present, otherwise the account sequence.
func (t *Tx) SeqProxy() SeqProxy {
	seq := t.obj.Uint32(FieldSequence)
	if seq == 0 && t.obj.Has(FieldTicketSequence) {
		return TicketProxy(t.obj.Uint32(FieldTicketSequence))
	}
	return SequenceProxy(seq)
}

// Read-only field access.

func (t *Tx) Has(f *SField) bool               { return t.obj.Has(f) }
func (t *Tx) Uint16(f *SField) uint16          { return t.obj.Uint16(f) }
func (t *Tx) Uint32(f *SField) uint32          { return t.obj.Uint32(f) }
func (t *Tx) Uint64(f *SField) uint64          { return t.obj.Uint64(f) }
func (t *Tx) Hash256(f *SField) Hash256        { return t.obj.Hash256(f) }
func (t *Tx) Amount(f *SField) Drops           { return t.obj.Amount(f) }
func (t *Tx) Blob(f *SField) []byte            { return t.obj.Blob(f) }
func (t *Tx) AccountField(f *SField) AccountID { return t.obj.Account(f) }
func (t *Tx) Vector256(f *SField) []Hash256    { return t.obj.Vector256(f) }

// Object returns a mutable copy of the transaction's fields.
func (t *Tx) Object() *Object {
	c := t.obj.Clone()
	c.template = nil
	return c
}

// JSON renders the transaction with its hash.
func (t *Tx) JSON() map[string]any {
	m := t.obj.JSON()
	m["hash"] = t.id.String()
	return m
}

// MarshalJSON renders the transaction as canonical JSON.
func (t *Tx) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(t.JSON())
}

var (
	errEmptySigningKey = errors.New("Empty SigningPubKey.")
	errUnsupportedKey  = errors.New("Unsupported key type.")
	errNonCanonicalSig = errors.New("Non-canonical signature.")
	errInvalidSig      = errors.New("Invalid signature.")
)

// CheckSign verifies the single signature. With requireCanonical the
// signature's S scalar must be fully reduced.
func (t *Tx) CheckSign(requireCanonical bool) error {
	pub := t.obj.Blob(FieldSigningPubKey)
	if len(pub) == 0 {
		return errEmptySigningKey
	}
	if len(pub) != 1+ed25519.PublicKeySize || pub[0] != KeyPrefixEd25519 {
		return errUnsupportedKey
	}
	sig := t.obj.Blob(FieldTxnSignature)
	if len(sig) != ed25519.SignatureSize {
		return errInvalidSig
	}
	if requireCanonical && sig[63]&0xE0 != 0 {
		return errNonCanonicalSig
	}
	msg := append(PrefixTxSign.Bytes(), t.obj.SigningBytes()...)
	if !ed25519.Verify(ed25519.PublicKey(pub[1:]), msg, sig) {
		return errInvalidSig
	}
	return nil
}

const memoURLChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~:/?#[]@!$&'()*+,;=%"

// PassesLocalChecks applies the structural checks a node performs before
// relaying: pseudo transactions are never accepted from outside, and memos
// must be small and well-formed. It returns a reason on failure.
func PassesLocalChecks(tx *Tx, maxMemoSize int) (string, bool) {
	if tx.IsPseudo() {
		return "Cannot submit pseudo transactions.", false
	}
	if !tx.obj.Has(FieldMemos) {
		return "", true
	}
	memos := tx.obj.Array(FieldMemos)
	var buf bytes.Buffer
	writeValue(&buf, FieldMemos, memos, false)
	if buf.Len() > maxMemoSize {
		return "The memo exceeds the maximum allowed size.", false
	}
	for _, memo := range memos {
		if memo.name != FieldMemo {
			return "A memo array may contain only Memo objects.", false
		}
		for _, f := range memo.Fields() {
			switch f {
			case FieldMemoData:
			case FieldMemoType, FieldMemoFormat:
				for _, c := range string(memo.Blob(f)) {
					if !strings.ContainsRune(memoURLChars, c) {
						return "The MemoType and MemoFormat fields may only contain characters that are allowed in URLs under RFC 3986.", false
					}
				}
			default:
				return "A memo may contain only MemoType, MemoData or MemoFormat fields.", false
			}
		}
	}
	return "", true
}
