package protocol

import (
	"fmt"
	"sort"
)

// FieldType is the serialized type of a field. Values match the wire type
// codes so the binary encoding is self-describing.
type FieldType uint8

const (
	TypeUInt16    FieldType = 1
	TypeUInt32    FieldType = 2
	TypeUInt64    FieldType = 3
	TypeHash256   FieldType = 5
	TypeAmount    FieldType = 6
	TypeBlob      FieldType = 7
	TypeAccount   FieldType = 8
	TypeObject    FieldType = 14
	TypeArray     FieldType = 15
	TypeUInt8     FieldType = 16
	TypeVector256 FieldType = 19
)

var fieldTypeNames = map[FieldType]string{
	TypeUInt16:    "UInt16",
	TypeUInt32:    "UInt32",
	TypeUInt64:    "UInt64",
	TypeHash256:   "Hash256",
	TypeAmount:    "Amount",
	TypeBlob:      "Blob",
	TypeAccount:   "AccountID",
	TypeObject:    "STObject",
	TypeArray:     "STArray",
	TypeUInt8:     "UInt8",
	TypeVector256: "Vector256",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// SField describes one named field. Fields are singletons: compare by pointer.
type SField struct {
	Name string
	Type FieldType
	Code uint8
}

func (f *SField) String() string { return f.Name }

// ordinal orders fields canonically: by type, then by code.
func (f *SField) ordinal() int { return int(f.Type)<<8 | int(f.Code) }

var (
	fieldsByName = make(map[string]*SField)
	fieldsByID   = make(map[int]*SField)
)

func newField(name string, typ FieldType, code uint8) *SField {
	f := &SField{Name: name, Type: typ, Code: code}
	if _, dup := fieldsByName[name]; dup {
		panic(fmt.Sprintf("protocol: duplicate field name %q", name))
	}
	if _, dup := fieldsByID[f.ordinal()]; dup {
		panic(fmt.Sprintf("protocol: duplicate field id %s/%d", typ, code))
	}
	fieldsByName[name] = f
	fieldsByID[f.ordinal()] = f
	return f
}

// LookupField returns the field with the given name.
func LookupField(name string) (*SField, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

func lookupFieldID(typ FieldType, code uint8) (*SField, bool) {
	f, ok := fieldsByID[int(typ)<<8|int(code)]
	return f, ok
}

// AllFields returns every known field in canonical order.
func AllFields() []*SField {
	out := make([]*SField, 0, len(fieldsByName))
	for _, f := range fieldsByName {
		out = append(out, f)
	}
	sortFields(out)
	return out
}

func sortFields(fields []*SField) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].ordinal() < fields[j].ordinal() })
}

// UInt8 fields.
var (
	FieldTransactionResult = newField("TransactionResult", TypeUInt8, 3)
)

// UInt16 fields.
var (
	FieldLedgerEntryType = newField("LedgerEntryType", TypeUInt16, 1)
	FieldTransactionType = newField("TransactionType", TypeUInt16, 2)
	FieldTradingFee      = newField("TradingFee", TypeUInt16, 5)
)

// UInt32 fields.
var (
	FieldNetworkID          = newField("NetworkID", TypeUInt32, 1)
	FieldFlags              = newField("Flags", TypeUInt32, 2)
	FieldSourceTag          = newField("SourceTag", TypeUInt32, 3)
	FieldSequence           = newField("Sequence", TypeUInt32, 4)
	FieldPreviousTxnLgrSeq  = newField("PreviousTxnLgrSeq", TypeUInt32, 5)
	FieldLedgerSequence     = newField("LedgerSequence", TypeUInt32, 6)
	FieldExpiration         = newField("Expiration", TypeUInt32, 10)
	FieldTransferRate       = newField("TransferRate", TypeUInt32, 11)
	FieldDestinationTag     = newField("DestinationTag", TypeUInt32, 14)
	FieldOwnerCount         = newField("OwnerCount", TypeUInt32, 17)
	FieldLastLedgerSequence = newField("LastLedgerSequence", TypeUInt32, 27)
	FieldReferenceFeeUnits  = newField("ReferenceFeeUnits", TypeUInt32, 30)
	FieldReserveBase        = newField("ReserveBase", TypeUInt32, 31)
	FieldReserveIncrement   = newField("ReserveIncrement", TypeUInt32, 32)
	FieldSetFlag            = newField("SetFlag", TypeUInt32, 33)
	FieldClearFlag          = newField("ClearFlag", TypeUInt32, 34)
	FieldTicketCount        = newField("TicketCount", TypeUInt32, 40)
	FieldTicketSequence     = newField("TicketSequence", TypeUInt32, 41)
)

// UInt64 fields.
var (
	FieldIndexNext       = newField("IndexNext", TypeUInt64, 1)
	FieldIndexPrevious   = newField("IndexPrevious", TypeUInt64, 2)
	FieldOwnerNode       = newField("OwnerNode", TypeUInt64, 4)
	FieldBaseFee         = newField("BaseFee", TypeUInt64, 5)
	FieldDestinationNode = newField("DestinationNode", TypeUInt64, 9)
)

// Hash256 fields.
var (
	FieldLedgerHash    = newField("LedgerHash", TypeHash256, 1)
	FieldPreviousTxnID = newField("PreviousTxnID", TypeHash256, 5)
	FieldRootIndex     = newField("RootIndex", TypeHash256, 8)
	FieldAccountTxnID  = newField("AccountTxnID", TypeHash256, 9)
	FieldInvoiceID     = newField("InvoiceID", TypeHash256, 17)
	FieldAmendment     = newField("Amendment", TypeHash256, 19)
	FieldCheckID       = newField("CheckID", TypeHash256, 24)
)

// Amount fields.
var (
	FieldAmount         = newField("Amount", TypeAmount, 1)
	FieldBalance        = newField("Balance", TypeAmount, 2)
	FieldFee            = newField("Fee", TypeAmount, 8)
	FieldSendMax        = newField("SendMax", TypeAmount, 9)
	FieldDeliverMin     = newField("DeliverMin", TypeAmount, 10)
	FieldLPTokenBalance = newField("LPTokenBalance", TypeAmount, 31)
)

// Blob fields.
var (
	FieldPublicKey           = newField("PublicKey", TypeBlob, 1)
	FieldSigningPubKey       = newField("SigningPubKey", TypeBlob, 3)
	FieldTxnSignature        = newField("TxnSignature", TypeBlob, 4)
	FieldDomain              = newField("Domain", TypeBlob, 7)
	FieldMemoType            = newField("MemoType", TypeBlob, 12)
	FieldMemoData            = newField("MemoData", TypeBlob, 13)
	FieldMemoFormat          = newField("MemoFormat", TypeBlob, 14)
	FieldValidatorToDisable  = newField("ValidatorToDisable", TypeBlob, 20)
	FieldValidatorToReEnable = newField("ValidatorToReEnable", TypeBlob, 21)
)

// Account fields.
var (
	FieldAccount     = newField("Account", TypeAccount, 1)
	FieldOwner       = newField("Owner", TypeAccount, 2)
	FieldDestination = newField("Destination", TypeAccount, 3)
	FieldRegularKey  = newField("RegularKey", TypeAccount, 8)
)

// Object and array fields.
var (
	FieldMemo  = newField("Memo", TypeObject, 10)
	FieldMemos = newField("Memos", TypeArray, 9)
)

// Vector256 fields.
var (
	FieldIndexes    = newField("Indexes", TypeVector256, 1)
	FieldHashes     = newField("Hashes", TypeVector256, 2)
	FieldAmendments = newField("Amendments", TypeVector256, 3)
)
