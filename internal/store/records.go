package store

import (
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// LedgerRecord summarises one closed ledger.
type LedgerRecord struct {
	Seq             uint32
	StateHash       protocol.Hash256
	ParentCloseTime uint32
	CloseTime       uint32
	TxCount         int
}

// PassRecord summarises one pass over a ledger's candidate set.
type PassRecord struct {
	ID        string // pass token
	LedgerSeq uint32
	Pass      int
	Seq       int64
	Applied   int
	Retried   int
	Failed    int
}

// ResultRecord is the outcome of one transaction in one pass. Meta is the
// canonical JSON metadata and is empty when nothing was applied.
type ResultRecord struct {
	PassID    string
	TxID      protocol.Hash256
	LedgerSeq uint32
	Seq       int64
	Account   protocol.AccountID
	TxType    string
	Result    ter.Code
	Applied   bool
	Blob      []byte
	Meta      string
}

// Tx decodes the stored transaction.
func (r ResultRecord) Tx() (*protocol.Tx, error) {
	return protocol.TxFromBytes(r.Blob)
}
