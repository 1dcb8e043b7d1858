package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txgate/internal/harness"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/tx"
)

// GenesisFile describes the first ledger of a new journal.
//
//	close_time: 0
//	amendments: [TicketBatch]
//	accounts:
//	  alice: 100000000
//	  5E7B112523F68D2F5E879DB4EAC51C6698A69304: 25000000   # hex account ID
type GenesisFile struct {
	CloseTime  uint32           `yaml:"close_time"`
	Amendments []string         `yaml:"amendments"`
	Accounts   map[string]int64 `yaml:"accounts"`
}

// BatchFile lists transactions to submit, and for apply, the time at which
// the ledger closes.
type BatchFile struct {
	CloseTime    uint32    `yaml:"close_time"`
	Transactions []BatchTx `yaml:"transactions"`
}

// BatchTx is one transaction. Either Blob holds a signed transaction in
// hex, or the remaining fields describe one to build and sign with the
// key derived from Account (or Signer).
type BatchTx struct {
	Blob string `yaml:"blob,omitempty"`

	Type     string         `yaml:"type,omitempty"`
	Account  string         `yaml:"account,omitempty"`
	Signer   string         `yaml:"signer,omitempty"`
	Sequence *uint32        `yaml:"sequence,omitempty"`
	Ticket   uint32         `yaml:"ticket,omitempty"`
	Fee      *int64         `yaml:"fee,omitempty"`
	Fields   map[string]any `yaml:"fields,omitempty"`
	Flags    []string       `yaml:"flags,omitempty"`
}

func decodeStrict(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read "+path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse "+path, err)
	}
	return nil
}

// LoadGenesis reads a genesis file.
func LoadGenesis(path string) (*GenesisFile, error) {
	var g GenesisFile
	if err := decodeStrict(path, &g); err != nil {
		return nil, err
	}
	if len(g.Accounts) == 0 {
		return nil, NewExitError(ExitCommandError, path+": at least one account is required")
	}
	for _, name := range g.Amendments {
		if _, ok := protocol.FeatureByName(name); !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: unknown amendment %q", path, name))
		}
	}
	return &g, nil
}

// accounts returns the genesis accounts ordered by name.
func (g *GenesisFile) accounts() ([]string, []ledger.GenesisAccount) {
	names := make([]string, 0, len(g.Accounts))
	for name := range g.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ledger.GenesisAccount, len(names))
	for i, name := range names {
		out[i] = ledger.GenesisAccount{ID: accountID(name), Balance: protocol.Drops(g.Accounts[name])}
	}
	return names, out
}

// accountID accepts a hex account ID or a key seed name.
func accountID(s string) protocol.AccountID {
	if id, err := protocol.ParseAccountID(s); err == nil {
		return id
	}
	return protocol.AccountFromSeed(s)
}

// LoadBatch reads a batch file.
func LoadBatch(path string) (*BatchFile, error) {
	var b BatchFile
	if err := decodeStrict(path, &b); err != nil {
		return nil, err
	}
	if len(b.Transactions) == 0 {
		return nil, NewExitError(ExitCommandError, path+": no transactions")
	}
	for i, t := range b.Transactions {
		if _, err := tx.ParseApplyFlags(t.Flags...); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: transactions[%d]", path, i), err)
		}
	}
	return &b, nil
}

type built struct {
	tx    *protocol.Tx
	flags tx.ApplyFlags
}

// build signs every transaction. Sequences that are not given continue
// from each account's root in view, in file order.
func (b *BatchFile) build(view ledger.ReadView, baseFee int64) ([]built, error) {
	next := make(map[protocol.AccountID]uint32)
	out := make([]built, 0, len(b.Transactions))
	for i, bt := range b.Transactions {
		t, err := bt.build(view, baseFee, next)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("transactions[%d]", i), err)
		}
		flags, _ := tx.ParseApplyFlags(bt.Flags...)
		out = append(out, built{tx: t, flags: flags})
	}
	return out, nil
}

func (bt BatchTx) build(view ledger.ReadView, baseFee int64, next map[protocol.AccountID]uint32) (*protocol.Tx, error) {
	if bt.Blob != "" {
		data, err := hex.DecodeString(bt.Blob)
		if err != nil {
			return nil, fmt.Errorf("blob: %w", err)
		}
		return protocol.TxFromBytes(data)
	}

	tf, ok := protocol.DefaultFormats().TxByName(bt.Type)
	if !ok {
		return nil, fmt.Errorf("unknown transaction type %q", bt.Type)
	}
	fields := map[string]any{"TransactionType": bt.Type}
	for name, raw := range bt.Fields {
		fields[name] = harness.ResolveField(name, raw)
	}
	o, err := protocol.ParseObject(fields)
	if err != nil {
		return nil, err
	}
	if tf.Pseudo {
		return nil, fmt.Errorf("%s is a pseudo-transaction and cannot be submitted", bt.Type)
	}
	if bt.Account == "" {
		return nil, fmt.Errorf("account is required")
	}

	account := protocol.AccountFromSeed(bt.Account)
	o.SetAccount(protocol.FieldAccount, account)
	switch {
	case bt.Sequence != nil:
		o.SetUint32(protocol.FieldSequence, *bt.Sequence)
	case bt.Ticket != 0:
		o.SetUint32(protocol.FieldSequence, 0)
	default:
		seq, ok := next[account]
		if !ok {
			root := view.Read(protocol.AccountKeylet(account))
			if root == nil {
				return nil, fmt.Errorf("account %s (%s) not found; give a sequence", bt.Account, account)
			}
			seq = root.Uint32(protocol.FieldSequence)
		}
		o.SetUint32(protocol.FieldSequence, seq)
		next[account] = seq + 1
	}
	if bt.Ticket != 0 {
		o.SetUint32(protocol.FieldTicketSequence, bt.Ticket)
	}
	fee := baseFee
	if bt.Fee != nil {
		fee = *bt.Fee
	}
	o.SetAmount(protocol.FieldFee, protocol.Drops(fee))

	signer := bt.Signer
	if signer == "" {
		signer = bt.Account
	}
	return protocol.Sign(o, protocol.KeyFromSeed(signer))
}
