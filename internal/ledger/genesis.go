package ledger

import (
	"fmt"

	"github.com/roach88/txgate/internal/protocol"
)

// GenesisAccount funds one account in a genesis ledger.
type GenesisAccount struct {
	ID      protocol.AccountID
	Balance protocol.Drops
}

// Genesis builds closed ledger 1 holding the given accounts, each at
// sequence 1, and an Amendments entry when rules enable any feature.
func Genesis(fees Fees, rules protocol.Rules, accounts ...GenesisAccount) (*Ledger, error) {
	l := New(1, fees)
	l.SetOpen(false)

	for _, acct := range accounts {
		k := protocol.AccountKeylet(acct.ID)
		if l.Exists(k) {
			return nil, fmt.Errorf("genesis: duplicate account %s", acct.ID)
		}
		root, err := protocol.NewLedgerEntry(k)
		if err != nil {
			return nil, err
		}
		root.SetAccount(protocol.FieldAccount, acct.ID)
		root.SetUint32(protocol.FieldSequence, 1)
		root.SetAmount(protocol.FieldBalance, acct.Balance)
		l.Put(root)
	}

	if features := rules.Features(); len(features) > 0 {
		am, err := protocol.NewLedgerEntry(protocol.AmendmentsKeylet())
		if err != nil {
			return nil, err
		}
		am.SetVector256(protocol.FieldAmendments, features)
		l.Put(am)
	}
	return l, nil
}
