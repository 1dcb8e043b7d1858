package tx

import (
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
)

// CalculateBaseFee returns the minimum fee for t on view before any load
// scaling. Pseudo-transactions and a first SetRegularKey signed with the
// master key are free. It panics only if t has no transactor.
func CalculateBaseFee(view ledger.ReadView, t *protocol.Tx) protocol.Drops {
	return mustTransactor(t).baseFee(view, t)
}

// CalculateDefaultBaseFee returns the reference fee of view, the cost of
// the cheapest transaction.
func CalculateDefaultBaseFee(view ledger.ReadView, _ *protocol.Tx) protocol.Drops {
	return view.Fees().Base
}
