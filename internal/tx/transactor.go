package tx

import (
	"fmt"
	"log/slog"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

type preflightContext struct {
	app   *app.Application
	rules protocol.Rules
	tx    *protocol.Tx
	flags ApplyFlags
	log   *slog.Logger
}

type preclaimContext struct {
	app   *app.Application
	view  ledger.ReadView
	tx    *protocol.Tx
	flags ApplyFlags
	log   *slog.Logger
}

type applyContext struct {
	app     *app.Application
	view    *ledger.Sandbox
	tx      *protocol.Tx
	flags   ApplyFlags
	log     *slog.Logger
	baseFee protocol.Drops

	// priorBalance is the sender's balance before the fee was charged.
	priorBalance protocol.Drops
}

// transactor is the per-type behavior behind the three phases. Common
// checks run before preflight and preclaim; doApply runs after the fee has
// been charged and the sequence consumed.
type transactor interface {
	// requiredFeature names an amendment the type cannot run without.
	requiredFeature() (protocol.Hash256, bool)
	preflight(ctx *preflightContext) ter.Code
	preclaim(ctx *preclaimContext) ter.Code
	doApply(ctx *applyContext) ter.Code
	consequences(t *protocol.Tx) Consequences
	baseFee(view ledger.ReadView, t *protocol.Tx) protocol.Drops
}

func transactorFor(t protocol.TxType) (transactor, bool) {
	switch t {
	case protocol.TtPayment:
		return payment{}, true
	case protocol.TtAccountSet:
		return accountSet{}, true
	case protocol.TtSetRegularKey:
		return setRegularKey{}, true
	case protocol.TtTicketCreate:
		return ticketCreate{}, true
	case protocol.TtCheckCreate:
		return checkCreate{}, true
	case protocol.TtCheckCancel:
		return checkCancel{}, true
	case protocol.TtEnableAmendment, protocol.TtSetFee:
		return change{}, true
	default:
		return nil, false
	}
}

// normal supplies the defaults shared by account-originated transactions.
type normal struct{}

func (normal) requiredFeature() (protocol.Hash256, bool) { return protocol.Hash256{}, false }
func (normal) preclaim(*preclaimContext) ter.Code        { return ter.Success }

func (normal) consequences(t *protocol.Tx) Consequences {
	return normalConsequences(t)
}

func (normal) baseFee(view ledger.ReadView, t *protocol.Tx) protocol.Drops {
	return CalculateDefaultBaseFee(view, t)
}

func normalConsequences(t *protocol.Tx) Consequences {
	fee := t.Fee()
	if fee < 0 {
		fee = 0
	}
	return Consequences{
		fee:      fee,
		seqProxy: t.SeqProxy(),
		accounts: []protocol.AccountID{t.Account()},
	}
}

// newEntry builds an entry of a type the format registry must know. A miss
// is a programming error and surfaces as tefEXCEPTION.
func newEntry(k protocol.Keylet) *protocol.LedgerEntry {
	e, err := protocol.NewLedgerEntry(k)
	if err != nil {
		panic(err)
	}
	return e
}

// guard turns a FatalError panic raised inside a phase into tefEXCEPTION
// for that one transaction. Any other panic is a bug and keeps unwinding.
func guard(log *slog.Logger, phase string, t *protocol.Tx, code *ter.Code) {
	r := recover()
	if r == nil {
		return
	}
	fe, ok := r.(*protocol.FatalError)
	if !ok {
		panic(r)
	}
	log.Error("transaction aborted", "phase", phase, "tx", t.ID(), "error", fe)
	*code = ter.TefException
}

func mustTransactor(t *protocol.Tx) transactor {
	tr, ok := transactorFor(t.Type())
	if !ok {
		panic(&protocol.FatalError{
			Code:    protocol.ErrCodeUnknownTxType,
			Message: fmt.Sprintf("no transactor for %s", t.Type()),
		})
	}
	return tr
}
