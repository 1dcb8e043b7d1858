package tx

import (
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// maxTickets bounds the tickets one account may hold.
const maxTickets = 250

// ticketCreate sets aside sequence numbers as Ticket entries.
type ticketCreate struct{ normal }

func (ticketCreate) requiredFeature() (protocol.Hash256, bool) {
	return protocol.FeatureTicketBatch, true
}

func (ticketCreate) preflight(ctx *preflightContext) ter.Code {
	if code := checkFlags(ctx.tx, protocol.TfUniversalMask); !ter.IsSuccess(code) {
		return code
	}
	if n := ctx.tx.Uint32(protocol.FieldTicketCount); n == 0 || n > maxTickets {
		return ter.TemInvalidCount
	}
	return ter.Success
}

func (ticketCreate) preclaim(ctx *preclaimContext) ter.Code {
	root := ctx.view.Read(protocol.AccountKeylet(ctx.tx.Account()))
	held := root.Uint32(protocol.FieldTicketCount)
	// A ticket spent by this very transaction frees a slot.
	if ctx.tx.SeqProxy().IsTicket() && held > 0 {
		held--
	}
	if held+ctx.tx.Uint32(protocol.FieldTicketCount) > maxTickets {
		return ter.TecDirFull
	}
	return ter.Success
}

func (ticketCreate) doApply(ctx *applyContext) ter.Code {
	account := ctx.tx.Account()
	count := ctx.tx.Uint32(protocol.FieldTicketCount)
	root := ctx.view.Peek(protocol.AccountKeylet(account))

	owners := root.Uint32(protocol.FieldOwnerCount)
	if ctx.priorBalance < ctx.view.Fees().AccountReserve(owners+count) {
		return ter.TecInsufficientReserve
	}

	// The account sequence has already moved past this transaction.
	first := root.Uint32(protocol.FieldSequence)
	for seq := first; seq < first+count; seq++ {
		ticket := newEntry(protocol.TicketKeylet(account, seq))
		ticket.SetAccount(protocol.FieldAccount, account)
		ticket.SetUint32(protocol.FieldTicketSequence, seq)
		ctx.view.Insert(ticket)
	}

	root.SetUint32(protocol.FieldSequence, first+count)
	root.SetUint32(protocol.FieldTicketCount, root.Uint32(protocol.FieldTicketCount)+count)
	adjustOwnerCount(root, int(count))
	ctx.view.Update(root)
	return ter.Success
}

func (ticketCreate) consequences(t *protocol.Tx) Consequences {
	c := normalConsequences(t)
	c.sequencesConsumed = t.Uint32(protocol.FieldTicketCount)
	return c
}
