package tx

import (
	"log/slog"

	"github.com/roach88/txgate/internal/ledger"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// Consequences summarise what a transaction can do to its sender if it
// applies: the most it can cost, whether it blocks later transactions from
// the same account, and which sequence numbers it uses up.
type Consequences struct {
	fee               protocol.Drops
	potentialSpend    protocol.Drops
	blocker           bool
	seqProxy          protocol.SeqProxy
	sequencesConsumed uint32
	accounts          []protocol.AccountID
}

// FeePaid is the fee the transaction declares.
func (c Consequences) FeePaid() protocol.Drops { return c.fee }

// PotentialSpend is the most XRP the transaction can move beyond its fee.
func (c Consequences) PotentialSpend() protocol.Drops { return c.potentialSpend }

// IsBlocker reports whether the transaction changes how the account
// authorises transactions, so nothing queued after it can be trusted to
// validate until it applies. Blockers are one-time-use.
func (c Consequences) IsBlocker() bool { return c.blocker }

func (c Consequences) SeqProxy() protocol.SeqProxy { return c.seqProxy }

// SequencesConsumed counts sequence numbers used beyond the transaction's
// own, as when TicketCreate reserves tickets.
func (c Consequences) SequencesConsumed() uint32 { return c.sequencesConsumed }

// FollowingSeq returns the first account sequence available after this
// transaction applies.
func (c Consequences) FollowingSeq() protocol.SeqProxy {
	if c.seqProxy.IsTicket() {
		return c.seqProxy
	}
	return protocol.SequenceProxy(c.seqProxy.Value() + 1 + c.sequencesConsumed)
}

// Accounts lists the accounts the transaction names, sender first.
func (c Consequences) Accounts() []protocol.AccountID {
	return append([]protocol.AccountID(nil), c.accounts...)
}

// PreflightResult is the immutable outcome of Preflight. Only Preflight
// produces a usable one; Preclaim answers tefEXCEPTION for the zero value.
type PreflightResult struct {
	ran          bool
	tx           *protocol.Tx
	rules        protocol.Rules
	consequences Consequences
	flags        ApplyFlags
	log          *slog.Logger
	code         ter.Code
}

func (r PreflightResult) Tx() *protocol.Tx           { return r.tx }
func (r PreflightResult) Rules() protocol.Rules      { return r.rules }
func (r PreflightResult) Consequences() Consequences { return r.consequences }
func (r PreflightResult) Flags() ApplyFlags          { return r.flags }
func (r PreflightResult) Logger() *slog.Logger       { return r.log }
func (r PreflightResult) Code() ter.Code             { return r.code }

// PreclaimResult is the immutable outcome of Preclaim. DoApply answers
// tefEXCEPTION for one Preclaim did not produce.
type PreclaimResult struct {
	ran              bool
	view             ledger.ReadView
	tx               *protocol.Tx
	flags            ApplyFlags
	log              *slog.Logger
	code             ter.Code
	likelyToClaimFee bool
}

func (r PreclaimResult) View() ledger.ReadView { return r.view }
func (r PreclaimResult) Tx() *protocol.Tx      { return r.tx }
func (r PreclaimResult) Flags() ApplyFlags     { return r.flags }
func (r PreclaimResult) Logger() *slog.Logger  { return r.log }
func (r PreclaimResult) Code() ter.Code        { return r.code }

// LikelyToClaimFee reports whether applying the transaction would charge
// its fee: the code is tesSUCCESS, or a tec that is final under the flags.
// A transaction that is likely to claim a fee is worth relaying.
func (r PreclaimResult) LikelyToClaimFee() bool { return r.likelyToClaimFee }

// IsTecClaimHardFail reports whether a fee-claiming failure is final. Under
// TapRetry the transaction may still succeed later, so the tec is soft.
func IsTecClaimHardFail(code ter.Code, flags ApplyFlags) bool {
	return ter.IsTecClaim(code) && !flags.Has(TapRetry)
}

func likelyToClaimFee(code ter.Code, flags ApplyFlags) bool {
	return ter.IsSuccess(code) || IsTecClaimHardFail(code, flags)
}
