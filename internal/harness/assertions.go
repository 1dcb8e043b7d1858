package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Subject  string // account, tx or amendment the assertion is about
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s(%s): expected %s, got %s", e.Type, e.Subject, e.Expected, e.Actual)
}

// evaluate checks every assertion against the last closed ledger and the
// journal, returning one message per failure.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := h.check(ctx, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return msgs
}

func (h *Harness) check(ctx context.Context, a Assertion) error {
	closed := h.engine.LastClosed()

	switch a.Type {
	case AssertBalance, AssertSequence, AssertOwnerCount:
		root := closed.Read(protocol.AccountKeylet(protocol.AccountFromSeed(a.Account)))
		if root == nil {
			return &AssertionError{Type: a.Type, Subject: a.Account, Expected: fmt.Sprint(a.Expect), Actual: "no account"}
		}
		var got int64
		switch a.Type {
		case AssertBalance:
			got = int64(root.Amount(protocol.FieldBalance))
		case AssertSequence:
			got = int64(root.Uint32(protocol.FieldSequence))
		default:
			got = int64(root.Uint32(protocol.FieldOwnerCount))
		}
		return compareInt(a, a.Account, got)

	case AssertExists:
		got := closed.Exists(protocol.AccountKeylet(protocol.AccountFromSeed(a.Account)))
		return compareBool(a, a.Account, got)

	case AssertPreviousTxn:
		root := closed.Read(protocol.AccountKeylet(protocol.AccountFromSeed(a.Account)))
		want := h.txs[a.Tx].ID()
		if root == nil || root.Hash256(protocol.FieldPreviousTxnID) != want {
			actual := "no account"
			if root != nil {
				actual = h.label(root.Hash256(protocol.FieldPreviousTxnID))
			}
			return &AssertionError{Type: a.Type, Subject: a.Account, Expected: a.Tx, Actual: actual}
		}
		return nil

	case AssertResult:
		want, _ := a.Expect.(string)
		rec, err := h.store.ReadTx(ctx, h.txs[a.Tx].ID())
		if errors.Is(err, store.ErrNotFound) {
			return &AssertionError{Type: a.Type, Subject: a.Tx, Expected: want, Actual: "never closed"}
		}
		if err != nil {
			return err
		}
		if rec.Result.Token() != want {
			return &AssertionError{Type: a.Type, Subject: a.Tx, Expected: want, Actual: rec.Result.Token()}
		}
		return nil

	case AssertHistory:
		recs, err := h.store.ReadHistory(ctx, protocol.AccountFromSeed(a.Account))
		if err != nil {
			return err
		}
		return compareInt(a, a.Account, int64(len(recs)))

	case AssertTxCount:
		return compareInt(a, fmt.Sprintf("ledger %d", closed.Seq()), int64(len(closed.Transactions())))

	case AssertAmendment:
		id, _ := protocol.FeatureByName(a.Amendment)
		return compareBool(a, a.Amendment, closed.Rules().Enabled(id))
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) label(id protocol.Hash256) string {
	if id.IsZero() {
		return "none"
	}
	if l, ok := h.labels()[id]; ok {
		return l
	}
	return id.String()
}

func compareInt(a Assertion, subject string, got int64) error {
	var want int64
	switch v := a.Expect.(type) {
	case int:
		want = int64(v)
	case int64:
		want = v
	default:
		return fmt.Errorf("%s: expect must be an integer, got %T", a.Type, a.Expect)
	}
	if want != got {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}

func compareBool(a Assertion, subject string, got bool) error {
	want, ok := a.Expect.(bool)
	if !ok {
		return fmt.Errorf("%s: expect must be a boolean, got %T", a.Type, a.Expect)
	}
	if want != got {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}
