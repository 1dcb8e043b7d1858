package cli

import (
	"fmt"
	"io"

	"github.com/roach88/txgate/internal/engine"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/ter"
)

// OutcomeResult reports one transaction's result.
type OutcomeResult struct {
	Hash    string         `json:"hash"`
	Type    string         `json:"type"`
	Account string         `json:"account"`
	Result  string         `json:"engine_result"`
	Message string         `json:"engine_result_message"`
	Applied bool           `json:"applied"`
	Queued  bool           `json:"queued"`
	Tx      map[string]any `json:"tx_json"`
	Meta    any            `json:"meta,omitempty"`
}

func txJSON(t *protocol.Tx, apiVersion uint) map[string]any {
	m := t.JSON()
	protocol.InsertDeliverMax(m, t.Type(), apiVersion)
	return m
}

func outcomeResult(o engine.Outcome, t *protocol.Tx, apiVersion uint) OutcomeResult {
	r := OutcomeResult{
		Hash:    o.TxID.String(),
		Type:    o.Type.String(),
		Account: o.Account.String(),
		Result:  o.Result.Token(),
		Message: o.Result.Human(),
		Applied: o.Applied,
		Queued:  o.Queued,
		Tx:      txJSON(t, apiVersion),
	}
	if o.Meta != nil {
		r.Meta = o.Meta.JSONValue()
	}
	return r
}

func writeOutcome(w io.Writer, i int, r OutcomeResult) {
	state := "rejected"
	switch {
	case r.Queued:
		state = "held for close"
	case r.Applied:
		state = "applied"
	}
	fmt.Fprintf(w, "[%d] %s %s %s: %s (%s)\n", i, r.Type, truncateID(r.Hash), r.Result, r.Message, state)
}

// truncateID shortens a hash for text output.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "..."
}

// rejected reports whether a provisional result means the transaction will
// not be considered at close.
func rejected(o engine.Outcome) bool {
	return !o.Queued && !ter.IsSuccess(o.Result)
}
