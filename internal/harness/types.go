package harness

// TraceEvent is one line of a scenario trace. Transactions are named by
// their scenario ids, never by hash, so traces are stable across key and
// encoding changes that do not alter behaviour.
type TraceEvent struct {
	Kind    string `json:"kind"` // "submit", "pass", "outcome" or "close"
	Tx      string `json:"tx,omitempty"`
	Result  string `json:"result,omitempty"`
	Applied bool   `json:"applied,omitempty"`
	Queued  bool   `json:"queued,omitempty"`
	Ledger  uint32 `json:"ledger,omitempty"`
	Pass    int    `json:"pass,omitempty"`
	Token   string `json:"token,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// canonical renders the event for canonical JSON, omitting zero fields.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{"kind": e.Kind}
	if e.Tx != "" {
		m["tx"] = e.Tx
	}
	if e.Result != "" {
		m["result"] = e.Result
	}
	if e.Applied {
		m["applied"] = true
	}
	if e.Queued {
		m["queued"] = true
	}
	if e.Ledger != 0 {
		m["ledger"] = e.Ledger
	}
	if e.Pass != 0 {
		m["pass"] = e.Pass
	}
	if e.Token != "" {
		m["token"] = e.Token
	}
	if e.Seq != 0 {
		m["seq"] = e.Seq
	}
	return m
}
