package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/tx"
)

// Scenario is a sequence of submissions and closes against a genesis
// ledger, followed by assertions on the final state and the journal.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fees overrides the default fee schedule.
	Fees *FeeSchedule `yaml:"fees,omitempty"`

	// Amendments names the features enabled at genesis.
	Amendments []string `yaml:"amendments,omitempty"`

	// Accounts maps account names to genesis balances. Each name is also
	// the signing key seed for the account.
	Accounts map[string]int64 `yaml:"accounts"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and journal.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// PassTokens is the prefix of the deterministic pass tokens.
	// Defaults to "pass".
	PassTokens string `yaml:"pass_tokens,omitempty"`
}

// FeeSchedule is the genesis fee schedule in drops.
type FeeSchedule struct {
	Base      int64 `yaml:"base"`
	Reserve   int64 `yaml:"reserve"`
	Increment int64 `yaml:"increment"`
}

// Step is exactly one of a submission or a close.
type Step struct {
	Submit *SubmitStep `yaml:"submit,omitempty"`
	Close  *CloseStep  `yaml:"close,omitempty"`
}

// SubmitStep builds, signs and submits one transaction.
type SubmitStep struct {
	// ID labels the transaction in traces and assertions.
	ID string `yaml:"id"`

	// Type is the transaction type name, e.g. "Payment".
	Type string `yaml:"type"`

	// Account is the sending account's name. Empty for pseudo-transactions.
	Account string `yaml:"account,omitempty"`

	// Signer defaults to Account.
	Signer string `yaml:"signer,omitempty"`

	// Sequence defaults to the account's next unused sequence in this
	// scenario. Zero with Ticket set uses the ticket.
	Sequence *uint32 `yaml:"sequence,omitempty"`
	Ticket   uint32  `yaml:"ticket,omitempty"`

	// Fee defaults to the base fee.
	Fee *int64 `yaml:"fee,omitempty"`

	// Fields holds type-specific fields in JSON form. Account names and
	// amendment names are accepted where an account or hash is expected.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Flags are apply flags, e.g. [retry, dry_run].
	Flags []string `yaml:"flags,omitempty"`

	Expect *SubmitExpect `yaml:"expect,omitempty"`
}

// SubmitExpect checks the provisional outcome on the open ledger.
type SubmitExpect struct {
	Result  string `yaml:"result"`
	Applied *bool  `yaml:"applied,omitempty"`
	Queued  *bool  `yaml:"queued,omitempty"`
}

// CloseStep closes the open ledger at Time.
type CloseStep struct {
	Time   uint32       `yaml:"time"`
	Expect *CloseExpect `yaml:"expect,omitempty"`
}

// CloseExpect checks a close.
type CloseExpect struct {
	// Passes is the number of passes made.
	Passes *int `yaml:"passes,omitempty"`

	// Transactions is the number of transactions in the closed ledger.
	Transactions *int `yaml:"transactions,omitempty"`

	// Results maps transaction ids to their final result in this close.
	Results map[string]string `yaml:"results,omitempty"`
}

// Assertion validates final state or the journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Account   string `yaml:"account,omitempty"`
	Tx        string `yaml:"tx,omitempty"`
	Amendment string `yaml:"amendment,omitempty"`

	// Expect is the expected value; its kind depends on Type.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertBalance     = "balance"      // account, expect: drops
	AssertSequence    = "sequence"     // account, expect: next sequence
	AssertOwnerCount  = "owner_count"  // account, expect: count
	AssertExists      = "exists"       // account, expect: bool
	AssertPreviousTxn = "previous_txn" // account, tx: last transaction threaded to the root
	AssertResult      = "result"       // tx, expect: final journaled result token
	AssertHistory     = "history"      // account, expect: journaled outcomes it sent
	AssertTxCount     = "tx_count"     // expect: transactions in the last closed ledger
	AssertAmendment   = "amendment"    // amendment, expect: bool
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, name := range s.Amendments {
		if _, ok := protocol.FeatureByName(name); !ok {
			return fmt.Errorf("unknown amendment %q", name)
		}
	}

	ids := make(map[string]bool)
	for i, step := range s.Steps {
		switch {
		case step.Submit != nil && step.Close != nil:
			return fmt.Errorf("steps[%d]: submit and close are exclusive", i)
		case step.Submit != nil:
			if err := validateSubmit(s, step.Submit); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
			if ids[step.Submit.ID] {
				return fmt.Errorf("steps[%d]: duplicate id %q", i, step.Submit.ID)
			}
			ids[step.Submit.ID] = true
		case step.Close != nil:
			if exp := step.Close.Expect; exp != nil {
				for id := range exp.Results {
					if !ids[id] {
						return fmt.Errorf("steps[%d]: result for unknown id %q", i, id)
					}
				}
			}
		default:
			return fmt.Errorf("steps[%d]: submit or close is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(ids, a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSubmit(s *Scenario, step *SubmitStep) error {
	if step.ID == "" {
		return fmt.Errorf("id is required")
	}
	tf, ok := protocol.DefaultFormats().TxByName(step.Type)
	if !ok {
		return fmt.Errorf("unknown transaction type %q", step.Type)
	}
	if !tf.Pseudo {
		if step.Account == "" {
			return fmt.Errorf("account is required for %s", step.Type)
		}
		if _, ok := s.Accounts[step.Account]; !ok && step.Sequence == nil {
			return fmt.Errorf("unfunded account %q needs an explicit sequence", step.Account)
		}
	}
	if _, err := tx.ParseApplyFlags(step.Flags...); err != nil {
		return err
	}
	return nil
}

func validateAssertion(ids map[string]bool, a Assertion) error {
	switch a.Type {
	case AssertBalance, AssertSequence, AssertOwnerCount, AssertExists, AssertHistory:
		if a.Account == "" {
			return fmt.Errorf("account is required for %s", a.Type)
		}
	case AssertPreviousTxn:
		if a.Account == "" || !ids[a.Tx] {
			return fmt.Errorf("account and a known tx are required for %s", a.Type)
		}
		return nil
	case AssertResult:
		if !ids[a.Tx] {
			return fmt.Errorf("unknown tx %q", a.Tx)
		}
	case AssertTxCount:
	case AssertAmendment:
		if _, ok := protocol.FeatureByName(a.Amendment); !ok {
			return fmt.Errorf("unknown amendment %q", a.Amendment)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Expect == nil {
		return fmt.Errorf("expect is required for %s", a.Type)
	}
	return nil
}
