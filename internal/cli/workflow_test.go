package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txgate/internal/app"
	"github.com/roach88/txgate/internal/config"
	"github.com/roach88/txgate/internal/protocol"
	"github.com/roach88/txgate/internal/store"
	"github.com/roach88/txgate/internal/validity"
)

const paymentBatch = `
close_time: 110
transactions:
  - type: Payment
    account: alice
    fields: { Destination: carol, Amount: 300 }
  - type: Payment
    account: bob
    fields: { Destination: alice, Amount: 50 }
`

func TestInit(t *testing.T) {
	smallFees(t)
	dir := t.TempDir()
	db := dir + "/txgate.db"
	genesis := writeFile(t, dir, "genesis.yaml", testGenesis)

	out, err := execute(t, "init", "--db", db, "--format", "json", genesis)
	require.NoError(t, err)

	var result InitResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, uint32(1), result.Ledger)
	require.Len(t, result.Accounts, 2)
	assert.Equal(t, "alice", result.Accounts[0].Name)
	assert.Equal(t, protocol.AccountFromSeed("alice").String(), result.Accounts[0].Account)
	assert.Equal(t, int64(1000), result.Accounts[0].Balance)

	_, err = execute(t, "init", "--db", db, genesis)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already holds ledger 1")
}

func TestInit_InvalidGenesis(t *testing.T) {
	smallFees(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no accounts", "close_time: 1\n", "at least one account"},
		{"unknown field", "acounts: { alice: 1 }\n", "failed to parse"},
		{"unknown amendment", "amendments: [Teleport]\naccounts: { alice: 1 }\n", `unknown amendment "Teleport"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "genesis.yaml", tt.content)
			_, err := execute(t, "init", "--db", dir+"/x.db", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheck(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)

	out, err := execute(t, "check", "--db", db, "--format", "json", batch)
	require.NoError(t, err)

	var result CheckResult
	decode(t, out, &result)
	assert.Equal(t, uint32(2), result.Ledger)
	assert.Zero(t, result.Rejected)
	require.Len(t, result.Outcomes, 2)
	for _, o := range result.Outcomes {
		assert.Equal(t, "tesSUCCESS", o.Result)
		assert.False(t, o.Queued)
		assert.Nil(t, o.Meta)
	}

	// A dry run leaves the journal untouched.
	out, err = execute(t, "ledger", "--db", db, "--format", "json")
	require.NoError(t, err)
	var ledger LedgerResult
	decode(t, out, &ledger)
	assert.Equal(t, uint32(1), ledger.Seq)
}

func TestCheck_Rejected(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", `
transactions:
  - type: Payment
    account: alice
    fields: { Destination: bob, Amount: 5000 }
`)

	out, err := execute(t, "check", "--db", db, batch)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "tecUNFUNDED_PAYMENT")
	assert.Contains(t, out, "1 checked, 1 rejected")
}

func TestApply(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)

	out, err := execute(t, "apply", "--db", db, "--format", "json", batch)
	require.NoError(t, err)

	var result ApplyResult
	decode(t, out, &result)
	assert.Equal(t, uint32(2), result.Ledger)
	require.Len(t, result.Submitted, 2)
	for _, o := range result.Submitted {
		assert.True(t, o.Queued)
	}
	require.Len(t, result.Passes, 1)
	assert.Equal(t, 2, result.Passes[0].Applied)
	require.Len(t, result.Final, 2)
	for _, o := range result.Final {
		assert.Equal(t, "tesSUCCESS", o.Result)
		assert.True(t, o.Applied)
		assert.False(t, o.Queued)
		assert.NotNil(t, o.Meta)
	}
	// API version 1 keeps Amount next to DeliverMax.
	assert.Equal(t, "300", result.Final[0].Tx["Amount"])
	assert.Equal(t, "300", result.Final[0].Tx["DeliverMax"])

	out, err = execute(t, "entry", "--db", db, "--format", "json", "carol")
	require.NoError(t, err)
	var entries EntryResult
	decode(t, out, &entries)
	assert.Equal(t, uint32(2), entries.Ledger)
	require.Len(t, entries.Entries, 1)
	carol := entries.Entries[0].(map[string]any)
	assert.Equal(t, "300", carol["Balance"])
	assert.Equal(t, protocol.AccountKeylet(protocol.AccountFromSeed("carol")).Key.String(), carol["index"])

	out, err = execute(t, "entry", "--db", db, "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger 2:")

	out, err = execute(t, "ledger", "--db", db, "--format", "json", "2")
	require.NoError(t, err)
	var ledger LedgerResult
	decode(t, out, &ledger)
	assert.Equal(t, uint32(100), ledger.ParentCloseTime)
	assert.Equal(t, uint32(110), ledger.CloseTime)
	assert.Equal(t, 2, ledger.TxCount)
	require.Len(t, ledger.Passes, 1)
	assert.Len(t, ledger.Passes[0].Outcomes, 2)
}

func TestApply_DefaultCloseTime(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", `
transactions:
  - { type: AccountSet, account: alice }
`)
	_, err := execute(t, "apply", "--db", db, batch)
	require.NoError(t, err)

	out, err := execute(t, "ledger", "--db", db, "--format", "json")
	require.NoError(t, err)
	var ledger LedgerResult
	decode(t, out, &ledger)
	assert.Equal(t, uint32(110), ledger.CloseTime)

	// Sequences continue from the journaled account root.
	_, err = execute(t, "apply", "--db", db, "--close-time", "500", batch)
	require.NoError(t, err)
	out, err = execute(t, "entry", "--db", db, "--format", "json", "alice")
	require.NoError(t, err)
	var entries EntryResult
	decode(t, out, &entries)
	assert.Equal(t, uint32(3), entries.Ledger)
	assert.Equal(t, float64(3), entries.Entries[0].(map[string]any)["Sequence"])
}

func TestApply_NoClose(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)

	out, err := execute(t, "apply", "--db", db, "--no-close", "--format", "json", batch)
	require.NoError(t, err)
	var result ApplyResult
	decode(t, out, &result)
	assert.Len(t, result.Submitted, 2)
	assert.Zero(t, result.Ledger)

	out, err = execute(t, "ledger", "--db", db, "--format", "json")
	require.NoError(t, err)
	var ledger LedgerResult
	decode(t, out, &ledger)
	assert.Equal(t, uint32(1), ledger.Seq)
}

func TestHistory(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)
	_, err := execute(t, "apply", "--db", db, batch)
	require.NoError(t, err)

	out, err := execute(t, "history", "--db", db, "--format", "json", "--api-version", "2", "alice")
	require.NoError(t, err)
	var history []HistoryRecord
	decode(t, out, &history)
	require.Len(t, history, 1)
	h := history[0]
	assert.Equal(t, uint32(2), h.Ledger)
	assert.Equal(t, "Payment", h.Type)
	assert.Equal(t, "tesSUCCESS", h.Result)
	assert.True(t, h.Applied)
	assert.Equal(t, "300", h.Tx["DeliverMax"])
	assert.NotContains(t, h.Tx, "Amount")
	assert.NotEmpty(t, h.Meta)

	out, err = execute(t, "history", "--db", db, "dave")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions from dave.")
}

func TestReplay(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)
	_, err := execute(t, "apply", "--db", db, batch)
	require.NoError(t, err)
	again := writeFile(t, dir, "again.yaml", `
transactions:
  - type: Payment
    account: carol
    fields: { Destination: bob, Amount: 20 }
  - type: AccountSet
    account: bob
`)
	_, err = execute(t, "apply", "--db", db, again)
	require.NoError(t, err)

	out, err := execute(t, "replay", "--db", db, "--format", "json")
	require.NoError(t, err)
	var result ReplayResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.AllDeterministic)
	require.Equal(t, 2, result.Total)
	for _, lr := range result.Ledgers {
		assert.Equal(t, lr.Expected, lr.Actual)
		assert.Empty(t, lr.Mismatches)
	}
	assert.Equal(t, 2, result.Ledgers[0].Transactions)
}

func TestReplayLedger_SeedsValidityCache(t *testing.T) {
	dir, db := initJournal(t)
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)
	_, err := execute(t, "apply", "--db", db, batch)
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	st, err := store.Open(db, store.ReadOnly())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	a := app.New(cfg)
	require.Zero(t, a.Validity.Len())

	lr, err := replayLedger(ctx, a, st, 2)
	require.NoError(t, err)
	assert.True(t, lr.Deterministic, lr.Mismatches)

	results, err := st.ReadLedgerResults(ctx, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, validity.FlagLocalGood|validity.FlagSigGood, a.Validity.Flags(r.TxID), r.TxID.String())
	}
	assert.Equal(t, 2, a.Validity.Len())
}

func TestReplay_GenesisOnly(t *testing.T) {
	_, db := initJournal(t)
	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No closed ledgers to replay.")
}

func TestEntry_Errors(t *testing.T) {
	_, db := initJournal(t)

	_, err := execute(t, "entry", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")

	_, err = execute(t, "entry", "--db", db, "--type", "Teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entry type "Teleport"`)

	_, err = execute(t, "entry", "--db", db, "zed")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "entry", "--db", db, "--ledger", "9", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger 9 is not in the journal")

	out, err := execute(t, "entry", "--db", db, "--type", "AccountRoot", "--format", "json")
	require.NoError(t, err)
	var entries EntryResult
	decode(t, out, &entries)
	assert.Len(t, entries.Entries, 2)
}

func TestSession_RequiresJournal(t *testing.T) {
	smallFees(t)
	dir := t.TempDir()
	batch := writeFile(t, dir, "batch.yaml", paymentBatch)

	_, err := execute(t, "apply", "--db", dir+"/missing.db", batch)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run txgate init")
}
