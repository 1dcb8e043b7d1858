package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decode parses a JSON response, unmarshalling its data into v.
func decode(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v), out)
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// smallFees keeps genesis balances readable.
func smallFees(t *testing.T) {
	t.Setenv("TXGATE_BASE_FEE", "10")
	t.Setenv("TXGATE_RESERVE_BASE", "200")
	t.Setenv("TXGATE_RESERVE_INCREMENT", "50")
}

const testGenesis = `
close_time: 100
accounts:
  alice: 1000
  bob: 1000
`

// initJournal creates a journal funded by testGenesis and returns its path.
func initJournal(t *testing.T) (dir, db string) {
	t.Helper()
	smallFees(t)
	dir = t.TempDir()
	db = filepath.Join(dir, "txgate.db")
	genesis := writeFile(t, dir, "genesis.yaml", testGenesis)
	_, err := execute(t, "init", "--db", db, genesis)
	require.NoError(t, err)
	return dir, db
}
