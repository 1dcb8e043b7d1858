package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, file, name string) {
	t.Helper()
	content := strings.Replace(minimalScenario, "name: minimal", "name: "+name, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestLoadSuite_Directory(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", "second")
	writeScenario(t, dir, "a.yml", "first")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	suite, err := LoadSuite(dir)
	require.NoError(t, err)
	require.Len(t, suite, 2)
	assert.Equal(t, "first", suite[0].Name)
	assert.Equal(t, "second", suite[1].Name)
}

func TestLoadSuite_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "only.yaml", "only")

	suite, err := LoadSuite(filepath.Join(dir, "only.yaml"))
	require.NoError(t, err)
	require.Len(t, suite, 1)
	assert.Equal(t, "only", suite[0].Name)
}

func TestLoadSuite_Empty(t *testing.T) {
	_, err := LoadSuite(t.TempDir())
	var nse *NoScenariosError
	require.ErrorAs(t, err, &nse)
}

func TestLoadSuite_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "same")
	writeScenario(t, dir, "b.yaml", "same")

	_, err := LoadSuite(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "same" already defined`)
}
