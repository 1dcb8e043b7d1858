package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFlagsString(t *testing.T) {
	assert.Equal(t, "tapNONE", TapNone.String())
	assert.Equal(t, "tapRETRY", TapRetry.String())
	assert.Equal(t, "tapRETRY|tapUNLIMITED|tapDRY_RUN", (TapRetry | TapUnlimited | TapDryRun).String())
}

func TestApplyFlagsHas(t *testing.T) {
	f := TapRetry | TapPreferQueue
	assert.True(t, f.Has(TapRetry))
	assert.True(t, f.Has(TapRetry|TapPreferQueue))
	assert.False(t, f.Has(TapRetry|TapDryRun))
	assert.True(t, TapNone.Has(TapNone))
}

func TestParseApplyFlags(t *testing.T) {
	f, err := ParseApplyFlags("retry", "tapDRY_RUN", "Unlimited")
	assert.NoError(t, err)
	assert.Equal(t, TapRetry|TapDryRun|TapUnlimited, f)

	f, err = ParseApplyFlags()
	assert.NoError(t, err)
	assert.Equal(t, TapNone, f)

	f, err = ParseApplyFlags("none")
	assert.NoError(t, err)
	assert.Equal(t, TapNone, f)

	_, err = ParseApplyFlags("retry", "bogus")
	assert.ErrorContains(t, err, `unknown apply flag "bogus"`)
}
