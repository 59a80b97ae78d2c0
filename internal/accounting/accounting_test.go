package accounting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostKnownPair(t *testing.T) {
	ta, err := LoadDefault()
	require.NoError(t, err)

	usd, warning := ta.Cost("anthropic", "claude-3-7-sonnet-latest", 1_000_000, 1_000_000)
	assert.Empty(t, warning)
	assert.InDelta(t, 18.0, usd, 1e-9)
}

func TestCostUnknownProviderIsZeroWithWarning(t *testing.T) {
	ta, err := LoadDefault()
	require.NoError(t, err)

	usd, warning := ta.Cost("acme", "whatever", 100, 100)
	assert.Zero(t, usd)
	assert.NotEmpty(t, warning)
	assert.Len(t, ta.Warnings(), 1)
}

func TestCostUnknownModelIsZeroWithWarning(t *testing.T) {
	ta, err := LoadDefault()
	require.NoError(t, err)

	usd, warning := ta.Cost("anthropic", "claude-unreleased", 100, 100)
	assert.Zero(t, usd)
	assert.NotEmpty(t, warning)
}

func TestLoadFromFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("acme:\n  widget-1:\n    input_per_million: 1\n    output_per_million: 2\n"), 0o644))

	ta, err := LoadFromFile(path)
	require.NoError(t, err)

	usd, warning := ta.Cost("acme", "widget-1", 1_000_000, 1_000_000)
	assert.Empty(t, warning)
	assert.InDelta(t, 3.0, usd, 1e-9)
}

func TestLoadFromFileMissingPathErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
