package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBaselineFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baselines.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVBaselines(t *testing.T) {
	path := writeBaselineFile(t, `symbol,avg_volume,avg_range
AAPL,52000000,3.20
tlry,4800000,0.45
BADROW,notanumber,1.0
THIN,150000,0.10
`)

	store, err := LoadCSVBaselines(path, nil)
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	b, ok := store.Get("AAPL")
	require.True(t, ok)
	require.Equal(t, 52_000_000.0, b.AvgVolume20d)
	require.Equal(t, 3.20, b.AvgRange20d)
	require.Equal(t, 1.0, b.LiquidityWeight)

	// Symbols are normalized to upper case on load.
	b, ok = store.Get("TLRY")
	require.True(t, ok)
	require.Greater(t, b.LiquidityWeight, 0.0)
	require.Less(t, b.LiquidityWeight, 1.0)

	// At or under the floor the weight pins to zero.
	b, ok = store.Get("THIN")
	require.True(t, ok)
	require.Zero(t, b.LiquidityWeight)

	_, ok = store.Get("BADROW")
	require.False(t, ok)
	_, ok = store.Get("MISSING")
	require.False(t, ok)
}

func TestLoadCSVBaselinesMissingFile(t *testing.T) {
	_, err := LoadCSVBaselines(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.Error(t, err)
}

func TestLiquidityWeightScale(t *testing.T) {
	require.Zero(t, liquidityWeight(100_000))
	require.Zero(t, liquidityWeight(300_000))
	require.Equal(t, 1.0, liquidityWeight(10_000_000))
	require.Equal(t, 1.0, liquidityWeight(80_000_000))

	mid := liquidityWeight(1_700_000) // ~geometric midpoint of the band
	require.InDelta(t, 0.5, mid, 0.02)
}
