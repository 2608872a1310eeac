package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

func TestResolveThresholdsSessionDefaults(t *testing.T) {
	ts := ResolveThresholds(models.SessionRegular, nil, 10, nil)
	require.False(t, ts.Ineligible)
	require.Equal(t, 2.9, ts.S1MinRelVol)
	require.Equal(t, 5.0, ts.S1MinPctChange)
	require.Equal(t, 4.7, ts.S2MinRelVol)
	require.Equal(t, 8.0, ts.S2MinPctChange)
	require.Equal(t, int64(90_000), ts.MinVolume)
	require.Equal(t, int64(10), ts.MinTrades)
	require.Equal(t, 0.020, ts.MaxSpreadRatio)

	pre := ResolveThresholds(models.SessionPremarket, nil, 10, nil)
	require.Equal(t, int64(30_000), pre.MinVolume)
	require.Equal(t, int64(3), pre.MinTrades)

	post := ResolveThresholds(models.SessionPostmarket, nil, 10, nil)
	require.Equal(t, 7.2, post.S2MinPctChange)
	require.Equal(t, 0.038, post.MaxSpreadRatio)
}

func TestResolveThresholdsClosedIneligible(t *testing.T) {
	ts := ResolveThresholds(models.SessionClosed, nil, 10, nil)
	require.True(t, ts.Ineligible)
}

func TestResolveThresholdsBaselineScaling(t *testing.T) {
	// A heavily traded name raises the volume bar above the session base.
	bl := &models.Baseline{Symbol: "HVY", AvgVolume20d: 80_000_000, AvgRange20d: 0.5}
	ts := ResolveThresholds(models.SessionRegular, bl, 10, nil)
	require.False(t, ts.Ineligible)
	require.Equal(t, int64(160_000), ts.MinVolume)

	// A wide-range name raises the percent bars.
	bl = &models.Baseline{Symbol: "WILD", AvgVolume20d: 5_000_000, AvgRange20d: 3.0}
	ts = ResolveThresholds(models.SessionRegular, bl, 10, nil)
	// 3.0 range on a $10 stock is a 30% daily range; 0.25x of that is 7.5.
	require.InDelta(t, 7.5, ts.S1MinPctChange, 1e-9)
	require.Equal(t, 8.0, ts.S2MinPctChange) // base already above the scaled value

	// Scaling never lowers a bar below the session base.
	bl = &models.Baseline{Symbol: "QUIET", AvgVolume20d: 400_000, AvgRange20d: 0.02}
	ts = ResolveThresholds(models.SessionRegular, bl, 10, nil)
	require.Equal(t, int64(90_000), ts.MinVolume)
	require.Equal(t, 5.0, ts.S1MinPctChange)
}

func TestResolveThresholdsLiquidityFloor(t *testing.T) {
	bl := &models.Baseline{Symbol: "ILLQ", AvgVolume20d: 150_000}
	ts := ResolveThresholds(models.SessionRegular, bl, 10, nil)
	require.True(t, ts.Ineligible)
}

func TestResolveThresholdsOverrides(t *testing.T) {
	ov := &Overrides{S1MinRelVol: 3.5, S2MinPctChange: 9.5}
	ts := ResolveThresholds(models.SessionRegular, nil, 10, ov)
	require.Equal(t, 3.5, ts.S1MinRelVol)
	require.Equal(t, 9.5, ts.S2MinPctChange)
	// Unset override fields keep the session base.
	require.Equal(t, 5.0, ts.S1MinPctChange)
	require.Equal(t, 4.7, ts.S2MinRelVol)
}

func TestEstimateSpread(t *testing.T) {
	require.Equal(t, 0.020, EstimateSpread(0.80))
	require.Equal(t, 0.010, EstimateSpread(3.20))
	require.Equal(t, 0.005, EstimateSpread(12.00))
	require.Equal(t, 0.002, EstimateSpread(250.00))
}
