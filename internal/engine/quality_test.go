package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreModerateBreakout(t *testing.T) {
	// A clean but unremarkable breakout bar: it should clear the stage-1
	// gate with room to spare but not read as exceptional.
	b := Score(ScoreInput{
		RelVol:          4.0,
		PctChange:       6.0,
		Volume:          60_000,
		VolThreshold:    50_000,
		TradeCount:      12,
		SpreadRatio:     0.010,
		SpreadLimit:     0.025,
		ExpansionPct:    6.0,
		VolumeSustained: true,
		AvgTradeSize:    5000,
		LiquidityWeight: -1,
	})

	require.InDelta(t, 14.0, b.RelVolume, 1e-9)     // 4x of an 8x cap
	require.InDelta(t, 7.714, b.PctChange, 0.001)   // 6 of a 14 cap
	require.InDelta(t, 8.4, b.VolumeAbs, 1e-9)      // 60k against a 100k ceiling
	require.InDelta(t, 7.2, b.TradeDensity, 1e-9)   // 12 of a 20 anchor
	require.InDelta(t, 6.0, b.SpreadTight, 1e-9)    // 60% of limit used
	require.InDelta(t, 14.0, b.FollowThrough, 1e-9) // capped expansion + sustained
	require.Zero(t, b.ParabolicPen)
	require.Zero(t, b.ChurnPen)
	require.InDelta(t, 57.314, b.Final, 0.001)
	require.Equal(t, b.Raw, b.Final)
}

func TestScoreCapsSaturate(t *testing.T) {
	b := Score(ScoreInput{
		RelVol:          50,
		PctChange:       40,
		Volume:          10_000_000,
		VolThreshold:    50_000,
		TradeCount:      900,
		SpreadRatio:     0,
		SpreadLimit:     0.025,
		ExpansionPct:    30,
		Accelerating:    true,
		VolumeSustained: true,
		AvgTradeSize:    5000,
		LiquidityWeight: -1,
	})
	require.Equal(t, 100.0, b.Final)
}

func TestScoreParabolicPenalty(t *testing.T) {
	in := ScoreInput{
		RelVol:          5,
		PctChange:       13,
		Volume:          80_000,
		VolThreshold:    50_000,
		TradeCount:      30,
		SpreadRatio:     0.005,
		SpreadLimit:     0.025,
		ExpansionPct:    13,
		AvgTradeSize:    1000,
		LiquidityWeight: -1,
	}

	unsustained := Score(in)
	require.InDelta(t, -4.5, unsustained.ParabolicPen, 1e-9) // 3 of 4 above the knee

	in.VolumeSustained = true
	sustained := Score(in)
	require.Zero(t, sustained.ParabolicPen)
	require.Greater(t, sustained.Final, unsustained.Final)
}

func TestScoreChurnPenalty(t *testing.T) {
	in := ScoreInput{
		RelVol:          4,
		PctChange:       6,
		Volume:          60_000,
		VolThreshold:    50_000,
		TradeCount:      1000,
		SpreadRatio:     0.010,
		SpreadLimit:     0.025,
		ExpansionPct:    6,
		VolumeSustained: true,
		AvgTradeSize:    60, // odd-lot churn
		LiquidityWeight: -1,
	}
	b := Score(in)
	require.InDelta(t, -2.0, b.ChurnPen, 1e-9) // half the floor, half the penalty

	in.AvgTradeSize = 600
	require.Zero(t, Score(in).ChurnPen)
}

func TestScoreLiquidityScaling(t *testing.T) {
	in := ScoreInput{
		RelVol:          4,
		PctChange:       6,
		Volume:          60_000,
		VolThreshold:    50_000,
		TradeCount:      12,
		SpreadRatio:     0.010,
		SpreadLimit:     0.025,
		ExpansionPct:    6,
		VolumeSustained: true,
		AvgTradeSize:    5000,
	}

	in.LiquidityWeight = 1
	require.Equal(t, Score(in).Raw, Score(in).Final)

	in.LiquidityWeight = 0
	b := Score(in)
	require.InDelta(t, b.Raw*0.5, b.Final, 1e-9)

	// Unknown baseline leaves the raw score untouched.
	in.LiquidityWeight = -1
	b = Score(in)
	require.Equal(t, b.Raw, b.Final)
}

func TestScoreNeverNegative(t *testing.T) {
	b := Score(ScoreInput{
		PctChange:       14,
		SpreadLimit:     0.025,
		SpreadRatio:     0.025,
		AvgTradeSize:    10,
		LiquidityWeight: -1,
	})
	require.GreaterOrEqual(t, b.Final, 0.0)
	require.LessOrEqual(t, b.Final, 100.0)
}
