package engine

import (
	"SpikeWatch/internal/domain/models"
)

// Baseline scaling constants. Volume scales against a fraction of the
// 20-day daily volume; the percent bar scales against a fraction of the
// average daily range.
const (
	kVol = 0.002
	kPct = 0.25

	// Symbols averaging fewer daily shares than this never promote or
	// alert, regardless of any other criteria.
	liquidityFloor = 300_000
)

// sessionBase holds the unscaled per-session limits. Values come from the
// tuned production thresholds of the scanner this engine replaced.
type sessionBase struct {
	s1RelVol  float64
	s1Pct     float64
	s2RelVol  float64
	s2Pct     float64
	minVolume int64
	minTrades int64
	maxSpread float64
}

var baseThresholds = map[models.Session]sessionBase{
	models.SessionPremarket:  {s1RelVol: 2.8, s1Pct: 4.0, s2RelVol: 4.5, s2Pct: 8.0, minVolume: 30_000, minTrades: 3, maxSpread: 0.030},
	models.SessionRegular:    {s1RelVol: 2.9, s1Pct: 5.0, s2RelVol: 4.7, s2Pct: 8.0, minVolume: 90_000, minTrades: 10, maxSpread: 0.020},
	models.SessionPostmarket: {s1RelVol: 2.7, s1Pct: 4.0, s2RelVol: 4.4, s2Pct: 7.2, minVolume: 24_000, minTrades: 3, maxSpread: 0.038},
}

const (
	minBodyRatio    = 0.3
	s1VWAPOffsetPct = 0.2
	s2VWAPOffsetPct = 0.4
)

// Overrides substitutes selected stage bars across all sessions. Zero
// fields keep the session base. Used by the grid search optimizer.
type Overrides struct {
	S1MinRelVol    float64
	S1MinPctChange float64
	S2MinRelVol    float64
	S2MinPctChange float64
}

// ResolveThresholds derives the concrete ThresholdSet for a session,
// scaled against the symbol's historical baseline when one exists.
// lastClose is the most recent trade price, used to express the average
// daily range as a percent bar.
func ResolveThresholds(session models.Session, baseline *models.Baseline, lastClose float64, ov *Overrides) models.ThresholdSet {
	base, ok := baseThresholds[session]
	if !ok {
		return models.ThresholdSet{Session: session, Ineligible: true}
	}

	ts := models.ThresholdSet{
		Session:         session,
		S1MinRelVol:     base.s1RelVol,
		S1MinPctChange:  base.s1Pct,
		S1MinVWAPOffset: s1VWAPOffsetPct,
		S2MinRelVol:     base.s2RelVol,
		S2MinPctChange:  base.s2Pct,
		S2MinVWAPOffset: s2VWAPOffsetPct,
		MinVolume:       base.minVolume,
		MinTrades:       base.minTrades,
		MaxSpreadRatio:  base.maxSpread,
		MinBodyRatio:    minBodyRatio,
	}

	if baseline != nil && baseline.AvgVolume20d > 0 {
		if baseline.AvgVolume20d < liquidityFloor {
			ts.Ineligible = true
		}
		if scaled := int64(baseline.AvgVolume20d * kVol); scaled > ts.MinVolume {
			ts.MinVolume = scaled
		}
		if baseline.AvgRange20d > 0 && lastClose > 0 {
			rangePct := baseline.AvgRange20d / lastClose * 100
			if p := rangePct * kPct; p > ts.S1MinPctChange {
				ts.S1MinPctChange = p
			}
			if p := rangePct * kPct; p > ts.S2MinPctChange {
				ts.S2MinPctChange = p
			}
		}
	}

	if ov != nil {
		if ov.S1MinRelVol > 0 {
			ts.S1MinRelVol = ov.S1MinRelVol
		}
		if ov.S1MinPctChange > 0 {
			ts.S1MinPctChange = ov.S1MinPctChange
		}
		if ov.S2MinRelVol > 0 {
			ts.S2MinRelVol = ov.S2MinRelVol
		}
		if ov.S2MinPctChange > 0 {
			ts.S2MinPctChange = ov.S2MinPctChange
		}
	}

	return ts
}

// EstimateSpread returns a price-tiered spread ratio for symbols with no
// live quote. Cheaper names trade wider.
func EstimateSpread(price float64) float64 {
	switch {
	case price < 1:
		return 0.020
	case price < 5:
		return 0.010
	case price < 20:
		return 0.005
	default:
		return 0.002
	}
}
