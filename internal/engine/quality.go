package engine

import (
	"SpikeWatch/internal/domain/models"
)

// Sub-score caps. They sum to 100 before penalties.
const (
	relVolCapX     = 8.0  // relative volume earning full points
	relVolPoints   = 28.0
	pctCap         = 14.0 // percent change earning full points
	pctPoints      = 18.0
	volAbsPoints   = 14.0 // proportional up to 2x the session threshold
	densityAnchor  = 20.0 // trade count earning full density points
	densityPoints  = 12.0
	spreadPoints   = 10.0
	expansionCap   = 5.0 // percent expansion earning full points
	expansionPts   = 8.0
	accelPts       = 4.0
	sustainedPts   = 6.0
	parabolicPen   = 6.0
	churnPen       = 4.0
	churnFloorSize = 120.0 // shares/trade below which participation is churn
)

// ScoreInput bundles everything the quality model looks at for one bar.
type ScoreInput struct {
	RelVol       float64
	PctChange    float64
	Volume       int64
	VolThreshold int64
	TradeCount   int64
	SpreadRatio  float64
	SpreadLimit  float64

	// Follow-through since setup. On the bar that creates the setup the
	// bar's own open-to-close move seeds the expansion.
	ExpansionPct    float64
	Accelerating    bool
	VolumeSustained bool

	AvgTradeSize float64

	// LiquidityWeight scales the final score when a baseline exists.
	// Negative means unknown: the raw score stands.
	LiquidityWeight float64
}

// Score computes the 0-100 composite quality score. Sub-scores are
// independent and linear within their caps, so the composite is monotonic
// in each input up to its cap.
func Score(in ScoreInput) models.ScoreBreakdown {
	var b models.ScoreBreakdown

	b.RelVolume = linear(in.RelVol, relVolCapX) * relVolPoints
	b.PctChange = linear(in.PctChange, pctCap) * pctPoints

	if in.VolThreshold > 0 {
		b.VolumeAbs = linear(float64(in.Volume), 2*float64(in.VolThreshold)) * volAbsPoints
	}
	b.TradeDensity = linear(float64(in.TradeCount), densityAnchor) * densityPoints

	if in.SpreadLimit > 0 {
		tightness := 1 - in.SpreadRatio/in.SpreadLimit
		if tightness < 0 {
			tightness = 0
		}
		b.SpreadTight = tightness * spreadPoints
	}

	b.FollowThrough = linear(in.ExpansionPct, expansionCap) * expansionPts
	if in.Accelerating {
		b.FollowThrough += accelPts
	}
	if in.VolumeSustained {
		b.FollowThrough += sustainedPts
	}

	// High percent move without sustained volume reads as exhaustion.
	if in.PctChange > 10 && !in.VolumeSustained {
		b.ParabolicPen = -linear(in.PctChange-10, 4) * parabolicPen
	}
	if in.AvgTradeSize > 0 && in.AvgTradeSize < churnFloorSize {
		b.ChurnPen = -(1 - in.AvgTradeSize/churnFloorSize) * churnPen
	}

	b.Raw = clamp(b.RelVolume+b.PctChange+b.VolumeAbs+b.TradeDensity+
		b.SpreadTight+b.FollowThrough+b.ParabolicPen+b.ChurnPen, 0, 100)

	b.Final = b.Raw
	if in.LiquidityWeight >= 0 {
		w := clamp(in.LiquidityWeight, 0, 1)
		b.Final = clamp(b.Raw*(0.5+0.5*w), 0, 100)
	}
	return b
}

// linear maps v into [0,1] against cap, clamping both ends.
func linear(v, cap float64) float64 {
	if cap <= 0 || v <= 0 {
		return 0
	}
	if v >= cap {
		return 1
	}
	return v / cap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
