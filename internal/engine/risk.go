package engine

import (
	"SpikeWatch/internal/domain/models"
)

// Stop tiers are VWAP-relative; targets are entry-relative.
const (
	stopBaseFrac      = 0.980 // 2% below VWAP
	stopTightFrac     = 0.985 // 1.5% below VWAP for higher-quality setups
	stopRelaxedFrac   = 0.975 // 2.5% below VWAP for parabolic entries
	targetBaseMult    = 1.080
	targetStretchMult = 1.095
)

// RiskLevels computes the suggested stop-loss and take-profit for an
// entry. Quality above 62 tightens the stop; a parabolic move (pct > 11)
// with middling quality relaxes it. STAGE3 disables the relaxed tier:
// fast-breaks get the tight stop and the base target, no stretching.
func RiskLevels(stage models.Stage, entry, vwap, pctChange, quality float64) (stop, target float64) {
	if vwap <= 0 {
		vwap = entry
	}

	if stage == models.Stage3 {
		return vwap * stopTightFrac, entry * targetBaseMult
	}

	if quality > 62 {
		stop = vwap * stopTightFrac
	} else {
		stop = vwap * stopBaseFrac
	}
	if pctChange > 11 && quality < 70 {
		stop = vwap * stopRelaxedFrac
	}

	target = entry * targetBaseMult
	if quality > 74 && pctChange > 6 {
		target = entry * targetStretchMult
	}
	return stop, target
}

// RiskReward is the target distance over the stop distance from entry.
// Zero when the stop sits at or above entry.
func RiskReward(entry, stop, target float64) float64 {
	risk := entry - stop
	if risk <= 0 {
		return 0
	}
	return (target - entry) / risk
}
