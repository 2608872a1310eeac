package engine

import (
	"SpikeWatch/internal/domain/models"
)

const (
	// Close printing more than this far below VWAP is a breakdown.
	breakdownBelowVWAPPct = 1.0
	// Bar volume under this fraction of the previous bar is exhaustion.
	exhaustionVolumeFrac = 0.30
)

// Invalidation reasons, also used as metric labels.
const (
	InvalidVWAPBreakdown    = "vwap_breakdown"
	InvalidVolumeExhaustion = "volume_exhaustion"
)

// CheckInvalidation decides whether an active flag must be revoked given
// the latest bar. Pure; prevVolume <= 0 means no previous bar exists.
// Returns the reason, or "" to keep the flag. No grace period: breakdowns
// revoke immediately.
func CheckInvalidation(bar *models.MinuteBar, vwap float64, prevVolume int64) string {
	if vwap > 0 && bar.Close < vwap*(1-breakdownBelowVWAPPct/100) {
		return InvalidVWAPBreakdown
	}
	if prevVolume > 0 && float64(bar.Volume) < float64(prevVolume)*exhaustionVolumeFrac {
		return InvalidVolumeExhaustion
	}
	return ""
}
