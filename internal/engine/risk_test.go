package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

func TestRiskLevelsTiers(t *testing.T) {
	const entry, vwap = 10.0, 9.9

	tests := []struct {
		name       string
		stage      models.Stage
		pct        float64
		quality    float64
		wantStop   float64
		wantTarget float64
	}{
		{"base", models.Stage1, 6, 55, vwap * 0.980, entry * 1.080},
		{"tight stop on quality", models.Stage1, 6, 65, vwap * 0.985, entry * 1.080},
		{"relaxed stop on parabolic", models.Stage2, 12, 65, vwap * 0.975, entry * 1.080},
		{"quality keeps tight through parabolic", models.Stage2, 12, 75, vwap * 0.985, entry * 1.095},
		{"stretch target", models.Stage1, 7, 80, vwap * 0.985, entry * 1.095},
		{"no stretch on small move", models.Stage1, 5, 80, vwap * 0.985, entry * 1.080},
		{"stage3 fixed tiers", models.Stage3, 16, 90, vwap * 0.985, entry * 1.080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop, target := RiskLevels(tt.stage, entry, vwap, tt.pct, tt.quality)
			require.InDelta(t, tt.wantStop, stop, 1e-9)
			require.InDelta(t, tt.wantTarget, target, 1e-9)
		})
	}
}

func TestRiskLevelsMissingVWAP(t *testing.T) {
	stop, target := RiskLevels(models.Stage1, 10, 0, 6, 55)
	require.InDelta(t, 10*0.980, stop, 1e-9)
	require.InDelta(t, 10*1.080, target, 1e-9)
}

func TestRiskReward(t *testing.T) {
	require.InDelta(t, 4.0, RiskReward(10, 9.8, 10.8), 1e-9)
	require.Zero(t, RiskReward(10, 10.2, 10.8))
}
