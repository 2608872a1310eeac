package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
	"SpikeWatch/internal/engine"
)

type memBarSource map[string][]models.MinuteBar

func (m memBarSource) Bars(_ context.Context, _ time.Time, symbols []string) (map[string][]models.MinuteBar, error) {
	if len(symbols) == 0 {
		return m, nil
	}
	out := make(map[string][]models.MinuteBar)
	for _, s := range symbols {
		if bars, ok := m[s]; ok {
			out[s] = bars
		}
	}
	return out, nil
}

var day = time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

func bar(h, m int, open, high, low, close float64, vol, trades int64) models.MinuteBar {
	return models.MinuteBar{
		Symbol:     "TEST",
		Timestamp:  time.Date(2026, 1, 6, h, m, 0, 0, time.UTC),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		Volume:     vol,
		TradeCount: trades,
	}
}

// breakoutPrefix is a warmup plus a bar that promotes to STAGE1 with an
// alert at 10.60.
func breakoutPrefix() []models.MinuteBar {
	return []models.MinuteBar{
		bar(9, 30, 10.00, 10.02, 9.98, 10.00, 10_000, 20),
		bar(9, 31, 10.00, 10.02, 9.98, 10.00, 10_000, 20),
		bar(9, 32, 10.00, 10.02, 9.98, 10.00, 10_000, 20),
		bar(9, 33, 10.00, 10.65, 9.99, 10.60, 60_000, 40),
	}
}

func TestSimulatorTargetHit(t *testing.T) {
	bars := append(breakoutPrefix(),
		bar(9, 34, 10.60, 11.05, 10.58, 11.00, 50_000, 40),
		bar(9, 35, 11.00, 11.50, 10.98, 11.45, 40_000, 40),
	)
	sim := NewSimulator(memBarSource{"TEST": bars}, nil, DefaultConfig(), nil, nil)

	res, err := sim.Run(context.Background(), day, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Alerts)
	require.Equal(t, models.Stage1, res.Alerts[0].Stage)
	require.InDelta(t, 10.60, res.Alerts[0].Price, 1e-9)

	o := res.Outcomes[0]
	require.Equal(t, models.OutcomeTarget, o.Kind)
	require.InDelta(t, 10.60*1.08, o.ExitPrice, 1e-9)
	require.InDelta(t, 8.0, o.GainPct, 1e-9)
	require.Equal(t, 2*time.Minute, o.Held)
	require.Equal(t, 1, res.Wins)
	require.Equal(t, 1.0, res.WinRate)
}

func TestSimulatorStopHit(t *testing.T) {
	bars := append(breakoutPrefix(),
		bar(9, 34, 10.60, 10.62, 10.30, 10.35, 30_000, 40),
	)
	sim := NewSimulator(memBarSource{"TEST": bars}, nil, DefaultConfig(), nil, nil)

	res, err := sim.Run(context.Background(), day, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Outcomes)

	o := res.Outcomes[0]
	require.Equal(t, models.OutcomeStop, o.Kind)
	require.InDelta(t, 10.60*0.98, o.ExitPrice, 1e-9)
	require.InDelta(t, -2.0, o.GainPct, 1e-9)
	require.Equal(t, 1, res.Losses)
}

func TestSimulatorStopBeforeTargetInOneBar(t *testing.T) {
	// One wild bar spans both levels; the worse fill wins.
	bars := append(breakoutPrefix(),
		bar(9, 34, 10.60, 11.60, 10.30, 11.40, 80_000, 60),
	)
	sim := NewSimulator(memBarSource{"TEST": bars}, nil, DefaultConfig(), nil, nil)

	res, err := sim.Run(context.Background(), day, nil)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeStop, res.Outcomes[0].Kind)
}

func TestSimulatorTimeout(t *testing.T) {
	bars := append(breakoutPrefix(),
		bar(9, 34, 10.60, 10.72, 10.58, 10.70, 50_000, 40),
		bar(9, 35, 10.70, 10.73, 10.68, 10.71, 45_000, 40),
		bar(9, 40, 10.71, 10.74, 10.69, 10.72, 45_000, 40), // past max hold
	)
	cfg := Config{StopPct: 2, TargetPct: 8, MaxHold: 3 * time.Minute}
	sim := NewSimulator(memBarSource{"TEST": bars}, nil, cfg, nil, nil)

	res, err := sim.Run(context.Background(), day, nil)
	require.NoError(t, err)

	o := res.Outcomes[0]
	require.Equal(t, models.OutcomeTimeout, o.Kind)
	require.InDelta(t, 10.71, o.ExitPrice, 1e-9)
	require.Equal(t, 1, res.Timeouts)
}

func TestSimulatorOverridesSuppressAlerts(t *testing.T) {
	bars := append(breakoutPrefix(),
		bar(9, 34, 10.60, 11.05, 10.58, 11.00, 50_000, 40),
	)
	ov := &engine.Overrides{S1MinRelVol: 50}
	sim := NewSimulator(memBarSource{"TEST": bars}, nil, DefaultConfig(), ov, nil)

	res, err := sim.Run(context.Background(), day, nil)
	require.NoError(t, err)
	require.Empty(t, res.Alerts)
	require.Equal(t, len(bars), res.Bars)
}
