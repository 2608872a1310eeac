package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

type staticBaselines map[string]models.Baseline

func (s staticBaselines) Get(symbol string) (models.Baseline, bool) {
	b, ok := s[symbol]
	return b, ok
}

func (s staticBaselines) Len() int { return len(s) }

func newTestEngine() *Engine {
	return New(nil, nil, nil, nil)
}

type countingMetrics struct {
	emitted map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{emitted: make(map[string]int)}
}

func (m *countingMetrics) RecordAlertEmitted(stage string) { m.emitted[stage]++ }
func (m *countingMetrics) RecordBarProcessed(string)       {}
func (m *countingMetrics) RecordBarDiscarded(string)       {}
func (m *countingMetrics) RecordPromotion(string)          {}
func (m *countingMetrics) RecordSilentPromotion(string)    {}
func (m *countingMetrics) RecordInvalidation(string)       {}
func (m *countingMetrics) RecordNotifyError()              {}
func (m *countingMetrics) RecordLastPrice(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64)   {}

// warmUp feeds quiet bars so the volume window and VWAP have history.
// Returns the timestamp of the next free minute.
func warmUp(e *Engine, start time.Time, price float64, vol int64, n int) time.Time {
	ts := start
	for i := 0; i < n; i++ {
		e.OnBar(flatBar(ts, price, vol))
		ts = ts.Add(time.Minute)
	}
	return ts
}

func TestStage1PromotionEmitsAlert(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)

	bar := barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)
	alert := e.OnBar(bar)

	require.NotNil(t, alert)
	require.Equal(t, models.Stage1, alert.Stage)
	require.Equal(t, models.SessionRegular, alert.Session)
	require.Equal(t, "TEST", alert.Symbol)
	require.InDelta(t, 6.0, alert.RelVolume, 1e-9)
	require.InDelta(t, 6.0, alert.PctChange, 1e-9)
	require.GreaterOrEqual(t, alert.Quality.Final, 50.0)
	require.True(t, alert.SpreadEstimated)
	require.Less(t, alert.StopLoss, alert.Price)
	require.Greater(t, alert.Target, alert.Price)
	require.Greater(t, alert.RiskReward, 0.0)
	require.Empty(t, alert.ConfirmPath)

	st := e.State("TEST")
	require.Equal(t, models.Stage1, st.Stage)
	require.Equal(t, 10.60, st.Setup.Price)
	require.Equal(t, int64(60_000), st.Setup.Volume)
}

func TestStage1SilentPromotionBelowQualityGate(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 4.50, 1000, 3)

	// Clears every transition rule but the composite score lands under
	// the gate: thin volume, few trades, wide estimated spread.
	bar := barAt(ts, 4.50, 4.74, 4.49, 4.73, 3000, 10)
	alert := e.OnBar(bar)

	require.Nil(t, alert)
	require.Equal(t, models.Stage1, e.State("TEST").Stage)
}

func TestStage1RejectsWeakBars(t *testing.T) {
	mk := func() (*Engine, time.Time) {
		e := newTestEngine()
		return e, warmUp(e, t0, 10.00, 10_000, 3)
	}

	t.Run("low relative volume", func(t *testing.T) {
		e, ts := mk()
		require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 25_000, 40)))
		require.Equal(t, models.StageWatch, e.State("TEST").Stage)
	})
	t.Run("small percent move", func(t *testing.T) {
		e, ts := mk()
		require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.32, 9.99, 10.30, 60_000, 40)))
		require.Equal(t, models.StageWatch, e.State("TEST").Stage)
	})
	t.Run("too few trades", func(t *testing.T) {
		e, ts := mk()
		require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 5)))
		require.Equal(t, models.StageWatch, e.State("TEST").Stage)
	})
	t.Run("wick without body", func(t *testing.T) {
		e, ts := mk()
		// Range 2.50, body 0.60: ratio 0.24 under the floor.
		require.Nil(t, e.OnBar(barAt(ts, 10.00, 12.40, 9.90, 10.60, 60_000, 40)))
		require.Equal(t, models.StageWatch, e.State("TEST").Stage)
	})
	t.Run("wide quoted spread", func(t *testing.T) {
		e, ts := mk()
		e.OnQuote(&models.Quote{Symbol: "TEST", Bid: 10.00, Ask: 10.40})
		require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
		require.Equal(t, models.StageWatch, e.State("TEST").Stage)
	})
}

func TestStage2PrimaryConfirmation(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)

	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	alert := e.OnBar(barAt(ts, 10.60, 11.55, 10.58, 11.50, 200_000, 50))
	require.NotNil(t, alert)
	require.Equal(t, models.Stage2, alert.Stage)
	require.Equal(t, "primary", alert.ConfirmPath)
	require.GreaterOrEqual(t, alert.Quality.Final, 60.0)
	require.Equal(t, time.Minute, alert.HeldFor)
	require.Equal(t, models.Stage2, e.State("TEST").Stage)
}

func TestStage2AlternativePath(t *testing.T) {
	e := newTestEngine()
	// Premarket: lower volume floors, wider spread limit.
	pre := time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)
	ts := warmUp(e, pre, 10.00, 10_000, 3)

	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.60, 9.99, 10.55, 30_000, 20)))
	ts = ts.Add(time.Minute)

	// Relative volume 4.2 misses the 4.5 primary bar but clears the
	// 0.85x alternative bar with a high composite score.
	alert := e.OnBar(barAt(ts, 10.55, 11.50, 10.53, 11.45, 70_000, 40))
	require.NotNil(t, alert)
	require.Equal(t, models.Stage2, alert.Stage)
	require.Equal(t, "alternative", alert.ConfirmPath)
	require.GreaterOrEqual(t, alert.Quality.Final, 58.0)
}

func TestStage2RequiresExpansionAndSustainedVolume(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	// Big bar but volume collapsed under 80% of the setup bar.
	require.Nil(t, e.OnBar(barAt(ts, 10.60, 11.55, 10.58, 11.50, 40_000, 50)))
	require.Equal(t, models.Stage1, e.State("TEST").Stage)
}

func TestStage3Escalation(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	// 15% bar clears 1.75x of the stage-2 percent bar and escalates
	// straight through stage 2 on the same bar.
	alert := e.OnBar(barAt(ts, 10.60, 12.25, 10.58, 12.20, 200_000, 60))
	require.NotNil(t, alert)
	require.Equal(t, models.Stage3, alert.Stage)
	require.Equal(t, models.Stage3, e.State("TEST").Stage)
	// Fast-breaks carry the fixed tight stop.
	require.InDelta(t, alert.VWAP*0.985, alert.StopLoss, 1e-9)
}

func TestEscalationCountsOneEmittedAlert(t *testing.T) {
	m := newCountingMetrics()
	e := New(nil, m, nil, nil)
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	// The escalation supersedes the stage-2 alert, so only the stage-3
	// emission may land in the counter.
	alert := e.OnBar(barAt(ts, 10.60, 12.25, 10.58, 12.20, 200_000, 60))
	require.NotNil(t, alert)
	require.Equal(t, models.Stage3, alert.Stage)

	require.Equal(t, 1, m.emitted[models.Stage1.String()])
	require.Equal(t, 0, m.emitted[models.Stage2.String()])
	require.Equal(t, 1, m.emitted[models.Stage3.String()])
}

func TestStage3WindowCloses(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)
	require.NotNil(t, e.OnBar(barAt(ts, 10.60, 11.55, 10.58, 11.50, 200_000, 50)))
	ts = ts.Add(time.Minute)

	// Two quiet bars move the symbol past the fast-break window.
	e.OnBar(barAt(ts, 11.50, 11.60, 11.48, 11.55, 150_000, 40))
	ts = ts.Add(time.Minute)
	e.OnBar(barAt(ts, 11.55, 11.65, 11.53, 11.60, 140_000, 40))
	ts = ts.Add(time.Minute)

	require.Nil(t, e.OnBar(barAt(ts, 11.60, 13.70, 11.58, 13.65, 400_000, 80)))
	require.Equal(t, models.Stage2, e.State("TEST").Stage)
}

func TestInvalidationOnVWAPBreakdown(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	// Close far enough under the running VWAP to trip the breakdown rule.
	require.Nil(t, e.OnBar(barAt(ts, 10.60, 10.62, 9.50, 9.55, 55_000, 40)))

	st := e.State("TEST")
	require.Equal(t, models.StageWatch, st.Stage)
	require.Equal(t, InvalidVWAPBreakdown, st.LastInvalidation)
	require.Zero(t, st.Setup)
}

func TestInvalidationOnVolumeExhaustion(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)

	// Volume collapses to 10% of the promotion bar while price holds.
	require.Nil(t, e.OnBar(barAt(ts, 10.60, 10.66, 10.58, 10.62, 6000, 10)))

	st := e.State("TEST")
	require.Equal(t, models.StageWatch, st.Stage)
	require.Equal(t, InvalidVolumeExhaustion, st.LastInvalidation)
}

func TestRepromotionAfterInvalidation(t *testing.T) {
	e := newTestEngine()
	ts := warmUp(e, t0, 10.00, 10_000, 3)
	require.NotNil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	ts = ts.Add(time.Minute)
	require.Nil(t, e.OnBar(barAt(ts, 10.60, 10.66, 10.58, 10.62, 6000, 10)))
	ts = ts.Add(time.Minute)

	// Window now averages (60000+6000+alert-era bars); a fresh surge
	// can promote again and alert again.
	alert := e.OnBar(barAt(ts, 10.62, 11.35, 10.61, 11.30, 150_000, 45))
	require.NotNil(t, alert)
	require.Equal(t, models.Stage1, alert.Stage)
}

func TestMalformedBarsDiscarded(t *testing.T) {
	e := newTestEngine()

	require.Nil(t, e.OnBar(nil))
	require.Nil(t, e.OnBar(barAt(t0, 0, 10.1, 9.9, 10.0, 1000, 5)))
	require.Nil(t, e.OnBar(barAt(t0, 10.0, 9.9, 10.1, 10.0, 1000, 5))) // high < low
	require.Nil(t, e.OnBar(barAt(t0, 10.0, 10.1, 9.9, 10.0, -5, 5)))
	require.Nil(t, e.State("TEST"))

	// A valid bar, then a duplicate timestamp.
	require.Nil(t, e.OnBar(flatBar(t0, 10, 1000)))
	before := e.State("TEST").lastTS
	require.Nil(t, e.OnBar(flatBar(t0, 10, 9000)))
	require.Equal(t, before, e.State("TEST").lastTS)
}

func TestClosedSessionIgnored(t *testing.T) {
	e := newTestEngine()
	sat := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	require.Nil(t, e.OnBar(flatBar(sat, 10, 1_000_000)))
	require.Nil(t, e.State("TEST"))

	night := time.Date(2026, 1, 6, 22, 0, 0, 0, time.UTC)
	require.Nil(t, e.OnBar(flatBar(night, 10, 1_000_000)))
	require.Nil(t, e.State("TEST"))
}

func TestIlliquidSymbolNeverPromotes(t *testing.T) {
	bl := staticBaselines{"TEST": {Symbol: "TEST", AvgVolume20d: 100_000}}
	e := New(bl, nil, nil, nil)
	ts := warmUp(e, t0, 10.00, 10_000, 3)

	require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	require.Equal(t, models.StageWatch, e.State("TEST").Stage)
}

func TestBaselineWeightScalesFinalScore(t *testing.T) {
	bl := staticBaselines{"TEST": {Symbol: "TEST", AvgVolume20d: 2_000_000, LiquidityWeight: 0.5}}
	e := New(bl, nil, nil, nil)
	ts := warmUp(e, t0, 10.00, 10_000, 3)

	alert := e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40))
	require.NotNil(t, alert)
	require.InDelta(t, alert.Quality.Raw*0.75, alert.Quality.Final, 1e-9)
}

func TestOverridesChangeStageBars(t *testing.T) {
	e := New(nil, nil, nil, &Overrides{S1MinRelVol: 7.0})
	ts := warmUp(e, t0, 10.00, 10_000, 3)

	// Relative volume 6 passes the session base but not the override.
	require.Nil(t, e.OnBar(barAt(ts, 10.00, 10.65, 9.99, 10.60, 60_000, 40)))
	require.Equal(t, models.StageWatch, e.State("TEST").Stage)
}

func TestResetDropsState(t *testing.T) {
	e := newTestEngine()
	warmUp(e, t0, 10.00, 10_000, 2)
	require.NotNil(t, e.State("TEST"))
	e.Reset()
	require.Nil(t, e.State("TEST"))
}
