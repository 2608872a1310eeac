package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

func barAt(ts time.Time, open, high, low, close float64, vol, trades int64) *models.MinuteBar {
	return &models.MinuteBar{
		Symbol:     "TEST",
		Timestamp:  ts,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      close,
		Volume:     vol,
		TradeCount: trades,
	}
}

func flatBar(ts time.Time, price float64, vol int64) *models.MinuteBar {
	return barAt(ts, price, price+0.02, price-0.02, price, vol, 20)
}

var t0 = time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)

func TestRelativeVolumeWindow(t *testing.T) {
	st := newSymbolState("TEST")

	// First bar of the day has no history; the denominator clamps to one
	// share so the raw volume comes back.
	rv := st.apply(flatBar(t0, 10, 5000))
	require.Equal(t, 5000.0, rv)

	st.apply(flatBar(t0.Add(1*time.Minute), 10, 10_000))
	st.apply(flatBar(t0.Add(2*time.Minute), 10, 15_000))

	// Trailing average is (5000+10000+15000)/3 = 10000.
	rv = st.apply(flatBar(t0.Add(3*time.Minute), 10, 30_000))
	require.InDelta(t, 3.0, rv, 1e-9)

	// The window holds only the last three bars: (10000+15000+30000)/3.
	rv = st.apply(flatBar(t0.Add(4*time.Minute), 10, 55_000))
	require.InDelta(t, 3.0, rv, 1e-9)
}

func TestVWAPTypicalPrice(t *testing.T) {
	st := newSymbolState("TEST")
	st.apply(barAt(t0, 10, 10.3, 9.9, 10.2, 1000, 10))
	st.apply(barAt(t0.Add(time.Minute), 10.2, 10.5, 10.1, 10.4, 3000, 10))

	typ1 := (10.3 + 9.9 + 10.2) / 3
	typ2 := (10.5 + 10.1 + 10.4) / 3
	want := (typ1*1000 + typ2*3000) / 4000
	require.InDelta(t, want, st.VWAP(), 1e-9)
}

func TestDayBoundaryReset(t *testing.T) {
	st := newSymbolState("TEST")
	st.apply(flatBar(t0, 10, 5000))
	st.Stage = models.Stage1
	st.Setup = SetupSnapshot{Price: 10, Volume: 5000, RelVol: 3, At: t0}
	st.alerted[models.Stage1] = true

	next := t0.Add(24 * time.Hour)
	st.apply(flatBar(next, 12, 8000))

	require.Equal(t, models.StageWatch, st.Stage)
	require.Zero(t, st.Setup)
	require.Empty(t, st.alerted)
	require.Equal(t, 12.0, st.sessionOpen)
	// VWAP restarts from the new day's bars only.
	require.InDelta(t, 12.0, st.VWAP(), 0.05)
}

func TestPctFromSessionOpen(t *testing.T) {
	st := newSymbolState("TEST")
	st.apply(flatBar(t0, 10, 5000))
	require.InDelta(t, 5.0, st.PctFromSessionOpen(10.5), 1e-9)
}

func TestConsolidated(t *testing.T) {
	st := newSymbolState("TEST")

	// Four tight closes then a breakout bar.
	for i, p := range []float64{10.00, 10.05, 10.10, 10.03} {
		st.apply(flatBar(t0.Add(time.Duration(i)*time.Minute), p, 5000))
	}
	st.apply(barAt(t0.Add(4*time.Minute), 10.03, 10.85, 10.02, 10.80, 40_000, 30))
	require.True(t, st.Consolidated())

	// A choppy tape is not a base.
	st = newSymbolState("TEST")
	for i, p := range []float64{10.00, 10.60, 10.05, 10.70} {
		st.apply(flatBar(t0.Add(time.Duration(i)*time.Minute), p, 5000))
	}
	st.apply(barAt(t0.Add(4*time.Minute), 10.70, 11.50, 10.68, 11.45, 40_000, 30))
	require.False(t, st.Consolidated())

	// Not enough history.
	st = newSymbolState("TEST")
	st.apply(flatBar(t0, 10, 5000))
	st.apply(flatBar(t0.Add(time.Minute), 10, 5000))
	require.False(t, st.Consolidated())
}

func TestSpreadRatioQuoteAndFallback(t *testing.T) {
	st := newSymbolState("TEST")

	r, estimated := st.SpreadRatio(12.0)
	require.True(t, estimated)
	require.Equal(t, EstimateSpread(12.0), r)

	st.ObserveQuote(&models.Quote{Symbol: "TEST", Bid: 11.98, Ask: 12.02})
	r, estimated = st.SpreadRatio(12.0)
	require.False(t, estimated)
	require.InDelta(t, 0.04/12.0, r, 1e-9)
}

func TestObserveQuoteRejectsCrossed(t *testing.T) {
	st := newSymbolState("TEST")
	st.ObserveQuote(&models.Quote{Symbol: "TEST", Bid: 12.02, Ask: 11.98})
	require.Nil(t, st.lastQuote)
	st.ObserveQuote(&models.Quote{Symbol: "TEST", Bid: 0, Ask: 11.98})
	require.Nil(t, st.lastQuote)
}
