package polygon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
	"SpikeWatch/internal/engine"
)

func TestBarFromEventRebasesToExchangeTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("premarket bar", func(t *testing.T) {
		start := time.Date(2026, 1, 6, 5, 0, 0, 0, loc)
		bar := barFromEvent(pgEvent{
			Ev: "AM", Sym: "AAPL",
			Open: 10.00, High: 10.20, Low: 9.95, Close: 10.15,
			Volume: 5000, AvgSz: 100,
			Start: start.UnixMilli(),
		}, loc)

		require.True(t, bar.Timestamp.Equal(start))
		require.Equal(t, 5, bar.Timestamp.Hour())
		require.Equal(t, models.SessionPremarket, engine.ResolveSession(bar.Timestamp))
	})

	// The last regular-session hour sits at 19:00-20:00 UTC; read in the
	// host zone it would classify as postmarket or closed.
	t.Run("late regular bar", func(t *testing.T) {
		start := time.Date(2026, 1, 6, 15, 30, 0, 0, loc)
		bar := barFromEvent(pgEvent{
			Ev: "AM", Sym: "AAPL",
			Open: 10.00, High: 10.20, Low: 9.95, Close: 10.15,
			Volume: 5000, AvgSz: 100,
			Start: start.UnixMilli(),
		}, loc)

		require.Equal(t, models.SessionRegular, engine.ResolveSession(bar.Timestamp))
	})
}

func TestBarFromEventReconstructsTradeCount(t *testing.T) {
	bar := barFromEvent(pgEvent{
		Ev: "AM", Sym: "AAPL",
		Volume: 5000, AvgSz: 120,
	}, time.UTC)
	require.Equal(t, int64(42), bar.TradeCount)

	// Missing average size leaves the count at zero rather than dividing by it.
	bar = barFromEvent(pgEvent{Ev: "AM", Sym: "AAPL", Volume: 5000}, time.UTC)
	require.Equal(t, int64(0), bar.TradeCount)
}
