package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

func TestResolveSession(t *testing.T) {
	// 2026-01-06 is a Tuesday.
	day := func(h, m int) time.Time {
		return time.Date(2026, 1, 6, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		ts   time.Time
		want models.Session
	}{
		{"before premarket", day(3, 59), models.SessionClosed},
		{"premarket open", day(4, 0), models.SessionPremarket},
		{"premarket last minute", day(9, 29), models.SessionPremarket},
		{"regular open", day(9, 30), models.SessionRegular},
		{"regular last minute", day(15, 59), models.SessionRegular},
		{"postmarket open", day(16, 0), models.SessionPostmarket},
		{"postmarket last minute", day(19, 59), models.SessionPostmarket},
		{"after postmarket", day(20, 0), models.SessionClosed},
		{"saturday midday", time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), models.SessionClosed},
		{"sunday midday", time.Date(2026, 1, 11, 12, 0, 0, 0, time.UTC), models.SessionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveSession(tt.ts))
		})
	}
}

func TestNextSessionOpen(t *testing.T) {
	// Tuesday evening rolls to Wednesday 04:00.
	got := NextSessionOpen(time.Date(2026, 1, 6, 21, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, 1, 7, 4, 0, 0, 0, time.UTC), got)

	// Friday evening rolls over the weekend to Monday.
	got = NextSessionOpen(time.Date(2026, 1, 9, 21, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, 1, 12, 4, 0, 0, 0, time.UTC), got)

	// Early Tuesday morning still opens the same day.
	got = NextSessionOpen(time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, 1, 6, 4, 0, 0, 0, time.UTC), got)
}

func TestTradingDay(t *testing.T) {
	ts := time.Date(2026, 1, 6, 14, 23, 11, 0, time.UTC)
	require.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), TradingDay(ts))
}
