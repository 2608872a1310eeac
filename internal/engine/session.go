package engine

import (
	"time"

	"SpikeWatch/internal/domain/models"
)

// Exchange-local session windows (minutes from midnight). Weekends are
// always closed.
const (
	premarketOpenMin  = 4 * 60
	regularOpenMin    = 9*60 + 30
	regularCloseMin   = 16 * 60
	postmarketEndMin  = 20 * 60
)

// ResolveSession maps a timestamp to the active trading session.
func ResolveSession(ts time.Time) models.Session {
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return models.SessionClosed
	}
	m := ts.Hour()*60 + ts.Minute()
	switch {
	case m >= premarketOpenMin && m < regularOpenMin:
		return models.SessionPremarket
	case m >= regularOpenMin && m < regularCloseMin:
		return models.SessionRegular
	case m >= regularCloseMin && m < postmarketEndMin:
		return models.SessionPostmarket
	default:
		return models.SessionClosed
	}
}

// NextSessionOpen returns the next premarket open after ts, skipping
// weekends.
func NextSessionOpen(ts time.Time) time.Time {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 4, 0, 0, 0, ts.Location())
	for !day.After(ts) || day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// TradingDay truncates ts to its calendar day in the exchange timezone.
func TradingDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
