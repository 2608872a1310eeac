package util

import "time"

const dayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD trading day.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(dayLayout, s)
}

// DayKey formats a timestamp as its YYYY-MM-DD trading day.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// IsTradingDay reports whether the exchange is open on t's date.
// Holidays are not modeled; a holiday replay simply yields no bars.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevTradingDay steps back to the most recent trading day before t.
func PrevTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
