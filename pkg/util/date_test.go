package util

import (
    "testing"
    "time"
)

func TestParseDayRoundTrip(t *testing.T) {
    d, err := ParseDay("2026-01-06")
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if DayKey(d) != "2026-01-06" {
        t.Fatalf("unexpected key %s", DayKey(d))
    }
}

func TestParseDayRejectsGarbage(t *testing.T) {
    if _, err := ParseDay("01/06/2026"); err == nil {
        t.Fatalf("expected error")
    }
}

func TestPrevTradingDaySkipsWeekend(t *testing.T) {
    mon := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
    got := PrevTradingDay(mon)
    if got.Weekday() != time.Friday {
        t.Fatalf("expected friday, got %v", got.Weekday())
    }
    if DayKey(got) != "2026-01-02" {
        t.Fatalf("unexpected day %s", DayKey(got))
    }
}
