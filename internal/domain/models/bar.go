package models

import "time"

// Session identifies the active trading window for a bar's timestamp.
type Session string

const (
	SessionPremarket  Session = "PREMARKET"
	SessionRegular    Session = "REGULAR"
	SessionPostmarket Session = "POSTMARKET"
	SessionClosed     Session = "CLOSED"
)

// Stage is the confidence level of a detected momentum setup.
type Stage int

const (
	StageWatch Stage = iota
	Stage1           // early detection
	Stage2           // confirmed breakout
	Stage3           // fast-break / parabolic
)

func (s Stage) String() string {
	switch s {
	case Stage1:
		return "STAGE1"
	case Stage2:
		return "STAGE2"
	case Stage3:
		return "STAGE3"
	default:
		return "WATCH"
	}
}

// ParseStage maps a stage label back to its Stage. Unknown labels map to
// WATCH.
func ParseStage(s string) Stage {
	switch s {
	case "STAGE1":
		return Stage1
	case "STAGE2":
		return Stage2
	case "STAGE3":
		return Stage3
	default:
		return StageWatch
	}
}

// MinuteBar is one finalized per-symbol minute aggregate. Immutable once
// produced; exactly one per symbol per minute.
type MinuteBar struct {
	Symbol     string
	Timestamp  time.Time // minute boundary, exchange-local
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
}

// BodyRatio is the fraction of the high-low range occupied by the open-close
// body. Defined as 1.0 when high == low.
func (b MinuteBar) BodyRatio() float64 {
	rng := b.High - b.Low
	if rng <= 0 {
		return 1.0
	}
	body := b.Close - b.Open
	if body < 0 {
		body = -body
	}
	return body / rng
}

// PctChange is open-to-close change of the bar, in percent.
func (b MinuteBar) PctChange() float64 {
	if b.Open <= 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// Quote is a transient best bid/offer snapshot, used only for spread
// estimation when present.
type Quote struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// SpreadRatio returns (ask-bid)/mid, or 0 when the quote is unusable.
func (q Quote) SpreadRatio() float64 {
	mid := (q.Bid + q.Ask) / 2
	if q.Bid <= 0 || q.Ask <= q.Bid || mid <= 0 {
		return 0
	}
	return (q.Ask - q.Bid) / mid
}

// VolumeProfile classifies participation by average trade size.
type VolumeProfile string

const (
	ProfileInstitutional VolumeProfile = "INSTITUTIONAL" // >500 shares/trade
	ProfileMixed         VolumeProfile = "MIXED"         // 200-500
	ProfileRetail        VolumeProfile = "RETAIL"        // <200
)

// ClassifyVolume buckets average trade size into a VolumeProfile.
func ClassifyVolume(avgTradeSize float64) VolumeProfile {
	switch {
	case avgTradeSize > 500:
		return ProfileInstitutional
	case avgTradeSize >= 200:
		return ProfileMixed
	default:
		return ProfileRetail
	}
}
