package models

import "time"

// ScoreBreakdown carries the quality score sub-components for one bar.
type ScoreBreakdown struct {
	RelVolume     float64 // 0-28
	PctChange     float64 // 0-18
	VolumeAbs     float64 // 0-14
	TradeDensity  float64 // 0-12
	SpreadTight   float64 // 0-10
	FollowThrough float64 // 0-18
	ParabolicPen  float64 // 0 to -6
	ChurnPen      float64 // 0 to -4
	Raw           float64 // sum before liquidity weighting
	Final         float64 // after liquidity weighting, clamped to [0,100]
}

// AlertEvent is an actionable signal emitted on a stage promotion that
// cleared the quality gate. Immutable once emitted.
type AlertEvent struct {
	Symbol    string
	Stage     Stage
	Session   Session
	Timestamp time.Time

	Price      float64
	VWAP       float64
	Volume     int64
	TradeCount int64
	RelVolume  float64
	PctChange  float64

	Quality ScoreBreakdown

	// Risk parameters
	StopLoss   float64
	Target     float64
	RiskReward float64

	// Context
	SpreadRatio     float64
	SpreadEstimated bool // no live quote, spread derived from price tier
	VWAPOffsetPct   float64
	BodyRatio       float64
	Profile         VolumeProfile
	Consolidated    bool
	HeldFor         time.Duration // time since the run entered STAGE1

	// Which stage-2 gate fired: "primary" or "alternative". Empty for
	// other stages.
	ConfirmPath string
}

// OutcomeKind is the terminal classification of a simulated trade.
type OutcomeKind string

const (
	OutcomeStop    OutcomeKind = "STOP"
	OutcomeTarget  OutcomeKind = "TARGET"
	OutcomeTimeout OutcomeKind = "TIMEOUT"
)

// TradeOutcome is the simulated result for one alert (backtest only).
// Derived once, never mutated.
type TradeOutcome struct {
	Alert     *AlertEvent
	Kind      OutcomeKind
	ExitPrice float64
	GainPct   float64
	Held      time.Duration
}
