package models

// Baseline holds per-symbol 20-day statistics used to scale session
// thresholds and weight quality scores. Loaded once at startup, read-only.
type Baseline struct {
	Symbol          string
	AvgVolume20d    float64 // shares/day
	AvgRange20d     float64 // dollars, high-low daily average
	LiquidityWeight float64 // [0,1], derived from dollar volume
}

// ThresholdSet is the concrete numeric limit bundle for one (session, stage)
// resolution. Never mutated after derivation within a session.
type ThresholdSet struct {
	Session Session

	// Stage 1 (early detection)
	S1MinRelVol     float64
	S1MinPctChange  float64
	S1MinVWAPOffset float64 // percent above VWAP

	// Stage 2 (confirmed breakout)
	S2MinRelVol     float64
	S2MinPctChange  float64
	S2MinVWAPOffset float64

	// Shared gates
	MinVolume      int64
	MinTrades      int64
	MaxSpreadRatio float64
	MinBodyRatio   float64

	// Liquidity gate: when true the symbol is tracked for bookkeeping but
	// never promoted or alerted.
	Ineligible bool
}
