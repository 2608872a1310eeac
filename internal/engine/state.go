package engine

import (
	"time"

	"SpikeWatch/internal/domain/models"
)

const (
	// Trailing window feeding the relative-volume denominator.
	volLookback = 3
	// Bounded close-price history for consolidation checks.
	priceHistoryCap = 10
)

// SetupSnapshot captures the bar that promoted a symbol into STAGE1.
type SetupSnapshot struct {
	Price  float64
	Volume int64
	RelVol float64
	At     time.Time
}

// SymbolState is the per-symbol rolling record owned by the Engine. It is
// bookkeeping plus derived-metric accessors; no stage logic lives here.
type SymbolState struct {
	Symbol string

	Stage        models.Stage
	StageEntered time.Time
	Setup        SetupSnapshot
	barsInStage  int

	// Reason the last run was torn down, for diagnostics.
	LastInvalidation string

	// Day-scoped accumulators.
	day         time.Time
	vwapNum     float64 // sum(price*volume)
	vwapDen     float64 // sum(volume)
	sessionOpen float64

	volWindow []int64   // previous bars' volumes, current excluded
	priceHist []float64 // recent closes, bounded

	prevBar   *models.MinuteBar
	lastTS    time.Time
	lastQuote *models.Quote

	// Stages already alerted within the current uninterrupted run.
	alerted map[models.Stage]bool
}

func newSymbolState(symbol string) *SymbolState {
	return &SymbolState{
		Symbol:  symbol,
		Stage:   models.StageWatch,
		alerted: make(map[models.Stage]bool),
	}
}

// resetDay clears day-scoped fields at a trading-day boundary. VWAP
// accumulators are monotonic non-negative sums reset only here.
func (s *SymbolState) resetDay(day time.Time) {
	s.day = day
	s.vwapNum = 0
	s.vwapDen = 0
	s.sessionOpen = 0
	s.volWindow = s.volWindow[:0]
	s.priceHist = s.priceHist[:0]
	s.prevBar = nil
	s.Stage = models.StageWatch
	s.Setup = SetupSnapshot{}
	s.barsInStage = 0
	s.alerted = make(map[models.Stage]bool)
}

// apply ingests one finalized bar: VWAP accumulators, rolling windows,
// previous-bar tracking. Returns the relative volume computed against the
// trailing window before the bar was added to it.
func (s *SymbolState) apply(bar *models.MinuteBar) (relVol float64) {
	day := TradingDay(bar.Timestamp)
	if !day.Equal(s.day) {
		s.resetDay(day)
	}
	if s.sessionOpen == 0 {
		s.sessionOpen = bar.Open
	}

	relVol = s.relVolumeOf(bar.Volume)

	// Typical price weighting keeps VWAP sane on bars whose close prints
	// at an extreme.
	typical := (bar.High + bar.Low + bar.Close) / 3
	s.vwapNum += typical * float64(bar.Volume)
	s.vwapDen += float64(bar.Volume)

	s.volWindow = append(s.volWindow, bar.Volume)
	if len(s.volWindow) > volLookback {
		s.volWindow = s.volWindow[1:]
	}
	s.priceHist = append(s.priceHist, bar.Close)
	if len(s.priceHist) > priceHistoryCap {
		s.priceHist = s.priceHist[1:]
	}

	s.prevBar = bar
	s.lastTS = bar.Timestamp
	if s.Stage != models.StageWatch {
		s.barsInStage++
	}
	return relVol
}

// relVolumeOf computes volume relative to the trailing average. With no
// history the denominator clamps to 1 share so first bars read as large.
func (s *SymbolState) relVolumeOf(volume int64) float64 {
	if len(s.volWindow) == 0 {
		return float64(volume)
	}
	var sum int64
	for _, v := range s.volWindow {
		sum += v
	}
	avg := float64(sum) / float64(len(s.volWindow))
	if avg < 1 {
		avg = 1
	}
	return float64(volume) / avg
}

// VWAP is the cumulative volume-weighted average price since day open.
func (s *SymbolState) VWAP() float64 {
	if s.vwapDen <= 0 {
		return 0
	}
	return s.vwapNum / s.vwapDen
}

// PctFromSessionOpen is the move from the first bar of the day, percent.
func (s *SymbolState) PctFromSessionOpen(price float64) float64 {
	if s.sessionOpen <= 0 {
		return 0
	}
	return (price - s.sessionOpen) / s.sessionOpen * 100
}

// Consolidated reports whether the trailing closes before the current bar
// sat inside a tight band, i.e. the breakout came out of a base.
func (s *SymbolState) Consolidated() bool {
	const window, tolerancePct = 4, 2.0
	// Exclude the bar just applied.
	n := len(s.priceHist) - 1
	if n < window {
		return false
	}
	hist := s.priceHist[n-window : n]
	lo, hi := hist[0], hist[0]
	for _, p := range hist[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if lo <= 0 {
		return false
	}
	return (hi-lo)/lo*100 <= tolerancePct
}

// SpreadRatio returns the live quote's spread when one is fresh, otherwise
// a price-tiered estimate. The bool reports whether it was estimated.
func (s *SymbolState) SpreadRatio(price float64) (float64, bool) {
	if q := s.lastQuote; q != nil {
		if r := q.SpreadRatio(); r > 0 {
			return r, false
		}
	}
	return EstimateSpread(price), true
}

// ObserveQuote records the latest best bid/offer for spread estimation.
func (s *SymbolState) ObserveQuote(q *models.Quote) {
	if q == nil || q.Bid <= 0 || q.Ask <= q.Bid {
		return
	}
	s.lastQuote = q
}
