package engine

import (
	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"
	applogger "SpikeWatch/pkg/logger"
)

// Quality gates per stage. Promotions that clear the transition rules but
// miss the gate still advance the stage, silently.
const (
	stage1QualityGate    = 50.0
	stage2QualityGate    = 60.0
	stage2AltQualityGate = 58.0
	stage3QualityGate    = 60.0

	// Minimum price expansion beyond the setup price for confirmation.
	stage2ExpansionMinPct = 1.5
	// The alternative confirmation path accepts a lower combined bar.
	stage2AltBarFrac = 0.85
	// Fast-break: percent change at this multiple of the stage-2 bar.
	stage3ParabolicMult = 1.75
	// Stage-1 volume must not fade below this fraction of the prior bar.
	stage1VolumeFloorFrac = 0.60
	// Stage-2 volume must hold this fraction of the setup bar.
	stage2VolumeFloorFrac = 0.80
)

// Bar discard reasons (metric labels).
const (
	discardBadPrice  = "bad_price"
	discardBadVolume = "bad_volume"
	discardStale     = "stale_timestamp"
)

// Engine runs the stage machine over finalized minute bars. State is keyed
// and disjoint per symbol; the engine itself is not safe for concurrent
// use — callers feed it one ordered event stream.
type Engine struct {
	baselines drepo.BaselineStore
	metrics   drepo.Metrics
	log       *applogger.Logger
	overrides *Overrides

	states map[string]*SymbolState
}

// New creates an Engine. baselines and log may be nil; metrics may be nil
// (a no-op recorder is substituted, which backtests rely on).
func New(baselines drepo.BaselineStore, metrics drepo.Metrics, log *applogger.Logger, ov *Overrides) *Engine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Engine{
		baselines: baselines,
		metrics:   metrics,
		log:       log,
		overrides: ov,
		states:    make(map[string]*SymbolState),
	}
}

// State returns the tracked state for a symbol, or nil if never seen.
func (e *Engine) State(symbol string) *SymbolState {
	return e.states[symbol]
}

// Reset drops all per-symbol state. Backtests call this between days.
func (e *Engine) Reset() {
	e.states = make(map[string]*SymbolState)
}

// OnQuote records a best bid/offer for later spread checks.
func (e *Engine) OnQuote(q *models.Quote) {
	if q == nil || q.Symbol == "" {
		return
	}
	e.state(q.Symbol).ObserveQuote(q)
}

// OnBar consumes one finalized minute bar and returns at most one
// AlertEvent. Malformed bars are dropped without touching state; a single
// symbol's bad data never aborts processing of others.
func (e *Engine) OnBar(bar *models.MinuteBar) *models.AlertEvent {
	if bar == nil || bar.Symbol == "" {
		return nil
	}
	if bar.Open <= 0 || bar.Close <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.High < bar.Low {
		e.metrics.RecordBarDiscarded(discardBadPrice)
		return nil
	}
	if bar.Volume < 0 || bar.TradeCount < 0 {
		e.metrics.RecordBarDiscarded(discardBadVolume)
		return nil
	}

	session := ResolveSession(bar.Timestamp)
	if session == models.SessionClosed {
		return nil
	}

	st := e.state(bar.Symbol)
	if !st.lastTS.IsZero() && !bar.Timestamp.After(st.lastTS) {
		e.metrics.RecordBarDiscarded(discardStale)
		return nil
	}

	prev := st.prevBar
	relVol := st.apply(bar)
	e.metrics.RecordBarProcessed(string(session))
	e.metrics.RecordLastPrice(bar.Symbol, bar.Close)

	vwap := st.VWAP()

	// Invalidation runs before any promotion rule. Revocation is
	// unconditional and immediate; re-promotion waits for a later bar.
	if st.Stage != models.StageWatch {
		var prevVol int64
		if prev != nil {
			prevVol = prev.Volume
		}
		if reason := CheckInvalidation(bar, vwap, prevVol); reason != "" {
			e.invalidate(st, reason)
			return nil
		}
	}

	var baseline *models.Baseline
	if e.baselines != nil {
		if bl, ok := e.baselines.Get(bar.Symbol); ok {
			baseline = &bl
		}
	}
	th := ResolveThresholds(session, baseline, bar.Close, e.overrides)
	if th.Ineligible {
		return nil
	}

	switch st.Stage {
	case models.StageWatch:
		return e.tryStage1(st, bar, prev, relVol, vwap, th, baseline)
	case models.Stage1:
		return e.tryStage2(st, bar, relVol, vwap, th, baseline)
	case models.Stage2:
		return e.tryStage3(st, bar, relVol, vwap, th, baseline)
	default:
		return nil
	}
}

func (e *Engine) state(symbol string) *SymbolState {
	st, ok := e.states[symbol]
	if !ok {
		st = newSymbolState(symbol)
		e.states[symbol] = st
	}
	return st
}

func (e *Engine) invalidate(st *SymbolState, reason string) {
	from := st.Stage
	st.Stage = models.StageWatch
	st.Setup = SetupSnapshot{}
	st.barsInStage = 0
	st.alerted = make(map[models.Stage]bool)
	st.LastInvalidation = reason
	e.metrics.RecordInvalidation(reason)
	if e.log != nil {
		e.log.Debug("flag invalidated",
			applogger.String("symbol", st.Symbol),
			applogger.String("from", from.String()),
			applogger.String("reason", reason))
	}
}

func (e *Engine) tryStage1(st *SymbolState, bar, prev *models.MinuteBar, relVol, vwap float64, th models.ThresholdSet, baseline *models.Baseline) *models.AlertEvent {
	pct := bar.PctChange()
	spread, estimated := st.SpreadRatio(bar.Close)

	volumeHolds := prev == nil || float64(bar.Volume) >= float64(prev.Volume)*stage1VolumeFloorFrac

	if relVol < th.S1MinRelVol ||
		pct < th.S1MinPctChange ||
		bar.TradeCount < th.MinTrades ||
		spread > th.MaxSpreadRatio ||
		bar.BodyRatio() < th.MinBodyRatio ||
		vwapOffsetPct(bar.Close, vwap) < th.S1MinVWAPOffset ||
		!volumeHolds {
		return nil
	}

	st.Stage = models.Stage1
	st.StageEntered = bar.Timestamp
	st.barsInStage = 0
	st.Setup = SetupSnapshot{Price: bar.Close, Volume: bar.Volume, RelVol: relVol, At: bar.Timestamp}

	score := Score(ScoreInput{
		RelVol:          relVol,
		PctChange:       pct,
		Volume:          bar.Volume,
		VolThreshold:    th.MinVolume,
		TradeCount:      bar.TradeCount,
		SpreadRatio:     spread,
		SpreadLimit:     th.MaxSpreadRatio,
		ExpansionPct:    pct, // promotion bar seeds the expansion
		VolumeSustained: volumeHolds,
		AvgTradeSize:    avgTradeSize(bar),
		LiquidityWeight: liquidityWeight(baseline),
	})

	if score.Final < stage1QualityGate {
		e.metrics.RecordSilentPromotion(models.Stage1.String())
		return nil
	}
	e.metrics.RecordPromotion(models.Stage1.String())
	st.alerted[models.Stage1] = true
	e.metrics.RecordAlertEmitted(models.Stage1.String())
	return e.buildAlert(st, bar, relVol, vwap, th, score, spread, estimated, "")
}

func (e *Engine) tryStage2(st *SymbolState, bar *models.MinuteBar, relVol, vwap float64, th models.ThresholdSet, baseline *models.Baseline) *models.AlertEvent {
	pct := bar.PctChange()
	spread, estimated := st.SpreadRatio(bar.Close)

	expansion := expansionPct(bar.Close, st.Setup.Price)
	accelerating := relVol >= st.Setup.RelVol
	sustained := float64(bar.Volume) >= float64(st.Setup.Volume)*stage2VolumeFloorFrac

	shared := bar.Volume >= th.MinVolume &&
		bar.TradeCount >= th.MinTrades &&
		spread <= th.MaxSpreadRatio &&
		bar.BodyRatio() >= th.MinBodyRatio &&
		vwapOffsetPct(bar.Close, vwap) >= th.S2MinVWAPOffset

	confirmed := shared && expansion >= stage2ExpansionMinPct && accelerating && sustained
	if !confirmed {
		return nil
	}

	score := Score(ScoreInput{
		RelVol:          relVol,
		PctChange:       pct,
		Volume:          bar.Volume,
		VolThreshold:    th.MinVolume,
		TradeCount:      bar.TradeCount,
		SpreadRatio:     spread,
		SpreadLimit:     th.MaxSpreadRatio,
		ExpansionPct:    expansion,
		Accelerating:    accelerating,
		VolumeSustained: sustained,
		AvgTradeSize:    avgTradeSize(bar),
		LiquidityWeight: liquidityWeight(baseline),
	})

	// Primary and alternative confirmation are independent OR'd gates.
	// The alternative accepts a lower combined bar but demands a higher
	// quality floor to make up for it.
	primaryBar := relVol >= th.S2MinRelVol && pct >= th.S2MinPctChange
	altBar := relVol >= th.S2MinRelVol*stage2AltBarFrac && pct >= th.S2MinPctChange*stage2AltBarFrac

	var path string
	switch {
	case primaryBar:
		path = "primary"
	case altBar && score.Final >= stage2AltQualityGate:
		path = "alternative"
	default:
		return nil
	}

	st.Stage = models.Stage2
	st.barsInStage = 0
	if e.log != nil {
		e.log.Debug("stage2 confirmation",
			applogger.String("symbol", st.Symbol),
			applogger.String("path", path))
	}

	gate := stage2QualityGate
	if path == "alternative" {
		gate = stage2AltQualityGate
	}

	var alert *models.AlertEvent
	if score.Final >= gate && !st.alerted[models.Stage2] {
		e.metrics.RecordPromotion(models.Stage2.String())
		st.alerted[models.Stage2] = true
		alert = e.buildAlert(st, bar, relVol, vwap, th, score, spread, estimated, path)
	} else {
		e.metrics.RecordSilentPromotion(models.Stage2.String())
	}

	// A parabolic bar can escalate straight through stage 2. The
	// escalation supersedes the stage-2 alert, which is then never
	// counted as emitted.
	if esc := e.tryStage3(st, bar, relVol, vwap, th, baseline); esc != nil {
		return esc
	}
	if alert != nil {
		e.metrics.RecordAlertEmitted(models.Stage2.String())
	}
	return alert
}

func (e *Engine) tryStage3(st *SymbolState, bar *models.MinuteBar, relVol, vwap float64, th models.ThresholdSet, baseline *models.Baseline) *models.AlertEvent {
	// Fast-breaks only count within the stage-2 bar or the one after it.
	if st.barsInStage > 1 {
		return nil
	}
	pct := bar.PctChange()
	if pct < th.S2MinPctChange*stage3ParabolicMult {
		return nil
	}

	spread, estimated := st.SpreadRatio(bar.Close)
	expansion := expansionPct(bar.Close, st.Setup.Price)
	sustained := float64(bar.Volume) >= float64(st.Setup.Volume)*stage2VolumeFloorFrac

	st.Stage = models.Stage3
	st.barsInStage = 0

	score := Score(ScoreInput{
		RelVol:          relVol,
		PctChange:       pct,
		Volume:          bar.Volume,
		VolThreshold:    th.MinVolume,
		TradeCount:      bar.TradeCount,
		SpreadRatio:     spread,
		SpreadLimit:     th.MaxSpreadRatio,
		ExpansionPct:    expansion,
		Accelerating:    relVol >= st.Setup.RelVol,
		VolumeSustained: sustained,
		AvgTradeSize:    avgTradeSize(bar),
		LiquidityWeight: liquidityWeight(baseline),
	})

	if score.Final < stage3QualityGate || st.alerted[models.Stage3] {
		e.metrics.RecordSilentPromotion(models.Stage3.String())
		return nil
	}
	e.metrics.RecordPromotion(models.Stage3.String())
	st.alerted[models.Stage3] = true
	e.metrics.RecordAlertEmitted(models.Stage3.String())
	return e.buildAlert(st, bar, relVol, vwap, th, score, spread, estimated, "")
}

func (e *Engine) buildAlert(st *SymbolState, bar *models.MinuteBar, relVol, vwap float64, th models.ThresholdSet, score models.ScoreBreakdown, spread float64, estimated bool, path string) *models.AlertEvent {
	pct := bar.PctChange()
	stop, target := RiskLevels(st.Stage, bar.Close, vwap, pct, score.Final)

	a := &models.AlertEvent{
		Symbol:          st.Symbol,
		Stage:           st.Stage,
		Session:         th.Session,
		Timestamp:       bar.Timestamp,
		Price:           bar.Close,
		VWAP:            vwap,
		Volume:          bar.Volume,
		TradeCount:      bar.TradeCount,
		RelVolume:       relVol,
		PctChange:       pct,
		Quality:         score,
		StopLoss:        stop,
		Target:          target,
		RiskReward:      RiskReward(bar.Close, stop, target),
		SpreadRatio:     spread,
		SpreadEstimated: estimated,
		VWAPOffsetPct:   vwapOffsetPct(bar.Close, vwap),
		BodyRatio:       bar.BodyRatio(),
		Profile:         models.ClassifyVolume(avgTradeSize(bar)),
		Consolidated:    st.Consolidated(),
		ConfirmPath:     path,
	}
	if !st.Setup.At.IsZero() {
		a.HeldFor = bar.Timestamp.Sub(st.Setup.At)
	}
	return a
}

func vwapOffsetPct(price, vwap float64) float64 {
	if vwap <= 0 {
		return 0
	}
	return (price - vwap) / vwap * 100
}

func expansionPct(price, setupPrice float64) float64 {
	if setupPrice <= 0 {
		return 0
	}
	return (price - setupPrice) / setupPrice * 100
}

func avgTradeSize(bar *models.MinuteBar) float64 {
	if bar.TradeCount <= 0 {
		return 0
	}
	return float64(bar.Volume) / float64(bar.TradeCount)
}

func liquidityWeight(b *models.Baseline) float64 {
	if b == nil {
		return -1
	}
	return clamp(b.LiquidityWeight, 0, 1)
}

// nopMetrics satisfies the Metrics interface for metric-less runs.
type nopMetrics struct{}

func (nopMetrics) RecordBarProcessed(string)       {}
func (nopMetrics) RecordBarDiscarded(string)       {}
func (nopMetrics) RecordPromotion(string)          {}
func (nopMetrics) RecordSilentPromotion(string)    {}
func (nopMetrics) RecordInvalidation(string)       {}
func (nopMetrics) RecordAlertEmitted(string)       {}
func (nopMetrics) RecordNotifyError()              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}
