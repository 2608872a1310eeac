package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/engine"
	applogger "SpikeWatch/pkg/logger"
)

// Config bounds the simulated exit rules.
type Config struct {
	StopPct   float64       // percent below entry
	TargetPct float64       // percent above entry
	MaxHold   time.Duration // flat exit after this long in the trade
}

// DefaultConfig mirrors the live risk defaults.
func DefaultConfig() Config {
	return Config{StopPct: 2.0, TargetPct: 8.0, MaxHold: 30 * time.Minute}
}

// StageStats aggregates outcomes for one alert stage.
type StageStats struct {
	Alerts   int
	Wins     int
	Losses   int
	Timeouts int
	GainSum  float64
}

// Result is the outcome of replaying one trading day.
type Result struct {
	Day      time.Time
	Symbols  int
	Bars     int
	Alerts   []*models.AlertEvent
	Outcomes []models.TradeOutcome

	Wins       int
	Losses     int
	Timeouts   int
	WinRate    float64 // wins / decided+timeouts
	AvgGainPct float64
	MaxGainPct float64
	AvgLossPct float64 // mean over losing outcomes, negative
	MaxLossPct float64 // worst single outcome, negative
	AvgHold    time.Duration
	ByStage    map[models.Stage]*StageStats
}

// Simulator replays recorded bars through the same engine the live
// scanner runs, then walks each alert forward to a terminal outcome. No
// detection logic is duplicated here; parity with live is structural.
type Simulator struct {
	source    drepo.BarSource
	baselines drepo.BaselineStore
	cfg       Config
	overrides *engine.Overrides
	log       *applogger.Logger
}

// NewSimulator creates a Simulator. baselines, overrides, and log may be
// nil.
func NewSimulator(source drepo.BarSource, baselines drepo.BaselineStore, cfg Config, ov *engine.Overrides, log *applogger.Logger) *Simulator {
	if cfg.StopPct <= 0 {
		cfg.StopPct = DefaultConfig().StopPct
	}
	if cfg.TargetPct <= 0 {
		cfg.TargetPct = DefaultConfig().TargetPct
	}
	if cfg.MaxHold <= 0 {
		cfg.MaxHold = DefaultConfig().MaxHold
	}
	return &Simulator{source: source, baselines: baselines, cfg: cfg, overrides: ov, log: log}
}

// Run replays one trading day for the given symbols (all recorded symbols
// when empty) and returns aggregate outcomes.
func (s *Simulator) Run(ctx context.Context, day time.Time, symbols []string) (*Result, error) {
	bySymbol, err := s.source.Bars(ctx, day, symbols)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	res := &Result{
		Day:     engine.TradingDay(day),
		Symbols: len(bySymbol),
		ByStage: make(map[models.Stage]*StageStats),
	}

	// Deterministic symbol order so repeated runs produce identical
	// reports.
	syms := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	eng := engine.New(s.baselines, nil, s.log, s.overrides)
	for _, sym := range syms {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		bars := bySymbol[sym]
		res.Bars += len(bars)
		for i := range bars {
			bar := &bars[i]
			// Recorded data has no quote stream; synthesize a tight
			// book around the close so spread checks stay comparable.
			eng.OnQuote(&models.Quote{
				Symbol:    sym,
				Bid:       bar.Close * 0.9995,
				Ask:       bar.Close * 1.0005,
				Timestamp: bar.Timestamp,
			})
			if alert := eng.OnBar(bar); alert != nil {
				res.Alerts = append(res.Alerts, alert)
				outcome := s.resolve(alert, bars[i+1:])
				res.Outcomes = append(res.Outcomes, outcome)
				s.tally(res, alert, outcome)
			}
		}
	}

	decided := res.Wins + res.Losses + res.Timeouts
	if decided > 0 {
		res.WinRate = float64(res.Wins) / float64(decided)
		var gainSum, lossSum float64
		var losses int
		var holdSum time.Duration
		for _, o := range res.Outcomes {
			gainSum += o.GainPct
			holdSum += o.Held
			if o.GainPct > res.MaxGainPct {
				res.MaxGainPct = o.GainPct
			}
			if o.GainPct < res.MaxLossPct {
				res.MaxLossPct = o.GainPct
			}
			if o.GainPct < 0 {
				lossSum += o.GainPct
				losses++
			}
		}
		res.AvgGainPct = gainSum / float64(decided)
		if losses > 0 {
			res.AvgLossPct = lossSum / float64(losses)
		}
		res.AvgHold = holdSum / time.Duration(decided)
	}
	return res, nil
}

// resolve walks the bars after an alert until stop, target, or timeout.
// When one bar spans both levels the stop wins: intrabar ordering is
// unknowable from minute data, so the simulation takes the worse fill.
func (s *Simulator) resolve(alert *models.AlertEvent, rest []models.MinuteBar) models.TradeOutcome {
	entry := alert.Price
	stop := entry * (1 - s.cfg.StopPct/100)
	target := entry * (1 + s.cfg.TargetPct/100)
	deadline := alert.Timestamp.Add(s.cfg.MaxHold)

	lastClose := entry
	lastTS := alert.Timestamp
	for i := range rest {
		bar := &rest[i]
		if bar.Timestamp.After(deadline) {
			break
		}
		if bar.Low <= stop {
			return outcome(alert, models.OutcomeStop, stop, entry, bar.Timestamp)
		}
		if bar.High >= target {
			return outcome(alert, models.OutcomeTarget, target, entry, bar.Timestamp)
		}
		lastClose = bar.Close
		lastTS = bar.Timestamp
	}
	return outcome(alert, models.OutcomeTimeout, lastClose, entry, lastTS)
}

func outcome(alert *models.AlertEvent, kind models.OutcomeKind, exit, entry float64, at time.Time) models.TradeOutcome {
	return models.TradeOutcome{
		Alert:     alert,
		Kind:      kind,
		ExitPrice: exit,
		GainPct:   (exit - entry) / entry * 100,
		Held:      at.Sub(alert.Timestamp),
	}
}

func (s *Simulator) tally(res *Result, alert *models.AlertEvent, o models.TradeOutcome) {
	st := res.ByStage[alert.Stage]
	if st == nil {
		st = &StageStats{}
		res.ByStage[alert.Stage] = st
	}
	st.Alerts++
	st.GainSum += o.GainPct
	switch o.Kind {
	case models.OutcomeTarget:
		res.Wins++
		st.Wins++
	case models.OutcomeStop:
		res.Losses++
		st.Losses++
	default:
		res.Timeouts++
		st.Timeouts++
	}
}
