package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	drepo "SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/engine"
	applogger "SpikeWatch/pkg/logger"
)

// Candidates need at least this many alerts across the tested days before
// their win rate means anything.
const minAlertsForRank = 10

// Grid enumerates threshold values to sweep. Empty dimensions pin the
// session defaults.
type Grid struct {
	S1RelVol []float64
	S1Pct    []float64
	S2RelVol []float64
	S2Pct    []float64
}

// Combos returns the Cartesian product of the grid dimensions.
func (g Grid) Combos() []engine.Overrides {
	dims := func(vals []float64) []float64 {
		if len(vals) == 0 {
			return []float64{0} // zero keeps the session base
		}
		return vals
	}
	var out []engine.Overrides
	for _, a := range dims(g.S1RelVol) {
		for _, b := range dims(g.S1Pct) {
			for _, c := range dims(g.S2RelVol) {
				for _, d := range dims(g.S2Pct) {
					out = append(out, engine.Overrides{
						S1MinRelVol:    a,
						S1MinPctChange: b,
						S2MinRelVol:    c,
						S2MinPctChange: d,
					})
				}
			}
		}
	}
	return out
}

// Candidate is one parameter combination with its aggregated outcome.
type Candidate struct {
	Overrides engine.Overrides

	Alerts     int
	Wins       int
	Losses     int
	Timeouts   int
	WinRate    float64
	AvgGainPct float64
	Ranked     bool // enough alerts to be comparable
}

// Optimizer sweeps a threshold grid over recorded days, replaying each
// combination through the simulator in parallel.
type Optimizer struct {
	source    drepo.BarSource
	baselines drepo.BaselineStore
	cfg       Config
	days      []time.Time
	symbols   []string
	workers   int
	log       *applogger.Logger
}

// NewOptimizer creates an Optimizer. workers <= 0 means 4.
func NewOptimizer(source drepo.BarSource, baselines drepo.BaselineStore, cfg Config, days []time.Time, symbols []string, workers int, log *applogger.Logger) *Optimizer {
	if workers <= 0 {
		workers = 4
	}
	return &Optimizer{
		source:    source,
		baselines: baselines,
		cfg:       cfg,
		days:      days,
		symbols:   symbols,
		workers:   workers,
		log:       log,
	}
}

// Run evaluates every grid combination and returns candidates sorted
// best-first: rankable ones by win rate then average gain, the rest after.
func (o *Optimizer) Run(ctx context.Context, grid Grid) ([]Candidate, error) {
	combos := grid.Combos()
	if len(combos) == 0 {
		return nil, fmt.Errorf("empty grid")
	}
	if len(o.days) == 0 {
		return nil, fmt.Errorf("no days to replay")
	}

	results := make([]Candidate, len(combos))
	errs := make([]error, len(combos))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = o.evaluate(ctx, combos[i])
			}
		}()
	}
	for i := range combos {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Ranked != b.Ranked {
			return a.Ranked
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		return a.AvgGainPct > b.AvgGainPct
	})

	if o.log != nil && len(results) > 0 {
		best := results[0]
		o.log.Info("grid search complete",
			applogger.Int("combos", len(combos)),
			applogger.Any("best_win_rate", best.WinRate),
			applogger.Any("best_avg_gain", best.AvgGainPct),
			applogger.Int("best_alerts", best.Alerts))
	}
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, ov engine.Overrides) (Candidate, error) {
	c := Candidate{Overrides: ov}
	sim := NewSimulator(o.source, o.baselines, o.cfg, &ov, nil)

	var gainSum float64
	for _, day := range o.days {
		res, err := sim.Run(ctx, day, o.symbols)
		if err != nil {
			return c, fmt.Errorf("replay %s: %w", day.Format("2006-01-02"), err)
		}
		c.Alerts += len(res.Alerts)
		c.Wins += res.Wins
		c.Losses += res.Losses
		c.Timeouts += res.Timeouts
		for _, out := range res.Outcomes {
			gainSum += out.GainPct
		}
	}

	decided := c.Wins + c.Losses + c.Timeouts
	if decided > 0 {
		c.WinRate = float64(c.Wins) / float64(decided)
		c.AvgGainPct = gainSum / float64(decided)
	}
	c.Ranked = c.Alerts >= minAlertsForRank
	return c, nil
}
