package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"SpikeWatch/internal/backtest"
	drepo "SpikeWatch/internal/domain/repository"
	internalrepo "SpikeWatch/internal/repository"
	pkgch "SpikeWatch/pkg/clickhouse"
	"SpikeWatch/pkg/config"
	applogger "SpikeWatch/pkg/logger"
	"SpikeWatch/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	daysFlag := flag.String("days", "", "comma-separated trading days (YYYY-MM-DD)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (empty = every symbol in the data)")
	s1RelVol := flag.String("s1-relvol", "", "stage 1 relative volume values to sweep")
	s1Pct := flag.String("s1-pct", "", "stage 1 percent change values to sweep")
	s2RelVol := flag.String("s2-relvol", "", "stage 2 relative volume values to sweep")
	s2Pct := flag.String("s2-pct", "", "stage 2 percent change values to sweep")
	top := flag.Int("top", 10, "number of top candidates to print")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	days, err := parseDays(*daysFlag)
	if err != nil {
		log.Fatalf("bad -days: %v", err)
	}

	l, err := applogger.New(&applogger.Config{Level: cfg.Logging.Level, Format: "console", Output: "stdout"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	baselines, err := internalrepo.LoadCSVBaselines(cfg.Scanner.BaselinePath, l)
	if err != nil {
		log.Fatalf("baselines: %v", err)
	}

	source, cleanup, err := openBarSource(cfg)
	if err != nil {
		log.Fatalf("bar source: %v", err)
	}
	defer cleanup()

	var symbols []string
	if *symbolsFlag != "" {
		for _, s := range strings.Split(*symbolsFlag, ",") {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	}

	grid := backtest.Grid{
		S1RelVol: parseFloats(*s1RelVol),
		S1Pct:    parseFloats(*s1Pct),
		S2RelVol: parseFloats(*s2RelVol),
		S2Pct:    parseFloats(*s2Pct),
	}

	simCfg := backtest.Config{
		StopPct:   cfg.Backtest.StopPct,
		TargetPct: cfg.Backtest.TargetPct,
		MaxHold:   cfg.Backtest.MaxHold,
	}
	opt := backtest.NewOptimizer(source, baselines, simCfg, days, symbols, cfg.Backtest.Workers, l)

	candidates, err := opt.Run(context.Background(), grid)
	if err != nil {
		log.Fatalf("grid search: %v", err)
	}

	n := *top
	if n > len(candidates) {
		n = len(candidates)
	}
	fmt.Printf("evaluated %d combinations over %d days\n", len(candidates), len(days))
	for i := 0; i < n; i++ {
		c := candidates[i]
		fmt.Printf("%2d. s1_relvol=%.2f s1_pct=%.2f s2_relvol=%.2f s2_pct=%.2f alerts=%d win_rate=%.1f%% avg_gain=%.2f%% ranked=%v\n",
			i+1, c.Overrides.S1MinRelVol, c.Overrides.S1MinPctChange, c.Overrides.S2MinRelVol, c.Overrides.S2MinPctChange,
			c.Alerts, c.WinRate*100, c.AvgGainPct, c.Ranked)
	}

	if cfg.Backtest.ReportDir != "" {
		path, err := backtest.WriteGridReport(cfg.Backtest.ReportDir, candidates)
		if err != nil {
			log.Printf("report write failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("report: %s\n", path)
	}
}

func parseDays(s string) ([]time.Time, error) {
	if s == "" {
		return nil, fmt.Errorf("at least one day is required")
	}
	var days []time.Time
	for _, part := range strings.Split(s, ",") {
		d, err := util.ParseDay(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// parseFloats ignores malformed entries; an empty result leaves that
// dimension at the session default.
func parseFloats(s string) []float64 {
	if s == "" {
		return nil
	}
	var vals []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		vals = append(vals, v)
	}
	return vals
}

func openBarSource(cfg *config.Config) (drepo.BarSource, func(), error) {
	switch cfg.Backtest.Source {
	case "clickhouse":
		ch, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, err
		}
		return internalrepo.NewCHBarSource(ch), func() { _ = ch.Close() }, nil
	case "", "flatfile":
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		return internalrepo.NewFlatFileBarSource(cfg.Backtest.DataDir, loc), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backtest source %q", cfg.Backtest.Source)
	}
}
