package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"SpikeWatch/internal/backtest"
	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"
	internalrepo "SpikeWatch/internal/repository"
	pkgch "SpikeWatch/pkg/clickhouse"
	"SpikeWatch/pkg/config"
	applogger "SpikeWatch/pkg/logger"
	"SpikeWatch/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	dayFlag := flag.String("day", "", "trading day to replay (YYYY-MM-DD)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (empty = every symbol in the data)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *dayFlag == "" {
		log.Fatal("-day is required")
	}
	day, err := util.ParseDay(*dayFlag)
	if err != nil {
		log.Fatalf("bad -day: %v", err)
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

	simCfg := backtest.Config{
		StopPct:   cfg.Backtest.StopPct,
		TargetPct: cfg.Backtest.TargetPct,
		MaxHold:   cfg.Backtest.MaxHold,
	}
	sim := backtest.NewSimulator(source, baselines, simCfg, nil, l)

	res, err := sim.Run(context.Background(), day, symbols)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	fmt.Printf("day=%s symbols=%d bars=%d alerts=%d\n", util.DayKey(day), res.Symbols, res.Bars, len(res.Alerts))
	fmt.Printf("wins=%d losses=%d timeouts=%d win_rate=%.1f%% avg_gain=%.2f%%\n",
		res.Wins, res.Losses, res.Timeouts, res.WinRate*100, res.AvgGainPct)
	for _, stage := range []models.Stage{models.Stage1, models.Stage2, models.Stage3} {
		if st, ok := res.ByStage[stage]; ok {
			fmt.Printf("  %s: alerts=%d wins=%d losses=%d timeouts=%d\n", stage, st.Alerts, st.Wins, st.Losses, st.Timeouts)
		}
	}

	if cfg.Backtest.ReportDir != "" {
		path, err := backtest.WriteOutcomeReport(cfg.Backtest.ReportDir, res)
		if err != nil {
			log.Printf("report write failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("report: %s\n", path)
	}
}

func openBarSource(cfg *config.Config) (drepo.BarSource, func(), error) {
	switch cfg.Backtest.Source {
	case "clickhouse":
		ch, err := clickhouseClient(cfg)
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

func clickhouseClient(cfg *config.Config) (*pkgch.Client, error) {
	return pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
}
