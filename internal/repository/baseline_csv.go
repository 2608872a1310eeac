package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"SpikeWatch/internal/domain/models"
	applogger "SpikeWatch/pkg/logger"
)

// Liquidity weight anchors: zero weight at the floor, full weight at
// names trading ten million shares a day or more.
const (
	weightFloorVolume = 300_000.0
	weightFullVolume  = 10_000_000.0
)

// CSVBaselineStore loads per-symbol 20-day statistics from a CSV file at
// startup and serves them from memory. Rows: symbol,avg_volume,avg_range.
type CSVBaselineStore struct {
	baselines map[string]models.Baseline
}

// LoadCSVBaselines reads the baseline file. Rows that fail to parse are
// skipped and counted, not fatal; baselines degrade gracefully to session
// defaults for any symbol missing here.
func LoadCSVBaselines(path string, log *applogger.Logger) (*CSVBaselineStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baselines: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	store := &CSVBaselineStore{baselines: make(map[string]models.Baseline)}
	var skipped int
	for line := 0; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read baselines: %w", err)
		}
		if line == 0 && strings.EqualFold(rec[0], "symbol") {
			continue // header
		}
		if len(rec) < 3 {
			skipped++
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(rec[0]))
		avgVol, err1 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		avgRange, err2 := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if symbol == "" || err1 != nil || err2 != nil || avgVol < 0 || avgRange < 0 {
			skipped++
			continue
		}
		store.baselines[symbol] = models.Baseline{
			Symbol:          symbol,
			AvgVolume20d:    avgVol,
			AvgRange20d:     avgRange,
			LiquidityWeight: liquidityWeight(avgVol),
		}
	}

	if log != nil {
		log.Info("baselines loaded",
			applogger.String("path", path),
			applogger.Int("symbols", len(store.baselines)),
			applogger.Int("skipped", skipped))
	}
	return store, nil
}

func (s *CSVBaselineStore) Get(symbol string) (models.Baseline, bool) {
	b, ok := s.baselines[symbol]
	return b, ok
}

func (s *CSVBaselineStore) Len() int { return len(s.baselines) }

// liquidityWeight maps average daily volume onto [0,1] on a log scale.
func liquidityWeight(avgVolume float64) float64 {
	if avgVolume <= weightFloorVolume {
		return 0
	}
	if avgVolume >= weightFullVolume {
		return 1
	}
	return math.Log10(avgVolume/weightFloorVolume) / math.Log10(weightFullVolume/weightFloorVolume)
}
