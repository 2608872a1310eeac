package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"SpikeWatch/pkg/util"
)

// WriteOutcomeReport writes one day's alert outcomes to a CSV under dir,
// named by the replayed day. Returns the written path.
func WriteOutcomeReport(dir string, res *Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	path := filepath.Join(dir, "outcomes_"+util.DayKey(res.Day)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ts", "symbol", "stage", "session", "entry", "quality",
		"rel_volume", "pct_change", "confirm_path", "outcome", "exit", "gain_pct", "held_min"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, o := range res.Outcomes {
		a := o.Alert
		row := []string{
			a.Timestamp.Format("2006-01-02T15:04:05"),
			a.Symbol,
			a.Stage.String(),
			string(a.Session),
			fmtF(a.Price),
			fmtF(a.Quality.Final),
			fmtF(a.RelVolume),
			fmtF(a.PctChange),
			a.ConfirmPath,
			string(o.Kind),
			fmtF(o.ExitPrice),
			fmtF(o.GainPct),
			fmtF(o.Held.Minutes()),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

// WriteGridReport writes ranked grid-search candidates to a CSV.
func WriteGridReport(dir string, candidates []Candidate) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	path := filepath.Join(dir, "grid_search.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"rank", "s1_rel_vol", "s1_pct", "s2_rel_vol", "s2_pct",
		"alerts", "wins", "losses", "timeouts", "win_rate", "avg_gain_pct", "ranked"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, c := range candidates {
		row := []string{
			strconv.Itoa(i + 1),
			fmtF(c.Overrides.S1MinRelVol),
			fmtF(c.Overrides.S1MinPctChange),
			fmtF(c.Overrides.S2MinRelVol),
			fmtF(c.Overrides.S2MinPctChange),
			strconv.Itoa(c.Alerts),
			strconv.Itoa(c.Wins),
			strconv.Itoa(c.Losses),
			strconv.Itoa(c.Timeouts),
			fmtF(c.WinRate),
			fmtF(c.AvgGainPct),
			strconv.FormatBool(c.Ranked),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
