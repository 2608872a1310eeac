package repository

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"SpikeWatch/internal/domain/models"
	"SpikeWatch/pkg/util"
)

// FlatFileBarSource reads daily minute-aggregate flat files, one gzipped
// CSV per trading day named YYYY-MM-DD.csv.gz. Columns:
// ticker,volume,open,close,high,low,window_start,transactions with
// window_start in epoch nanoseconds.
type FlatFileBarSource struct {
	dir string
	// Exchange timezone for the replayed bars.
	loc *time.Location
}

func NewFlatFileBarSource(dir string, loc *time.Location) *FlatFileBarSource {
	if loc == nil {
		loc = time.UTC
	}
	return &FlatFileBarSource{dir: dir, loc: loc}
}

func (s *FlatFileBarSource) Bars(ctx context.Context, day time.Time, symbols []string) (map[string][]models.MinuteBar, error) {
	path := filepath.Join(s.dir, util.DayKey(day)+".csv.gz")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flat file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gunzip flat file: %w", err)
	}
	defer gz.Close()

	var want map[string]bool
	if len(symbols) > 0 {
		want = make(map[string]bool, len(symbols))
		for _, sym := range symbols {
			want[strings.ToUpper(sym)] = true
		}
	}

	r := csv.NewReader(gz)
	r.ReuseRecord = true

	out := make(map[string][]models.MinuteBar)
	for line := 0; ; line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read flat file line %d: %w", line+1, err)
		}
		if line == 0 && strings.EqualFold(rec[0], "ticker") {
			continue
		}
		if len(rec) < 8 {
			continue
		}
		symbol := strings.ToUpper(rec[0])
		if want != nil && !want[symbol] {
			continue
		}
		bar, ok := parseFlatRow(symbol, rec, s.loc)
		if !ok {
			continue
		}
		out[symbol] = append(out[symbol], bar)
	}

	// Flat files are grouped by symbol but not guaranteed time-ordered.
	for sym := range out {
		bars := out[sym]
		sort.Slice(bars, func(i, j int) bool {
			return bars[i].Timestamp.Before(bars[j].Timestamp)
		})
	}
	return out, nil
}

func parseFlatRow(symbol string, rec []string, loc *time.Location) (models.MinuteBar, bool) {
	vol, err1 := strconv.ParseInt(rec[1], 10, 64)
	openPx, err2 := strconv.ParseFloat(rec[2], 64)
	closePx, err3 := strconv.ParseFloat(rec[3], 64)
	high, err4 := strconv.ParseFloat(rec[4], 64)
	low, err5 := strconv.ParseFloat(rec[5], 64)
	ns, err6 := strconv.ParseInt(rec[6], 10, 64)
	trades, err7 := strconv.ParseInt(rec[7], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil ||
		err5 != nil || err6 != nil || err7 != nil {
		return models.MinuteBar{}, false
	}
	return models.MinuteBar{
		Symbol:     symbol,
		Timestamp:  time.Unix(0, ns).In(loc),
		Open:       openPx,
		High:       high,
		Low:        low,
		Close:      closePx,
		Volume:     vol,
		TradeCount: trades,
	}, true
}
