package repository

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFlatFile(t *testing.T, dir, day, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, day+".csv.gz"))
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestFlatFileBarSource(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

	ts1 := time.Date(2026, 1, 6, 9, 30, 0, 0, time.UTC).UnixNano()
	ts2 := time.Date(2026, 1, 6, 9, 31, 0, 0, time.UTC).UnixNano()

	writeFlatFile(t, dir, "2026-01-06",
		"ticker,volume,open,close,high,low,window_start,transactions\n"+
			// Out of order on purpose; the source must sort per symbol.
			"AAPL,120000,185.0,185.4,185.5,184.9,"+itoa(ts2)+",420\n"+
			"AAPL,100000,184.5,185.0,185.1,184.4,"+itoa(ts1)+",380\n"+
			"TLRY,50000,2.10,2.25,2.26,2.09,"+itoa(ts1)+",90\n"+
			"JUNK,notanumber,1,1,1,1,"+itoa(ts1)+",1\n")

	src := NewFlatFileBarSource(dir, time.UTC)
	bars, err := src.Bars(context.Background(), day, nil)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	aapl := bars["AAPL"]
	require.Len(t, aapl, 2)
	require.True(t, aapl[0].Timestamp.Before(aapl[1].Timestamp))
	require.Equal(t, 184.5, aapl[0].Open)
	require.Equal(t, int64(380), aapl[0].TradeCount)

	// Symbol filter.
	bars, err = src.Bars(context.Background(), day, []string{"tlry"})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Len(t, bars["TLRY"], 1)
}

func TestFlatFileBarSourceMissingDay(t *testing.T) {
	src := NewFlatFileBarSource(t.TempDir(), time.UTC)
	_, err := src.Bars(context.Background(), time.Now(), nil)
	require.Error(t, err)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
