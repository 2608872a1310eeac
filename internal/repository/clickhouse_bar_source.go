package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SpikeWatch/internal/domain/models"
	pkgch "SpikeWatch/pkg/clickhouse"
)

// BarSchema holds the idempotent DDL for the recorded-bar table.
var BarSchema = []string{
	`CREATE DATABASE IF NOT EXISTS spikewatch`,
	`CREATE TABLE IF NOT EXISTS spikewatch.minute_bars (
        ts          DateTime64(3),
        symbol      LowCardinality(String),
        open        Float64,
        high        Float64,
        low         Float64,
        close       Float64,
        volume      Int64,
        trade_count Int64
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (symbol, ts)`,
}

// CHBarRecorder appends live minute bars so later backtests can replay
// them. Batched to reduce round-trips.
type CHBarRecorder struct {
	db *sql.DB
}

func NewCHBarRecorder(ch *pkgch.Client) *CHBarRecorder {
	return &CHBarRecorder{db: ch.DB()}
}

func (r *CHBarRecorder) StoreBatch(ctx context.Context, bars []*models.MinuteBar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Timestamp, b.Symbol, b.Open, b.High,
				b.Low, b.Close, b.Volume, b.TradeCount)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO spikewatch.minute_bars (ts, symbol, open, high, low, close, volume, trade_count) VALUES " + strings.Join(values, ",")
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

// CHBarSource replays recorded minute bars from ClickHouse for backtests.
type CHBarSource struct {
	db *sql.DB
}

func NewCHBarSource(ch *pkgch.Client) *CHBarSource {
	return &CHBarSource{db: ch.DB()}
}

func (s *CHBarSource) Bars(ctx context.Context, day time.Time, symbols []string) (map[string][]models.MinuteBar, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	q := `SELECT ts, symbol, open, high, low, close, volume, trade_count
        FROM spikewatch.minute_bars
        WHERE ts >= ? AND ts < ?`
	args := []interface{}{from, to}
	if len(symbols) > 0 {
		q += ` AND symbol IN (?)`
		args = append(args, symbols)
	}
	q += ` ORDER BY symbol, ts ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.MinuteBar)
	for rows.Next() {
		var b models.MinuteBar
		if err := rows.Scan(&b.Timestamp, &b.Symbol, &b.Open, &b.High,
			&b.Low, &b.Close, &b.Volume, &b.TradeCount); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	return out, rows.Err()
}
