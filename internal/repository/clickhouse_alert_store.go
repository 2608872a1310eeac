package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SpikeWatch/internal/domain/models"
	pkgch "SpikeWatch/pkg/clickhouse"
	applogger "SpikeWatch/pkg/logger"
)

// AlertSchema holds the idempotent DDL for the alert table. Passed to the
// clickhouse client's InitSchema at startup.
var AlertSchema = []string{
	`CREATE DATABASE IF NOT EXISTS spikewatch`,
	`CREATE TABLE IF NOT EXISTS spikewatch.alerts (
        ts               DateTime64(3),
        symbol           LowCardinality(String),
        stage            LowCardinality(String),
        session          LowCardinality(String),
        price            Float64,
        vwap             Float64,
        volume           Int64,
        trade_count      Int64,
        rel_volume       Float64,
        pct_change       Float64,
        quality_raw      Float64,
        quality          Float64,
        stop_loss        Float64,
        target           Float64,
        risk_reward      Float64,
        spread_ratio     Float64,
        spread_estimated UInt8,
        vwap_offset_pct  Float64,
        body_ratio       Float64,
        profile          LowCardinality(String),
        consolidated     UInt8,
        held_for_sec     Float64,
        confirm_path     LowCardinality(String)
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(ts)
    ORDER BY (symbol, ts)`,
}

// CHAlertStore persists alerts to ClickHouse.
type CHAlertStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAlertStore(ch *pkgch.Client) *CHAlertStore {
	return &CHAlertStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHAlertStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHAlertStore) Store(ctx context.Context, a *models.AlertEvent) error {
	const q = `INSERT INTO spikewatch.alerts
        (ts, symbol, stage, session, price, vwap, volume, trade_count,
         rel_volume, pct_change, quality_raw, quality, stop_loss, target,
         risk_reward, spread_ratio, spread_estimated, vwap_offset_pct,
         body_ratio, profile, consolidated, held_for_sec, confirm_path)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		a.Timestamp,
		a.Symbol,
		a.Stage.String(),
		string(a.Session),
		a.Price,
		a.VWAP,
		a.Volume,
		a.TradeCount,
		a.RelVolume,
		a.PctChange,
		a.Quality.Raw,
		a.Quality.Final,
		a.StopLoss,
		a.Target,
		a.RiskReward,
		a.SpreadRatio,
		boolToUInt8(a.SpreadEstimated),
		a.VWAPOffsetPct,
		a.BodyRatio,
		string(a.Profile),
		boolToUInt8(a.Consolidated),
		a.HeldFor.Seconds(),
		a.ConfirmPath,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse alert insert error",
				applogger.String("symbol", a.Symbol),
				applogger.String("stage", a.Stage.String()),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store alert: %w", err)
	}
	return nil
}

func (s *CHAlertStore) Recent(ctx context.Context, limit int) ([]*models.AlertEvent, error) {
	const q = `SELECT ts, symbol, stage, session, price, vwap, volume,
        trade_count, rel_volume, pct_change, quality_raw, quality, stop_loss,
        target, risk_reward, spread_ratio, spread_estimated, vwap_offset_pct,
        body_ratio, profile, consolidated, held_for_sec, confirm_path
        FROM spikewatch.alerts
        ORDER BY ts DESC
        LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AlertEvent, 0, limit)
	for rows.Next() {
		var (
			a           models.AlertEvent
			stage       string
			session     string
			profile     string
			estimated   uint8
			consol      uint8
			heldSeconds float64
		)
		if err := rows.Scan(&a.Timestamp, &a.Symbol, &stage, &session,
			&a.Price, &a.VWAP, &a.Volume, &a.TradeCount, &a.RelVolume,
			&a.PctChange, &a.Quality.Raw, &a.Quality.Final, &a.StopLoss,
			&a.Target, &a.RiskReward, &a.SpreadRatio, &estimated,
			&a.VWAPOffsetPct, &a.BodyRatio, &profile, &consol,
			&heldSeconds, &a.ConfirmPath); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Stage = models.ParseStage(stage)
		a.Session = models.Session(session)
		a.Profile = models.VolumeProfile(profile)
		a.SpreadEstimated = estimated != 0
		a.Consolidated = consol != 0
		a.HeldFor = time.Duration(heldSeconds * float64(time.Second))
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *CHAlertStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHAlertStore) Close() error {
	return nil // pool owned by pkg client
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
