package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"
	applogger "SpikeWatch/pkg/logger"
)

// AlertEmitter fans a single AlertEvent out to every configured sink:
// Telegram, ClickHouse, Kafka. Sinks are optional and independent; one
// failing sink never blocks the others or the scan loop.
type AlertEmitter struct {
	notifier drepo.Notifier
	store    drepo.AlertStore
	pub      drepo.AlertPublisher
	cooldown drepo.CooldownStore
	metrics  drepo.Metrics
	log      *applogger.Logger
}

// NewAlertEmitter creates an AlertEmitter. Any sink may be nil.
func NewAlertEmitter(
	notifier drepo.Notifier,
	store drepo.AlertStore,
	pub drepo.AlertPublisher,
	cooldown drepo.CooldownStore,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *AlertEmitter {
	return &AlertEmitter{
		notifier: notifier,
		store:    store,
		pub:      pub,
		cooldown: cooldown,
		metrics:  metrics,
		log:      log,
	}
}

// Emit delivers one alert. The per-day cooldown deduplicates re-entries
// of the same (symbol, stage); suppressed alerts are still persisted so
// backtest comparisons stay complete.
func (e *AlertEmitter) Emit(ctx context.Context, a *models.AlertEvent) {
	start := time.Now()

	notify := true
	if e.cooldown != nil {
		day := time.Date(a.Timestamp.Year(), a.Timestamp.Month(), a.Timestamp.Day(), 0, 0, 0, 0, a.Timestamp.Location())
		first, err := e.cooldown.Mark(ctx, a.Symbol, a.Stage, day)
		if err != nil {
			// Cooldown failure degrades to possibly duplicate alerts,
			// never to missed ones.
			if e.log != nil {
				e.log.Warn("cooldown check failed", applogger.Error(err))
			}
		} else if !first {
			notify = false
		}
	}

	if notify && e.notifier != nil {
		if err := e.notifier.Notify(ctx, FormatAlert(a)); err != nil {
			if e.metrics != nil {
				e.metrics.RecordNotifyError()
			}
			if e.log != nil {
				e.log.Error("notify failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
			}
		}
	}

	if e.store != nil {
		if err := e.store.Store(ctx, a); err != nil && e.log != nil {
			e.log.Error("alert store failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
		}
	}

	if e.pub != nil {
		if err := e.pub.Publish(ctx, a); err != nil && e.log != nil {
			e.log.Error("alert publish failed", applogger.String("symbol", a.Symbol), applogger.Error(err))
		}
	}

	if e.log != nil {
		e.log.Info("alert emitted",
			applogger.String("symbol", a.Symbol),
			applogger.String("stage", a.Stage.String()),
			applogger.String("session", string(a.Session)),
			applogger.Any("quality", a.Quality.Final),
			applogger.Any("pct", a.PctChange),
			applogger.Bool("notified", notify),
		)
	}
	if e.metrics != nil {
		e.metrics.RecordLatency("emit", time.Since(start).Seconds())
	}
}

var stageEmoji = map[models.Stage]string{
	models.Stage1: "\U0001F440", // eyes
	models.Stage2: "\U0001F680", // rocket
	models.Stage3: "⚡",     // lightning
}

// FormatAlert renders the Telegram message body (HTML parse mode).
func FormatAlert(a *models.AlertEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s</b> %s [%s]\n", stageEmoji[a.Stage], a.Symbol, a.Stage, a.Session)
	fmt.Fprintf(&b, "Price $%.2f (%+.1f%%)  VWAP $%.2f (%+.1f%%)\n", a.Price, a.PctChange, a.VWAP, a.VWAPOffsetPct)
	fmt.Fprintf(&b, "Vol %s (%.1fx)  Trades %d  %s\n", formatVolume(a.Volume), a.RelVolume, a.TradeCount, a.Profile)
	fmt.Fprintf(&b, "Body %.2f  Held %s\n", a.BodyRatio, formatHeld(a.HeldFor))
	fmt.Fprintf(&b, "Quality %.0f/100", a.Quality.Final)
	if a.Consolidated {
		b.WriteString("  • base breakout")
	}
	if a.ConfirmPath == "alternative" {
		b.WriteString("  • alt confirm")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Stop $%.2f  Target $%.2f  R/R %.1f", a.StopLoss, a.Target, a.RiskReward)
	if a.SpreadEstimated {
		fmt.Fprintf(&b, "\nSpread ~%.1f%% (est)", a.SpreadRatio*100)
	} else {
		fmt.Fprintf(&b, "\nSpread %.1f%%", a.SpreadRatio*100)
	}
	return b.String()
}

// formatHeld prints whole minutes once the run is a minute old; the
// promotion bar itself shows seconds.
func formatHeld(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

func formatVolume(v int64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.0fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("%d", v)
	}
}
