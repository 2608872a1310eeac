package repository

import (
	"context"
	"time"

	"SpikeWatch/internal/domain/models"
)

// MarketStream supplies finalized minute bars and best-effort quotes from
// the live feed. One finalized bar per symbol per minute, monotonic in time.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MinuteBar, <-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BaselineStore provides read-only per-symbol historical statistics.
// A missing entry is a valid state; callers fall back to session defaults.
type BaselineStore interface {
	Get(symbol string) (models.Baseline, bool)
	Len() int
}

// Notifier delivers a formatted alert out of band. Delivery is best-effort
// and must never block or fail the caller.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	Close() error
}

// AlertStore persists emitted alerts.
type AlertStore interface {
	Store(ctx context.Context, a *models.AlertEvent) error
	Recent(ctx context.Context, limit int) ([]*models.AlertEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// AlertPublisher fans alerts out to a message bus.
type AlertPublisher interface {
	Publish(ctx context.Context, a *models.AlertEvent) error
	Close() error
}

// CooldownStore tracks per-day (symbol, stage) alert emission to suppress
// duplicates across re-entries.
type CooldownStore interface {
	// Mark records an emission and reports whether this is the first one
	// for (symbol, stage) on the given day.
	Mark(ctx context.Context, symbol string, stage models.Stage, day time.Time) (bool, error)
}

// BarSource supplies recorded minute bars for backtesting, ordered by
// timestamp per symbol, identical in shape to the live feed's bars.
type BarSource interface {
	Bars(ctx context.Context, day time.Time, symbols []string) (map[string][]models.MinuteBar, error)
}

// Metrics records engine observability events.
type Metrics interface {
	RecordBarProcessed(session string)
	RecordBarDiscarded(reason string)
	RecordPromotion(stage string)
	RecordSilentPromotion(stage string)
	RecordInvalidation(reason string)
	RecordAlertEmitted(stage string)
	RecordNotifyError()
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
