package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsProcessed    *prometheus.CounterVec
	barsDiscarded    *prometheus.CounterVec
	promotions       *prometheus.CounterVec
	silentPromotions *prometheus.CounterVec
	invalidations    *prometheus.CounterVec
	alertsEmitted    *prometheus.CounterVec
	notifyErrors     prometheus.Counter
	lastPrice        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_bars_processed_total",
				Help: "Total number of minute bars processed",
			},
			[]string{"session"},
		),
		barsDiscarded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_bars_discarded_total",
				Help: "Total number of malformed bars dropped",
			},
			[]string{"reason"},
		),
		promotions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_stage_promotions_total",
				Help: "Total number of stage promotions that emitted an alert",
			},
			[]string{"stage"},
		),
		silentPromotions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_silent_promotions_total",
				Help: "Total number of stage promotions below the quality gate",
			},
			[]string{"stage"},
		),
		invalidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_invalidations_total",
				Help: "Total number of flag invalidations",
			},
			[]string{"reason"},
		),
		alertsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikewatch_alerts_emitted_total",
				Help: "Total number of alerts emitted",
			},
			[]string{"stage"},
		),
		notifyErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "spikewatch_notify_errors_total",
				Help: "Total number of failed notification deliveries",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spikewatch_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spikewatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordBarProcessed counts one finalized bar for a session.
func (r *Recorder) RecordBarProcessed(session string) {
	r.barsProcessed.WithLabelValues(session).Inc()
}

// RecordBarDiscarded counts one dropped bar by reason.
func (r *Recorder) RecordBarDiscarded(reason string) {
	r.barsDiscarded.WithLabelValues(reason).Inc()
}

// RecordPromotion counts a stage promotion that alerted.
func (r *Recorder) RecordPromotion(stage string) {
	r.promotions.WithLabelValues(stage).Inc()
}

// RecordSilentPromotion counts a promotion suppressed by the quality gate.
func (r *Recorder) RecordSilentPromotion(stage string) {
	r.silentPromotions.WithLabelValues(stage).Inc()
}

// RecordInvalidation counts a flag revocation by reason.
func (r *Recorder) RecordInvalidation(reason string) {
	r.invalidations.WithLabelValues(reason).Inc()
}

// RecordAlertEmitted counts an emitted alert by stage.
func (r *Recorder) RecordAlertEmitted(stage string) {
	r.alertsEmitted.WithLabelValues(stage).Inc()
}

// RecordNotifyError counts a failed notification delivery.
func (r *Recorder) RecordNotifyError() {
	r.notifyErrors.Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
