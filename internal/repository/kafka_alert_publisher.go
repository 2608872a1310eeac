package repository

import (
	"context"

	"SpikeWatch/internal/domain/models"
	"SpikeWatch/internal/domain/repository"
	pkgkafka "SpikeWatch/pkg/kafka"
)

// KafkaAlertPublisher fans alerts out to a Kafka topic, keyed by symbol so
// downstream consumers see a symbol's alerts in order.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher creates a Kafka-backed alert publisher.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) repository.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, a *models.AlertEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(a.Symbol), alertPayload(a))
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func alertPayload(a *models.AlertEvent) map[string]interface{} {
	return map[string]interface{}{
		"symbol":           a.Symbol,
		"stage":            a.Stage.String(),
		"session":          string(a.Session),
		"ts":               a.Timestamp.UnixMilli(),
		"price":            a.Price,
		"vwap":             a.VWAP,
		"volume":           a.Volume,
		"trade_count":      a.TradeCount,
		"rel_volume":       a.RelVolume,
		"pct_change":       a.PctChange,
		"quality":          a.Quality.Final,
		"stop_loss":        a.StopLoss,
		"target":           a.Target,
		"risk_reward":      a.RiskReward,
		"spread_ratio":     a.SpreadRatio,
		"spread_estimated": a.SpreadEstimated,
		"profile":          string(a.Profile),
		"consolidated":     a.Consolidated,
		"confirm_path":     a.ConfirmPath,
	}
}
