// Package events moves student domain events through Kafka, in both
// directions.
//
// Publication is strictly best-effort: a broker failure is logged and
// counted but never surfaces to the operation that triggered the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/distrischool/student-service/internal/models"
)

// EventMetrics counts event traffic by direction and outcome.
type EventMetrics interface {
	RecordEvent(direction, eventType, outcome string)
}

// Producer wraps a Kafka client for fire-and-forget event emission.
type Producer struct {
	client  *kgo.Client
	metrics EventMetrics
	logger  *zap.Logger
}

// NewProducer connects to the Kafka brokers. metrics may be nil.
func NewProducer(brokers []string, metrics EventMetrics, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProduceRequestTimeout(5*time.Second),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Producer{client: client, metrics: metrics, logger: logger}, nil
}

// Publish emits the event asynchronously, keyed by event ID. Delivery
// failures are logged in the callback; the caller never blocks on broker
// acknowledgment.
func (p *Producer) Publish(ctx context.Context, topic string, event models.DomainEvent) {
	if p == nil || p.client == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal domain event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(event.EventID),
		Value: payload,
	}

	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.recordOutcome(event.EventType, "failed")
			p.logger.Error("failed to publish domain event",
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			return
		}
		p.recordOutcome(event.EventType, "delivered")
		p.logger.Info("domain event published",
			zap.String("topic", topic),
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType))
	})
}

func (p *Producer) recordOutcome(eventType, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordEvent("produced", eventType, outcome)
	}
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	if p == nil || p.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
