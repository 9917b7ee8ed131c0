package events

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/distrischool/student-service/internal/models"
)

// Consumer subscribes to student domain topics as a consumer group and
// mirrors received events into logs and metrics. Handling a record never
// fails the poll loop; malformed payloads are counted and skipped.
type Consumer struct {
	client  *kgo.Client
	metrics EventMetrics
	logger  *zap.Logger
}

// NewConsumer joins the given consumer group on the given topics.
// metrics may be nil.
func NewConsumer(brokers []string, groupID string, topics []string, metrics EventMetrics, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{client: client, metrics: metrics, logger: logger}, nil
}

// Run polls the brokers until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch failed",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err))
		})
		fetches.EachRecord(c.handleRecord)
	}
}

func (c *Consumer) handleRecord(record *kgo.Record) {
	var event models.DomainEvent
	if err := json.Unmarshal(record.Value, &event); err != nil {
		c.recordConsumed("unknown", "failed")
		c.logger.Error("failed to decode domain event",
			zap.String("topic", record.Topic),
			zap.Error(err))
		return
	}

	c.recordConsumed(event.EventType, "processed")
	c.logger.Info("domain event received",
		zap.String("topic", record.Topic),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("source", event.Source))
}

func (c *Consumer) recordConsumed(eventType, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordEvent("consumed", eventType, outcome)
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	if c == nil || c.client == nil {
		return
	}
	c.client.Close()
}
