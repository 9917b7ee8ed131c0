package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/distrischool/student-service/internal/models"
)

type recordedEvent struct {
	direction string
	eventType string
	outcome   string
}

type metricsStub struct {
	events []recordedEvent
}

func (m *metricsStub) RecordEvent(direction, eventType, outcome string) {
	m.events = append(m.events, recordedEvent{direction, eventType, outcome})
}

func TestConsumerHandleRecord(t *testing.T) {
	metrics := &metricsStub{}
	consumer := &Consumer{metrics: metrics, logger: zap.NewNop()}

	event := models.NewDomainEvent(models.EventStudentCreated, map[string]interface{}{"id": float64(1)})
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	consumer.handleRecord(&kgo.Record{Topic: "distrischool.student.created", Value: payload})

	require.Len(t, metrics.events, 1)
	assert.Equal(t, recordedEvent{"consumed", models.EventStudentCreated, "processed"}, metrics.events[0])
}

func TestConsumerHandleRecordMalformedPayload(t *testing.T) {
	metrics := &metricsStub{}
	consumer := &Consumer{metrics: metrics, logger: zap.NewNop()}

	consumer.handleRecord(&kgo.Record{Topic: "distrischool.student.created", Value: []byte("{not json")})

	require.Len(t, metrics.events, 1)
	assert.Equal(t, recordedEvent{"consumed", "unknown", "failed"}, metrics.events[0])
}
