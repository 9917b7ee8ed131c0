package models

import "github.com/google/uuid"

// EventSource identifies this service in emitted domain events.
const EventSource = "student-management-service"

// Domain event types emitted by the student lifecycle.
const (
	EventStudentCreated       = "student.created"
	EventStudentUpdated       = "student.updated"
	EventStudentDeleted       = "student.deleted"
	EventStudentStatusChanged = "student.status.changed"
)

// DomainEvent is the envelope shared by every event on the bus.
type DomainEvent struct {
	EventID   string                 `json:"eventId"`
	EventType string                 `json:"eventType"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
}

// NewDomainEvent builds an event with a fresh identifier.
func NewDomainEvent(eventType string, data map[string]interface{}) DomainEvent {
	return DomainEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    EventSource,
		Data:      data,
	}
}
