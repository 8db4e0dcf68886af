package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeSubmitted EventType = "submitted"
	EventTypeApproved  EventType = "approved"
	EventTypeRejected  EventType = "rejected"
	EventTypeUpdated   EventType = "updated"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeTimesheet EntityType = "timesheet"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "timesheet.approved"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "timesheet"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TimesheetSubmitted creates a timesheet.submitted event
func TimesheetSubmitted(payload interface{}) Event {
	return NewEvent(EventTypeSubmitted, EntityTypeTimesheet, payload)
}

// TimesheetApproved creates a timesheet.approved event
func TimesheetApproved(payload interface{}) Event {
	return NewEvent(EventTypeApproved, EntityTypeTimesheet, payload)
}

// TimesheetRejected creates a timesheet.rejected event
func TimesheetRejected(payload interface{}) Event {
	return NewEvent(EventTypeRejected, EntityTypeTimesheet, payload)
}

// TimesheetUpdated creates a timesheet.updated event
func TimesheetUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTimesheet, payload)
}
