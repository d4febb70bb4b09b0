package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event about one overtime request
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	TicketNumber  string                 `json:"ticket_number"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, requestID int64, ticketNumber string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, ticketNumber, payload, generateID())
}

// NewEventWithCorrelation creates an event linked to a correlation chain,
// e.g. every event produced by one batch action
func NewEventWithCorrelation(eventType Type, requestID int64, ticketNumber string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            generateID(),
		Type:          eventType,
		RequestID:     requestID,
		TicketNumber:  ticketNumber,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// NewCorrelationID returns a fresh id for grouping related events
func NewCorrelationID() string {
	return generateID()
}

// WithPayload returns a copy of the event with one more payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	cp := *e
	cp.Payload = maps.Clone(e.Payload)
	if cp.Payload == nil {
		cp.Payload = make(map[string]interface{}, 1)
	}
	cp.Payload[key] = value
	return &cp
}

// Text returns a string payload entry, "" when missing or of another type
func (e *Event) Text(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// Float returns a numeric payload entry as float64, 0 when missing
func (e *Event) Float(key string) float64 {
	f, _ := e.number(key)
	return f
}

// Int returns a numeric payload entry truncated to int64, 0 when missing
func (e *Event) Int(key string) int64 {
	f, _ := e.number(key)
	return int64(f)
}

// number accepts the numeric types the engine stores and the float64 that
// JSON decoding produces.
func (e *Event) number(key string) (float64, bool) {
	switch v := e.Payload[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func generateID() string {
	return uuid.NewString()
}
