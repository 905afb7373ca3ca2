package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate names the entity an event is about. Its ID is the message key,
// so all events of one aggregate land on the same partition in order.
type Aggregate struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Event is the envelope of every message the storefront publishes.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Aggregate     Aggregate       `json:"aggregate"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh ID stamped now (UTC).
func NewEvent(eventType, source string, agg Aggregate, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Aggregate:     agg,
		SchemaVersion: 1,
		OccurredAt:    time.Now().UTC(),
		Data:          payload,
	}, nil
}

// WithCorrelationID tags the event with the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Decode unmarshals the payload into target.
func (e *Event) Decode(target any) error {
	return json.Unmarshal(e.Data, target)
}
