package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every envelope; bump it when a payload changes
// incompatibly.
const SchemaVersion = 1

// Aggregate identifies the entity an event is about. Its ID is the message
// key, so one aggregate's events stay ordered on a single partition.
type Aggregate struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Event is the envelope for every message the storefront publishes.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Aggregate     Aggregate       `json:"aggregate"`
	Source        string          `json:"source"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ShopperID     string          `json:"shopper_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(eventType string, agg Aggregate, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Aggregate:     agg,
		Source:        source,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Data:          raw,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithShopperID records the shopper who caused the event.
func (e *Event) WithShopperID(id string) *Event {
	e.ShopperID = id
	return e
}

// Key is the partition key.
func (e *Event) Key() []byte {
	return []byte(e.Aggregate.ID)
}

// Decode unmarshals the payload of e into a T.
func Decode[T any](e *Event) (T, error) {
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return out, nil
}
