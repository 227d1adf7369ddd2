package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/utafrali/InventoryGo/pkg/logger"
)

// MetaActorID is the metadata key for the user on whose behalf an event was
// raised. It is absent for system work such as the overdue sweep.
const MetaActorID = "actor_id"

// Event is the envelope for every message the service publishes. Metadata
// entries are also sent as message headers so consumers can route on them
// without decoding the payload.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps data in a version 1 envelope stamped with a fresh ID and
// the current UTC time.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}, nil
}

// Stamp copies the request identifiers carried by ctx onto the event: the
// correlation ID and, when the request named one, the acting user.
func (e *Event) Stamp(ctx context.Context) *Event {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		e.CorrelationID = id
	}
	if actor := logger.ActorIDFromContext(ctx); actor != "" {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, 1)
		}
		e.Metadata[MetaActorID] = actor
	}
	return e
}

// headers returns the message headers for e. Metadata keys follow the fixed
// headers in sorted order.
func (e *Event) headers() []kafka.Header {
	hs := make([]kafka.Header, 0, 3+len(e.Metadata))
	hs = append(hs,
		kafka.Header{Key: "event_type", Value: []byte(e.EventType)},
		kafka.Header{Key: "source", Value: []byte(e.Source)},
	)
	if e.CorrelationID != "" {
		hs = append(hs, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(e.Metadata[k])})
	}
	return hs
}

// UnmarshalEvent decodes an envelope read from a topic.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.EventType, err)
	}
	return nil
}
