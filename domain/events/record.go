package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a persisted domain event. It satisfies DomainEvent so stored
// events can be republished, and marshals to its original payload.
type Record struct {
	EventID     string
	EventType   string
	AggregateID string
	Version     int
	Timestamp   time.Time
	Payload     json.RawMessage
}

// NewRecord serialises event into a Record with a fresh ID
func NewRecord(event DomainEvent) (Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal %s event: %w", event.GetEventType(), err)
	}
	return Record{
		EventID:     uuid.NewString(),
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		Version:     event.GetVersion(),
		Timestamp:   event.GetTimestamp().UTC(),
		Payload:     payload,
	}, nil
}

func (r Record) GetAggregateID() string  { return r.AggregateID }
func (r Record) GetEventType() string    { return r.EventType }
func (r Record) GetTimestamp() time.Time { return r.Timestamp }
func (r Record) GetVersion() int         { return r.Version }

// MarshalJSON emits the original event payload
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}
