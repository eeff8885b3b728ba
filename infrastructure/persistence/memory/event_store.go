package memory

import (
	"context"
	"sync"

	"familytree/application/ports"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
)

// EventStore keeps person events in insertion order
type EventStore struct {
	mu      sync.RWMutex
	records []events.Record
}

// NewEventStore creates an empty event store
func NewEventStore() *EventStore {
	return &EventStore{}
}

var _ ports.EventStore = (*EventStore)(nil)

func (s *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	records := make([]events.Record, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := events.NewRecord(event)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	return nil
}

func (s *EventStore) History(ctx context.Context, personID valueobjects.PersonID, limit int) ([]events.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := personID.String()
	var out []events.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AggregateID != key {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
