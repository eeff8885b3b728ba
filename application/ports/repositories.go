package ports

import (
	"context"
	"time"

	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
)

// PersonRepository defines the interface for person persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type PersonRepository interface {
	// Create inserts a new person; an existing key yields a conflict
	Create(ctx context.Context, person *entities.Person) error

	// Save persists an existing person (create or update)
	Save(ctx context.Context, person *entities.Person) error

	// GetByID retrieves a person by ID; a missing key yields a not-found error
	GetByID(ctx context.Context, id valueobjects.PersonID) (*entities.Person, error)

	// GetByIDs retrieves several persons keyed by ID. Missing keys are omitted.
	GetByIDs(ctx context.Context, ids []valueobjects.PersonID) (map[string]*entities.Person, error)

	// List returns persons newest first along with the total count
	List(ctx context.Context, opts ListOptions) ([]*entities.Person, int, error)

	// FindReferencing returns every person whose father, mother or spouse is id
	FindReferencing(ctx context.Context, id valueobjects.PersonID) ([]*entities.Person, error)

	// Delete removes a person; a missing key yields a not-found error
	Delete(ctx context.Context, id valueobjects.PersonID) error

	// Snapshot returns every person in creation order (oldest first, ties by ID).
	// The order is stable so tree builds over an unchanged store are identical.
	Snapshot(ctx context.Context) ([]*entities.Person, error)
}

// ListOptions defines paging for List. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// MetricsRecorder receives operational measurements
type MetricsRecorder interface {
	RecordLatency(ctx context.Context, operation string, latency time.Duration)
	RecordCount(ctx context.Context, name string, value float64, dimensions map[string]string)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordLatency(context.Context, string, time.Duration)            {}
func (NoopMetrics) RecordCount(context.Context, string, float64, map[string]string) {}

// Locker serialises writers on a named resource. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, resource string) (release func(context.Context) error, err error)
}

// EventStore keeps the history of person events
type EventStore interface {
	// Append records events in order
	Append(ctx context.Context, events []events.DomainEvent) error

	// History returns up to limit events for a person, newest first. A zero limit means all.
	History(ctx context.Context, personID valueobjects.PersonID, limit int) ([]events.Record, error)
}
