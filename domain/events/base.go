package events

import (
	"time"

	"familytree/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypePersonCreated     = "person.created"
	TypePersonUpdated     = "person.updated"
	TypePersonDeleted     = "person.deleted"
	TypeSpouseLinked      = "person.spouse_linked"
	TypeReferencesCleared = "person.references_cleared"
)

func newBase(id valueobjects.PersonID, eventType string, version int, ts time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: id.String(),
		EventType:   eventType,
		Timestamp:   ts,
		Version:     version,
	}
}

// PersonCreated is raised when a new person is recorded
type PersonCreated struct {
	BaseEvent
	PersonID valueobjects.PersonID `json:"person_id"`
	FullName string                `json:"full_name"`
	Gender   valueobjects.Gender   `json:"gender"`
	FatherID valueobjects.PersonID `json:"father_id"`
	MotherID valueobjects.PersonID `json:"mother_id"`
	SpouseID valueobjects.PersonID `json:"spouse_id"`
}

// NewPersonCreated creates a PersonCreated event
func NewPersonCreated(id valueobjects.PersonID, fullName string, gender valueobjects.Gender, father, mother, spouse valueobjects.PersonID, ts time.Time) PersonCreated {
	return PersonCreated{
		BaseEvent: newBase(id, TypePersonCreated, 1, ts),
		PersonID:  id,
		FullName:  fullName,
		Gender:    gender,
		FatherID:  father,
		MotherID:  mother,
		SpouseID:  spouse,
	}
}

// PersonUpdated is raised when profile or relation fields change
type PersonUpdated struct {
	BaseEvent
	PersonID      valueobjects.PersonID `json:"person_id"`
	ChangedFields []string              `json:"changed_fields"`
}

// NewPersonUpdated creates a PersonUpdated event
func NewPersonUpdated(id valueobjects.PersonID, version int, changed []string, ts time.Time) PersonUpdated {
	return PersonUpdated{
		BaseEvent:     newBase(id, TypePersonUpdated, version, ts),
		PersonID:      id,
		ChangedFields: changed,
	}
}

// PersonDeleted is raised when a person is removed
type PersonDeleted struct {
	BaseEvent
	PersonID valueobjects.PersonID `json:"person_id"`
}

// NewPersonDeleted creates a PersonDeleted event
func NewPersonDeleted(id valueobjects.PersonID, version int, ts time.Time) PersonDeleted {
	return PersonDeleted{
		BaseEvent: newBase(id, TypePersonDeleted, version, ts),
		PersonID:  id,
	}
}

// SpouseLinked is raised when a spouse reference is set or replaced
type SpouseLinked struct {
	BaseEvent
	PersonID         valueobjects.PersonID `json:"person_id"`
	SpouseID         valueobjects.PersonID `json:"spouse_id"`
	PreviousSpouseID valueobjects.PersonID `json:"previous_spouse_id"`
}

// NewSpouseLinked creates a SpouseLinked event
func NewSpouseLinked(id, spouse, previous valueobjects.PersonID, version int, ts time.Time) SpouseLinked {
	return SpouseLinked{
		BaseEvent:        newBase(id, TypeSpouseLinked, version, ts),
		PersonID:         id,
		SpouseID:         spouse,
		PreviousSpouseID: previous,
	}
}

// ReferencesCleared is raised when links to a deleted person are removed
type ReferencesCleared struct {
	BaseEvent
	PersonID    valueobjects.PersonID `json:"person_id"`
	RemovedID   valueobjects.PersonID `json:"removed_id"`
	ClearedRefs []string              `json:"cleared_refs"`
}

// NewReferencesCleared creates a ReferencesCleared event
func NewReferencesCleared(id, removed valueobjects.PersonID, fields []string, version int, ts time.Time) ReferencesCleared {
	return ReferencesCleared{
		BaseEvent:   newBase(id, TypeReferencesCleared, version, ts),
		PersonID:    id,
		RemovedID:   removed,
		ClearedRefs: fields,
	}
}
