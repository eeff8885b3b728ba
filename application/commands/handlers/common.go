package handlers

import (
	"context"

	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/validators"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"

	"go.uber.org/zap"
)

// writeSupport bundles the collaborators every person write needs
type writeSupport struct {
	repo      ports.PersonRepository
	validator *validators.PersonValidator
	publisher ports.EventPublisher
	cache     ports.Cache
	logger    *zap.Logger
}

// loadRelated fetches the persons referenced by relations
func (s *writeSupport) loadRelated(ctx context.Context, relations entities.Relations) (map[string]*entities.Person, error) {
	var ids []valueobjects.PersonID
	for _, id := range relations.Fields() {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[string]*entities.Person{}, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}

// validate runs the store-level rules for a person about to be written
func (s *writeSupport) validate(ctx context.Context, person *entities.Person) (map[string]*entities.Person, error) {
	if err := s.validator.ValidateProfile(person.Profile()); err != nil {
		return nil, err
	}
	related, err := s.loadRelated(ctx, person.Relations())
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRelations(person.ID(), person.Gender(), person.Relations(), related); err != nil {
		return nil, err
	}
	return related, nil
}

// commit publishes pending events of every touched person and drops cached
// read models. Publishing failures are logged, never returned: the write
// has already been persisted.
func (s *writeSupport) commit(ctx context.Context, persons ...*entities.Person) {
	var pending []events.DomainEvent
	for _, p := range persons {
		if p == nil {
			continue
		}
		pending = append(pending, p.GetUncommittedEvents()...)
		p.MarkEventsAsCommitted()
	}

	if len(pending) > 0 && s.publisher != nil {
		if err := s.publisher.PublishBatch(ctx, pending); err != nil {
			s.logger.Warn("Failed to publish events",
				zap.Int("eventCount", len(pending)),
				zap.Error(err))
		}
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.Warn("Failed to invalidate cache", zap.Error(err))
		}
	}
}
