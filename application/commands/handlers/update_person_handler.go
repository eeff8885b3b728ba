package handlers

import (
	"context"
	"fmt"

	"familytree/application/commands"
	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/validators"
	"familytree/domain/core/valueobjects"

	"go.uber.org/zap"
)

// UpdatePersonHandler handles person update commands
type UpdatePersonHandler struct {
	writeSupport
}

// NewUpdatePersonHandler creates a new update person handler
func NewUpdatePersonHandler(
	repo ports.PersonRepository,
	validator *validators.PersonValidator,
	publisher ports.EventPublisher,
	cache ports.Cache,
	logger *zap.Logger,
) *UpdatePersonHandler {
	return &UpdatePersonHandler{writeSupport{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}}
}

// Handle replaces the editable fields of a person and keeps spouse links reciprocal
func (h *UpdatePersonHandler) Handle(ctx context.Context, cmd commands.UpdatePersonCommand) (*entities.Person, error) {
	id, err := valueobjects.NewPersonIDFromString(cmd.PersonID)
	if err != nil {
		return nil, fmt.Errorf("invalid person ID: %w", err)
	}

	person, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSpouse := person.SpouseID()

	if err := person.Update(cmd.Profile(), cmd.Relations()); err != nil {
		return nil, err
	}
	if len(person.GetUncommittedEvents()) == 0 {
		return person, nil
	}

	related, err := h.validate(ctx, person)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Save(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to save person: %w", err)
	}

	touched, err := h.syncSpouse(ctx, person, previousSpouse, related)
	h.commit(ctx, append(touched, person)...)
	if err != nil {
		h.logger.Error("Spouse sync failed after update",
			zap.String("personID", person.ID().String()),
			zap.Error(err))
		return nil, err
	}

	h.logger.Info("Person updated",
		zap.String("personID", person.ID().String()),
		zap.Int("version", person.Version()))

	return person, nil
}
