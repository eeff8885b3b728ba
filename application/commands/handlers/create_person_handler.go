package handlers

import (
	"context"
	"fmt"

	"familytree/application/commands"
	"familytree/application/ports"
	"familytree/application/sagas"
	"familytree/domain/core/entities"
	"familytree/domain/core/validators"
	"familytree/domain/core/valueobjects"

	"go.uber.org/zap"
)

// CreatePersonHandler handles the CreatePersonCommand
type CreatePersonHandler struct {
	writeSupport
}

// NewCreatePersonHandler creates a new handler instance
func NewCreatePersonHandler(
	repo ports.PersonRepository,
	validator *validators.PersonValidator,
	publisher ports.EventPublisher,
	cache ports.Cache,
	logger *zap.Logger,
) *CreatePersonHandler {
	return &CreatePersonHandler{writeSupport{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}}
}

// Handle records a new person and back-fills the spouse's reciprocal link
func (h *CreatePersonHandler) Handle(ctx context.Context, cmd commands.CreatePersonCommand) (*entities.Person, error) {
	id, err := valueobjects.NewPersonIDFromString(cmd.PersonID)
	if err != nil {
		return nil, fmt.Errorf("invalid person ID: %w", err)
	}

	person, err := entities.NewPerson(id, cmd.Profile(), cmd.Relations())
	if err != nil {
		return nil, err
	}

	related, err := h.validate(ctx, person)
	if err != nil {
		return nil, err
	}

	var touched []*entities.Person
	err = sagas.New("create-person", h.logger).
		Compensable("insert",
			func(ctx context.Context) error {
				if err := h.repo.Create(ctx, person); err != nil {
					return fmt.Errorf("failed to create person: %w", err)
				}
				return nil
			},
			func(ctx context.Context) error {
				return h.repo.Delete(ctx, person.ID())
			}).
		Step("spouse-backfill", func(ctx context.Context) error {
			var err error
			touched, err = h.syncSpouse(ctx, person, valueobjects.PersonID{}, related)
			return err
		}).
		Execute(ctx)
	if err != nil {
		// Persons detached from a previous partner stay written; publish their changes.
		if len(touched) > 0 {
			h.commit(ctx, touched...)
		}
		return nil, err
	}

	h.commit(ctx, append(touched, person)...)

	h.logger.Info("Person created",
		zap.String("personID", person.ID().String()),
		zap.String("gender", person.Gender().String()))

	return person, nil
}
