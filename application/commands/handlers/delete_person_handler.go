package handlers

import (
	"context"
	"fmt"

	"familytree/application/commands"
	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelSaves bounds concurrent repository writes during reference cleanup
const maxParallelSaves = 8

// DeletePersonHandler handles person deletion commands
type DeletePersonHandler struct {
	writeSupport
}

// NewDeletePersonHandler creates a new delete person handler
func NewDeletePersonHandler(
	repo ports.PersonRepository,
	publisher ports.EventPublisher,
	cache ports.Cache,
	logger *zap.Logger,
) *DeletePersonHandler {
	return &DeletePersonHandler{writeSupport{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}}
}

// Handle clears every reference to the person on other records, then deletes it.
// Only the matching father, mother or spouse field is cleared on each record.
func (h *DeletePersonHandler) Handle(ctx context.Context, cmd commands.DeletePersonCommand) error {
	id, err := valueobjects.NewPersonIDFromString(cmd.PersonID)
	if err != nil {
		return fmt.Errorf("invalid person ID: %w", err)
	}

	person, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	referencing, err := h.repo.FindReferencing(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find referencing persons: %w", err)
	}

	var touched []*entities.Person
	for _, other := range referencing {
		if other.ID().Equals(id) {
			continue
		}
		if cleared := other.ClearReferencesTo(id); len(cleared) > 0 {
			touched = append(touched, other)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSaves)
	for _, other := range touched {
		other := other
		g.Go(func() error {
			if err := h.repo.Save(gctx, other); err != nil {
				return fmt.Errorf("failed to clear references on %s: %w", other.ID(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}

	person.MarkDeleted()
	h.commit(ctx, append(touched, person)...)

	h.logger.Info("Person deleted",
		zap.String("personID", id.String()),
		zap.Int("clearedReferences", len(touched)))

	return nil
}
