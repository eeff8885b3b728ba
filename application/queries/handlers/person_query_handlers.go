package handlers

import (
	"context"
	"fmt"

	"familytree/application/ports"
	"familytree/application/queries"
	"familytree/domain/core/valueobjects"

	"go.uber.org/zap"
)

// GetPersonHandler handles single person lookups
type GetPersonHandler struct {
	repo   ports.PersonRepository
	logger *zap.Logger
}

// NewGetPersonHandler creates a new get person handler
func NewGetPersonHandler(repo ports.PersonRepository, logger *zap.Logger) *GetPersonHandler {
	return &GetPersonHandler{repo: repo, logger: logger}
}

// Handle executes the get person query
func (h *GetPersonHandler) Handle(ctx context.Context, query queries.GetPersonQuery) (*queries.PersonView, error) {
	id, err := valueobjects.NewPersonIDFromString(query.PersonID)
	if err != nil {
		return nil, fmt.Errorf("invalid person ID: %w", err)
	}

	person, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := queries.NewPersonView(person)
	return &view, nil
}

// ListPersonsHandler handles person listing
type ListPersonsHandler struct {
	repo     ports.PersonRepository
	maxLimit int
	logger   *zap.Logger
}

// NewListPersonsHandler creates a new list handler.
// maxLimit caps the page size; zero leaves it uncapped.
func NewListPersonsHandler(repo ports.PersonRepository, maxLimit int, logger *zap.Logger) *ListPersonsHandler {
	return &ListPersonsHandler{repo: repo, maxLimit: maxLimit, logger: logger}
}

// Handle returns persons newest first
func (h *ListPersonsHandler) Handle(ctx context.Context, query queries.ListPersonsQuery) (*queries.PersonListResult, error) {
	limit := query.Limit
	if h.maxLimit > 0 && (limit == 0 || limit > h.maxLimit) {
		limit = h.maxLimit
	}

	persons, total, err := h.repo.List(ctx, ports.ListOptions{Limit: limit, Offset: query.Offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	result := &queries.PersonListResult{
		Persons: make([]queries.PersonView, 0, len(persons)),
		Total:   total,
		Limit:   limit,
		Offset:  query.Offset,
		HasMore: query.Offset+len(persons) < total,
	}
	for _, p := range persons {
		result.Persons = append(result.Persons, queries.NewPersonView(p))
	}

	h.logger.Debug("Listed persons",
		zap.Int("count", len(persons)),
		zap.Int("total", total))

	return result, nil
}

// GetPersonHistoryHandler reads a person's event history
type GetPersonHistoryHandler struct {
	store  ports.EventStore
	logger *zap.Logger
}

// NewGetPersonHistoryHandler creates a new history handler
func NewGetPersonHistoryHandler(store ports.EventStore, logger *zap.Logger) *GetPersonHistoryHandler {
	return &GetPersonHistoryHandler{store: store, logger: logger}
}

// Handle returns the person's events newest first
func (h *GetPersonHistoryHandler) Handle(ctx context.Context, query queries.GetPersonHistoryQuery) (*queries.PersonHistoryResult, error) {
	id, err := valueobjects.NewPersonIDFromString(query.PersonID)
	if err != nil {
		return nil, fmt.Errorf("invalid person ID: %w", err)
	}

	records, err := h.store.History(ctx, id, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return queries.NewPersonHistoryResult(id.String(), records), nil
}
