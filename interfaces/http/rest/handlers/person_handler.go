package handlers

import (
	"net/http"
	"strconv"

	"familytree/application/commands"
	"familytree/application/commands/bus"
	"familytree/application/queries"
	querybus "familytree/application/queries/bus"
	"familytree/pkg/common"
	pkgerrors "familytree/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// PersonHandler handles person-related HTTP requests
type PersonHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *PersonHandler {
	return &PersonHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
	}
}

// PersonRequest is the body of create and update requests
type PersonRequest = commands.PersonFields

// CreatePerson handles POST /persons
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if err := common.DecodeJSON(w, r, &req, true); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	personID := uuid.New().String()
	cmd := commands.CreatePersonCommand{PersonID: personID, PersonFields: req}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	view, err := h.getPerson(r, personID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Person created",
		zap.String("personID", personID),
		zap.String("requestID", chimiddleware.GetReqID(r.Context())))

	w.Header().Set("Location", r.URL.Path+"/"+personID)
	common.RespondJSON(w, http.StatusCreated, view)
}

// GetPerson handles GET /persons/{personID}
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	view, err := h.getPerson(r, chi.URLParam(r, "personID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// ListPersons handles GET /persons?page=&page_size=
func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	page := common.ExtractPaginationParams(r, defaultPageSize, maxPageSize)

	result, err := h.queryBus.Ask(r.Context(), queries.ListPersonsQuery{
		Limit:  page.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	list := result.(*queries.PersonListResult)
	common.RespondWithMeta(w, http.StatusOK, list.Persons, &common.MetaInfo{
		RequestID:  chimiddleware.GetReqID(r.Context()),
		Pagination: common.BuildPaginationMeta(page, list.Total),
	})
}

// UpdatePerson handles PUT /persons/{personID}. Every editable field is replaced.
func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	var req PersonRequest
	if err := common.DecodeJSON(w, r, &req, true); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	cmd := commands.UpdatePersonCommand{PersonID: personID, PersonFields: req}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	view, err := h.getPerson(r, personID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// DeletePerson handles DELETE /persons/{personID}
func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	if err := h.commandBus.Send(r.Context(), commands.DeletePersonCommand{PersonID: personID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Person deleted",
		zap.String("personID", personID),
		zap.String("requestID", chimiddleware.GetReqID(r.Context())))

	w.WriteHeader(http.StatusNoContent)
}

// GetPersonHistory handles GET /persons/{personID}/history?limit=
func (h *PersonHandler) GetPersonHistory(w http.ResponseWriter, r *http.Request) {
	query := queries.GetPersonHistoryQuery{PersonID: chi.URLParam(r, "personID")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be an integer"))
			return
		}
		query.Limit = limit
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *PersonHandler) getPerson(r *http.Request, personID string) (*queries.PersonView, error) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetPersonQuery{PersonID: personID})
	if err != nil {
		return nil, err
	}
	return result.(*queries.PersonView), nil
}
