package handlers

import (
	"net/http"

	"familytree/application/queries"
	querybus "familytree/application/queries/bus"
	"familytree/pkg/common"
	pkgerrors "familytree/pkg/errors"

	"go.uber.org/zap"
)

// TreeHandler serves the lineage forest
type TreeHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *TreeHandler {
	return &TreeHandler{queryBus: queryBus, errors: errs, logger: logger}
}

// GetTree handles GET /tree?rootId=&format=text|json
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "text" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("format must be json or text"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetFamilyTreeQuery{
		RootID: r.URL.Query().Get("rootId"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	tree := result.(*queries.FamilyTreeResult)

	if format == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := queries.RenderText(w, tree); err != nil {
			h.logger.Warn("Failed to write tree", zap.Error(err))
		}
		return
	}

	common.RespondJSON(w, http.StatusOK, tree)
}
