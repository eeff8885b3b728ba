package handlers

import (
	"context"
	"fmt"
	"time"

	"familytree/application/ports"
	"familytree/application/queries"
	"familytree/domain/lineage"
	pkgerrors "familytree/pkg/errors"
	"familytree/pkg/utils"

	"go.uber.org/zap"
)

// GetFamilyTreeHandler builds the lineage forest from a store snapshot
type GetFamilyTreeHandler struct {
	repo    ports.PersonRepository
	metrics ports.MetricsRecorder
	logger  *zap.Logger
}

// NewGetFamilyTreeHandler creates a new family tree handler
func NewGetFamilyTreeHandler(repo ports.PersonRepository, metrics ports.MetricsRecorder, logger *zap.Logger) *GetFamilyTreeHandler {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &GetFamilyTreeHandler{repo: repo, metrics: metrics, logger: logger}
}

// Handle loads every person and builds the forest
func (h *GetFamilyTreeHandler) Handle(ctx context.Context, query queries.GetFamilyTreeQuery) (*queries.FamilyTreeResult, error) {
	people, err := h.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	start := time.Now()
	forest := lineage.Build(people)
	elapsed := time.Since(start)

	stats := forest.Stats
	h.metrics.RecordLatency(ctx, "BuildFamilyTree", elapsed)
	h.metrics.RecordCount(ctx, "TreeNodes", float64(stats.NodeCount), nil)
	if stats.CycleTruncations > 0 {
		h.metrics.RecordCount(ctx, "TreeCycleTruncations", float64(stats.CycleTruncations), nil)
	}

	h.logger.Info("Family tree built",
		zap.Int("persons", stats.Persons),
		zap.Int("roots", len(forest.Roots)),
		zap.Int("rootCandidates", stats.RootCandidates),
		zap.Int("suppressedRoots", stats.SuppressedRoots),
		zap.Int("cycleTruncations", stats.CycleTruncations),
		zap.Int("droppedSpouseClaims", stats.DroppedSpouseClaims),
		zap.Int("maxDepth", stats.MaxDepth),
		zap.Duration("duration", elapsed))

	roots := forest.Roots
	if query.RootID != "" {
		node := forest.Find(query.RootID)
		if node == nil {
			return nil, pkgerrors.NewNotFoundError("tree node " + query.RootID)
		}
		roots = []*lineage.TreeNode{node}
	}

	return queries.NewFamilyTreeResult(roots, stats, utils.NowRFC3339()), nil
}
