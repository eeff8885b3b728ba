// Package main implements the Lambda that turns person events from
// EventBridge into tree.changed notifications for WebSocket clients.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"familytree/infrastructure/config"
	"familytree/infrastructure/di"
	"familytree/infrastructure/messaging/websocket"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Broadcaster pushes a message to every open connection
type Broadcaster interface {
	Broadcast(ctx context.Context, msg websocket.Message) (websocket.BroadcastStats, error)
}

type notifyHandler struct {
	broadcaster Broadcaster
	logger      *zap.Logger
}

// eventDetail is the part of a published person event the notifier reads
type eventDetail struct {
	AggregateID string `json:"aggregate_id"`
}

// Handle broadcasts one EventBridge event. Events that cannot change the
// tree are acknowledged without a broadcast.
func (h *notifyHandler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	if !websocket.IsTreeEvent(event.DetailType) {
		h.logger.Debug("Ignoring event", zap.String("detailType", event.DetailType))
		return nil
	}

	var detail eventDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		// Malformed detail is not retried; the next event refreshes clients anyway.
		h.logger.Warn("Unreadable event detail", zap.String("eventID", event.ID), zap.Error(err))
		return nil
	}

	stats, err := h.broadcaster.Broadcast(ctx, websocket.NewTreeChanged(detail.AggregateID, event.DetailType, event.Time))
	if err != nil {
		return fmt.Errorf("broadcast %s: %w", event.DetailType, err)
	}

	h.logger.Info("Broadcast tree change",
		zap.String("eventType", event.DetailType),
		zap.String("personID", detail.AggregateID),
		zap.Int("sent", stats.Sent),
		zap.Int("stale", stats.Stale),
		zap.Int("failed", stats.Failed))
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	notifier, cleanup, err := di.InitializeNotifier(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize notifier: %v", err)
	}
	defer cleanup()

	h := &notifyHandler{broadcaster: notifier.Broadcaster, logger: notifier.Logger}
	lambda.Start(h.Handle)
}
