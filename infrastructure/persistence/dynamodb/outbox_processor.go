package dynamodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"familytree/application/ports"

	"go.uber.org/zap"
)

// outbox is the part of EventStore the processor drains
type outbox interface {
	PendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error)
	MarkPublished(ctx context.Context, record *EventRecord) error
	MarkFailed(ctx context.Context, record *EventRecord, errorMsg string) error
}

// OutboxStats summarises one drain of the outbox
type OutboxStats struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// OutboxProcessor forwards pending person events to the event bus
type OutboxProcessor struct {
	outbox    outbox
	publisher ports.EventPublisher
	logger    *zap.Logger

	batchSize int32
	interval  time.Duration

	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(store *EventStore, publisher ports.EventPublisher, interval time.Duration, logger *zap.Logger) *OutboxProcessor {
	return newOutboxProcessor(store, publisher, interval, logger)
}

func newOutboxProcessor(o outbox, publisher ports.EventPublisher, interval time.Duration, logger *zap.Logger) *OutboxProcessor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxProcessor{
		outbox:      o,
		publisher:   publisher,
		logger:      logger,
		batchSize:   50,
		interval:    interval,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins draining the outbox in the background
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.interval))

	go op.processLoop(ctx)
}

// Stop waits for the background loop to exit
func (op *OutboxProcessor) Stop() {
	op.stopOnce.Do(func() { close(op.stopChan) })
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if _, err := op.ProcessOnce(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessOnce publishes one batch of pending events. Publish failures are
// counted on the record and do not abort the batch.
func (op *OutboxProcessor) ProcessOnce(ctx context.Context) (OutboxStats, error) {
	var stats OutboxStats

	pending, err := op.outbox.PendingEvents(ctx, op.batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, record := range pending {
		if err := op.publisher.Publish(ctx, record.toRecord()); err != nil {
			stats.Failed++
			op.logger.Warn("Failed to publish outbox event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Int("attempts", record.PublishAttempts+1),
				zap.Error(err))
			if merr := op.outbox.MarkFailed(ctx, record, err.Error()); merr != nil {
				return stats, merr
			}
			continue
		}
		if err := op.outbox.MarkPublished(ctx, record); err != nil {
			return stats, err
		}
		stats.Published++
	}

	if len(pending) > 0 {
		op.logger.Debug("Completed outbox batch",
			zap.Int("published", stats.Published),
			zap.Int("failed", stats.Failed))
	}
	return stats, nil
}
