// Package messaging holds the EventPublisher implementations that do not
// need a message broker.
package messaging

import (
	"context"

	"familytree/application/ports"
	"familytree/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log and drops them
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher for local runs without an event bus
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("personID", event.GetAggregateID()),
		zap.Int("version", event.GetVersion()))
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		_ = p.Publish(ctx, event)
	}
	return nil
}

// RecordingPublisher appends events to an EventStore before forwarding
// them, so person history is kept even when the downstream publisher fails.
type RecordingPublisher struct {
	store ports.EventStore
	next  ports.EventPublisher
}

// NewRecordingPublisher wraps next. A nil next only records.
func NewRecordingPublisher(store ports.EventStore, next ports.EventPublisher) *RecordingPublisher {
	return &RecordingPublisher{store: store, next: next}
}

var (
	_ ports.EventPublisher = (*LogPublisher)(nil)
	_ ports.EventPublisher = (*RecordingPublisher)(nil)
)

func (p *RecordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

func (p *RecordingPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}
	if err := p.store.Append(ctx, domainEvents); err != nil {
		return err
	}
	if p.next == nil {
		return nil
	}
	return p.next.PublishBatch(ctx, domainEvents)
}
