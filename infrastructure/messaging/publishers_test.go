package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
	"familytree/infrastructure/persistence/memory"
	"familytree/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordingPublisher_RecordsThenForwards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	next := new(mocks.MockEventPublisher)
	next.On("PublishBatch", mock.Anything, mock.Anything).Return(errors.New("bus down"))
	p := NewRecordingPublisher(store, next)

	id := valueobjects.MustPersonID("p1")
	err := p.Publish(ctx, events.NewPersonDeleted(id, 1, time.Now()))

	assert.EqualError(t, err, "bus down")
	history, herr := store.History(ctx, id, 0)
	require.NoError(t, herr)
	assert.Len(t, history, 1)
	next.AssertExpectations(t)
}

func TestRecordingPublisher_NilNext(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	p := NewRecordingPublisher(store, nil)

	require.NoError(t, p.PublishBatch(ctx, nil))
	require.NoError(t, p.PublishBatch(ctx, []events.DomainEvent{
		events.NewPersonDeleted(valueobjects.MustPersonID("p1"), 1, time.Now()),
	}))
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zap.NewNop())
	assert.NoError(t, p.PublishBatch(context.Background(), []events.DomainEvent{
		events.NewPersonDeleted(valueobjects.MustPersonID("p1"), 1, time.Now()),
	}))
}
