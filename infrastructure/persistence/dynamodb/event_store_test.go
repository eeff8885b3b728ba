package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
	"familytree/tests/mocks"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEventAPI struct {
	writes      []*dynamodb.BatchWriteItemInput
	unprocessed int
	queryItems  []map[string]types.AttributeValue
	queries     []*dynamodb.QueryInput
	updates     []*dynamodb.UpdateItemInput
}

func (s *stubEventAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	s.writes = append(s.writes, in)
	if s.unprocessed > 0 {
		s.unprocessed--
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (s *stubEventAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.queries = append(s.queries, in)
	return &dynamodb.QueryOutput{Items: s.queryItems}, nil
}

func (s *stubEventAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.updates = append(s.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func deletedEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewPersonDeleted(valueobjects.MustPersonID("p1"), i+1, time.Now())
	}
	return out
}

func TestEventStore_AppendBatchesAndRetries(t *testing.T) {
	api := &stubEventAPI{unprocessed: 1}
	store := NewEventStore(api, "familytree", zap.NewNop())

	require.NoError(t, store.Append(context.Background(), deletedEvents(30)))

	// 25 + retry of 25 + 5
	require.Len(t, api.writes, 3)
	assert.Len(t, api.writes[0].RequestItems["familytree"], 25)
	assert.Len(t, api.writes[2].RequestItems["familytree"], 5)

	var record EventRecord
	require.NoError(t, attributevalue.UnmarshalMap(api.writes[0].RequestItems["familytree"][0].PutRequest.Item, &record))
	assert.Equal(t, "EVENTS#p1", record.PK)
	assert.Equal(t, outboxPartition, record.GSI2PK)
	assert.Equal(t, string(PublishStatusPending), record.PublishStatus)
	assert.Contains(t, record.Payload, `"aggregate_id":"p1"`)
}

func TestEventStore_HistoryLimit(t *testing.T) {
	var items []map[string]types.AttributeValue
	for _, e := range deletedEvents(3) {
		rec, err := newEventRecord(e)
		require.NoError(t, err)
		av, err := attributevalue.MarshalMap(rec)
		require.NoError(t, err)
		items = append(items, av)
	}
	api := &stubEventAPI{queryItems: items}
	store := NewEventStore(api, "familytree", zap.NewNop())

	history, err := store.History(context.Background(), valueobjects.MustPersonID("p1"), 2)

	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, events.TypePersonDeleted, history[0].EventType)
	assert.False(t, *api.queries[0].ScanIndexForward)
}

func TestEventStore_MarkFailedGivesUpAfterRetries(t *testing.T) {
	api := &stubEventAPI{}
	store := NewEventStore(api, "familytree", zap.NewNop())
	rec := &EventRecord{PK: "EVENTS#p1", SK: "EVENT#x", PublishAttempts: 1}

	require.NoError(t, store.MarkFailed(context.Background(), rec, "boom"))
	assert.Equal(t, 2, rec.PublishAttempts)
	assert.NotContains(t, *api.updates[0].UpdateExpression, "REMOVE")

	require.NoError(t, store.MarkFailed(context.Background(), rec, "boom"))
	assert.Contains(t, *api.updates[1].UpdateExpression, "REMOVE")
}

type fakeOutbox struct {
	pending   []*EventRecord
	published []string
	failed    []string
}

func (f *fakeOutbox) PendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	return f.pending, nil
}

func (f *fakeOutbox) MarkPublished(ctx context.Context, r *EventRecord) error {
	f.published = append(f.published, r.EventID)
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, r *EventRecord, msg string) error {
	f.failed = append(f.failed, r.EventID)
	return nil
}

func TestOutboxProcessor_ProcessOnce(t *testing.T) {
	ok, err := newEventRecord(events.NewPersonDeleted(valueobjects.MustPersonID("ok"), 1, time.Now()))
	require.NoError(t, err)
	bad, err := newEventRecord(events.NewPersonDeleted(valueobjects.MustPersonID("bad"), 1, time.Now()))
	require.NoError(t, err)

	publisher := new(mocks.MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
		return e.GetAggregateID() == "ok"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	box := &fakeOutbox{pending: []*EventRecord{ok, bad}}
	op := newOutboxProcessor(box, publisher, time.Second, zap.NewNop())

	stats, err := op.ProcessOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutboxStats{Published: 1, Failed: 1}, stats)
	assert.Equal(t, []string{ok.EventID}, box.published)
	assert.Equal(t, []string{bad.EventID}, box.failed)
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	publisher := new(mocks.MockEventPublisher)
	op := newOutboxProcessor(&fakeOutbox{}, publisher, time.Millisecond, zap.NewNop())

	op.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	op.Stop()
	op.Stop()
}
