package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tableStub keeps items keyed by SK in a single partition
type tableStub struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newTableStub() *tableStub {
	return &tableStub{items: make(map[string]map[string]types.AttributeValue)}
}

func (s *tableStub) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[in.Item["SK"].(*types.AttributeValueMemberS).Value] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (s *tableStub) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk := in.Key["SK"].(*types.AttributeValueMemberS).Value
	if _, ok := s.items[sk]; !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(s.items, sk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (s *tableStub) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := &dynamodb.QueryOutput{}
	for _, k := range keys {
		out.Items = append(out.Items, s.items[k])
	}
	return out, nil
}

type postStub struct {
	mu    sync.Mutex
	gone  map[string]bool
	fail  bool
	posts map[string][]byte
}

func (p *postStub) PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := aws.ToString(in.ConnectionId)
	if p.gone[id] {
		return nil, &apigwtypes.GoneException{}
	}
	if p.fail {
		return nil, errors.New("endpoint unreachable")
	}
	p.posts[id] = in.Data
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func TestConnectionStore_RegisterListUnregister(t *testing.T) {
	ctx := context.Background()
	store := NewConnectionStore(newTableStub(), "connections")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Register(ctx, Connection{ConnectionID: "c1", UserID: "u1", Endpoint: "abc/prod", ConnectedAt: at}))
	require.NoError(t, store.Register(ctx, Connection{ConnectionID: "c2", Endpoint: "abc/prod", ConnectedAt: at}))

	conns, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "c1", conns[0].ConnectionID)
	assert.Equal(t, "u1", conns[0].UserID)
	assert.True(t, at.Equal(conns[0].ConnectedAt))

	require.NoError(t, store.Unregister(ctx, "c1"))
	assert.ErrorIs(t, store.Unregister(ctx, "c1"), ErrUnknownConnection)
}

func TestBroadcaster_Broadcast(t *testing.T) {
	ctx := context.Background()
	store := NewConnectionStore(newTableStub(), "connections")
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, store.Register(ctx, Connection{ConnectionID: id, Endpoint: "abc/prod", ConnectedAt: time.Now()}))
	}
	post := &postStub{gone: map[string]bool{"c2": true}, posts: map[string][]byte{}}
	b := NewBroadcaster(store, func(string) PostAPI { return post }, zap.NewNop())

	stats, err := b.Broadcast(ctx, NewTreeChanged("p1", "person.created", time.Unix(100, 0)))

	require.NoError(t, err)
	assert.Equal(t, BroadcastStats{Sent: 2, Stale: 1}, stats)

	var msg Message
	require.NoError(t, json.Unmarshal(post.posts["c1"], &msg))
	assert.Equal(t, MessageTreeChanged, msg.Type)
	assert.Equal(t, "p1", msg.PersonID)
	assert.Equal(t, int64(100), msg.Timestamp)

	remaining, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2, "stale connection removed")
}

func TestBroadcaster_AllFailed(t *testing.T) {
	ctx := context.Background()
	store := NewConnectionStore(newTableStub(), "connections")
	require.NoError(t, store.Register(ctx, Connection{ConnectionID: "c1", Endpoint: "abc/prod", ConnectedAt: time.Now()}))
	post := &postStub{fail: true, posts: map[string][]byte{}}
	b := NewBroadcaster(store, func(string) PostAPI { return post }, zap.NewNop())

	stats, err := b.Broadcast(ctx, NewTreeChanged("p1", "person.deleted", time.Now()))

	assert.Error(t, err)
	assert.Equal(t, 1, stats.Failed)
}

func TestBroadcaster_NoConnections(t *testing.T) {
	b := NewBroadcaster(NewConnectionStore(newTableStub(), "connections"), func(string) PostAPI { return nil }, zap.NewNop())

	stats, err := b.Broadcast(context.Background(), NewTreeChanged("p1", "person.updated", time.Now()))

	require.NoError(t, err)
	assert.Zero(t, stats.Sent)
}

func TestIsTreeEvent(t *testing.T) {
	assert.True(t, IsTreeEvent("person.spouse_linked"))
	assert.False(t, IsTreeEvent("connection.opened"))
}
