package dynamodb

import (
	"context"
	"testing"
	"time"

	pkgerrors "familytree/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lockAPI fails the first heldFor acquisitions with a condition failure
type lockAPI struct {
	stubAPI
	heldFor   int
	deleteErr error
	deletes   []*dynamodb.DeleteItemInput
}

func (l *lockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	l.puts = append(l.puts, in)
	if l.heldFor > 0 {
		l.heldFor--
		return nil, &types.ConditionalCheckFailedException{}
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (l *lockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	l.deletes = append(l.deletes, in)
	return &dynamodb.DeleteItemOutput{}, l.deleteErr
}

func TestDistributedLock_AcquireAfterContention(t *testing.T) {
	api := &lockAPI{heldFor: 2}
	lock := NewDistributedLock(api, "familytree", time.Minute, time.Second, zap.NewNop())

	release, err := lock.Lock(context.Background(), "persons")
	require.NoError(t, err)
	assert.Len(t, api.puts, 3)

	require.NoError(t, release(context.Background()))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, "LOCK#persons", api.deletes[0].Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDistributedLock_Timeout(t *testing.T) {
	api := &lockAPI{heldFor: 1000}
	lock := NewDistributedLock(api, "familytree", time.Minute, 10*time.Millisecond, zap.NewNop())

	_, err := lock.Lock(context.Background(), "persons")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, "LOCK_TIMEOUT", pkgerrors.GetAppError(err).Code)
}

func TestDistributedLock_ContextCancelled(t *testing.T) {
	api := &lockAPI{heldFor: 1000}
	lock := NewDistributedLock(api, "familytree", time.Minute, time.Minute, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lock.Lock(ctx, "persons")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistributedLock_ReleaseAfterTakeover(t *testing.T) {
	api := &lockAPI{deleteErr: &types.ConditionalCheckFailedException{}}
	lock := NewDistributedLock(api, "familytree", time.Minute, time.Second, zap.NewNop())

	release, err := lock.Lock(context.Background(), "persons")
	require.NoError(t, err)

	assert.NoError(t, release(context.Background()))
}
