package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytree/application/ports"
	pkgerrors "familytree/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errLockHeld = errors.New("lock already held")

// DistributedLock serialises writers across processes using conditional
// writes on a lock item. Expired locks may be taken over.
type DistributedLock struct {
	client    API
	tableName string
	owner     string
	lease     time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

var _ ports.Locker = (*DistributedLock)(nil)

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// NewDistributedLock creates a lock client. lease bounds how long a crashed
// holder blocks others; timeout bounds how long Lock waits.
func NewDistributedLock(client API, tableName string, lease, timeout time.Duration, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		owner:     uuid.NewString(),
		lease:     lease,
		timeout:   timeout,
		logger:    logger,
	}
}

// Lock blocks until resource is acquired, the timeout passes or ctx ends
func (dl *DistributedLock) Lock(ctx context.Context, resource string) (func(context.Context) error, error) {
	deadline := time.Now().Add(dl.timeout)
	retryInterval := 50 * time.Millisecond

	for {
		lockID, err := dl.acquire(ctx, resource)
		if err == nil {
			return func(ctx context.Context) error {
				return dl.release(ctx, resource, lockID)
			}, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, pkgerrors.NewUnavailableError("lock " + resource).WithCode("LOCK_TIMEOUT")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = retryInterval * 3 / 2
			}
		}
	}
}

func (dl *DistributedLock) acquire(ctx context.Context, resource string) (string, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(dl.lease)
	lockID := uuid.NewString()

	item, err := attributevalue.MarshalMap(lockRecord{
		PK:         "LOCK#" + resource,
		SK:         "LOCK",
		LockID:     lockID,
		Owner:      dl.owner,
		AcquiredAt: now.Format(time.RFC3339Nano),
		ExpiresAt:  expiresAt.Format(sortKeyLayout),
		TTL:        expiresAt.Add(time.Hour).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	expr, err := expression.NewBuilder().WithCondition(
		expression.Name("PK").AttributeNotExists().
			Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.Format(sortKeyLayout)))),
	).Build()
	if err != nil {
		return "", fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(dl.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return "", errLockHeld
		}
		return "", mapError("acquire lock", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.Duration("lease", dl.lease))
	return lockID, nil
}

func (dl *DistributedLock) release(ctx context.Context, resource, lockID string) error {
	expr, err := expression.NewBuilder().WithCondition(
		expression.Name("LockID").Equal(expression.Value(lockID)).
			And(expression.Name("Owner").Equal(expression.Value(dl.owner))),
	).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "LOCK#" + resource},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// lease expired and someone else took over
			dl.logger.Warn("Lock lost before release",
				zap.String("resource", resource),
				zap.String("lockID", lockID))
			return nil
		}
		return mapError("release lock", err)
	}

	dl.logger.Debug("Lock released", zap.String("resource", resource), zap.String("lockID", lockID))
	return nil
}
