package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"familytree/application/ports"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	outboxPartition = "OUTBOX"
	batchWriteLimit = 25
	eventRetention  = 365 * 24 * time.Hour
)

// EventStoreAPI is the subset of the DynamoDB client used by the event store
type EventStoreAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// PublishStatus represents the publishing status of an event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

// EventRecord is how person events are stored. Pending events are projected
// into GSI2 under the OUTBOX partition; the projection is removed once the
// event leaves the pending state, so GSI2 only ever holds the outbox.
type EventRecord struct {
	PK          string `dynamodbav:"PK"` // EVENTS#<person_id>
	SK          string `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	Payload     string `dynamodbav:"Payload"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Version     int    `dynamodbav:"Version"`

	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	GSI2PK string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty"`

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// EventStore implements ports.EventStore on DynamoDB and doubles as the
// transactional outbox drained by OutboxProcessor.
type EventStore struct {
	client      EventStoreAPI
	tableName   string
	outboxIndex string
	maxRetries  int
	logger      *zap.Logger
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client EventStoreAPI, tableName string, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:      client,
		tableName:   tableName,
		outboxIndex: "GSI2",
		maxRetries:  3,
		logger:      logger,
	}
}

// Append writes events as pending outbox entries
func (es *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := newEventRecord(event)
		if err != nil {
			return err
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for i := 0; i < len(writeRequests); i += batchWriteLimit {
		end := i + batchWriteLimit
		if end > len(writeRequests) {
			end = len(writeRequests)
		}
		if err := es.writeBatch(ctx, writeRequests[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (es *EventStore) writeBatch(ctx context.Context, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{es.tableName: batch}
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt < maxBatchRetries; attempt++ {
		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return mapError("append events", err)
		}
		if len(result.UnprocessedItems[es.tableName]) == 0 {
			return nil
		}
		pending = result.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return fmt.Errorf("failed to write %d events after %d attempts", len(pending[es.tableName]), maxBatchRetries)
}

// History returns a person's events newest first
func (es *EventStore) History(ctx context.Context, personID valueobjects.PersonID, limit int) ([]events.Record, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(eventsPK(personID.String())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(es.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}

	var out []events.Record
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, mapError("query events", err)
		}
		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			out = append(out, record.toRecord())
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
		if result.LastEvaluatedKey == nil {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// PendingEvents returns up to limit unpublished events, oldest first
func (es *EventStore) PendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	keyCond := expression.Key("GSI2PK").Equal(expression.Value(outboxPartition))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(es.tableName),
		IndexName:                 aws.String(es.outboxIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
		Limit:                     aws.Int32(limit),
	})
	if err != nil {
		return nil, mapError("query outbox", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			es.logger.Warn("Skipping malformed outbox record", zap.Error(err))
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// MarkPublished records a successful publish and drops the outbox projection
func (es *EventStore) MarkPublished(ctx context.Context, record *EventRecord) error {
	update := expression.
		Set(expression.Name("PublishStatus"), expression.Value(string(PublishStatusPublished))).
		Set(expression.Name("PublishedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339))).
		Remove(expression.Name("GSI2PK")).
		Remove(expression.Name("GSI2SK"))
	return es.update(ctx, record, update, "mark event published")
}

// MarkFailed counts a failed attempt. The event stays pending until
// maxRetries attempts have been made.
func (es *EventStore) MarkFailed(ctx context.Context, record *EventRecord, errorMsg string) error {
	attempts := record.PublishAttempts + 1
	update := expression.
		Set(expression.Name("PublishAttempts"), expression.Value(attempts)).
		Set(expression.Name("LastPublishTry"), expression.Value(time.Now().UTC().Format(time.RFC3339))).
		Set(expression.Name("ErrorMessage"), expression.Value(errorMsg))

	if attempts >= es.maxRetries {
		update = update.
			Set(expression.Name("PublishStatus"), expression.Value(string(PublishStatusFailed))).
			Remove(expression.Name("GSI2PK")).
			Remove(expression.Name("GSI2SK"))
	}
	if err := es.update(ctx, record, update, "mark event failed"); err != nil {
		return err
	}
	record.PublishAttempts = attempts
	return nil
}

func (es *EventStore) update(ctx context.Context, record *EventRecord, update expression.UpdateBuilder, operation string) error {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: record.PK},
			"SK": &types.AttributeValueMemberS{Value: record.SK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return mapError(operation, err)
	}
	return nil
}

func eventsPK(personID string) string {
	return "EVENTS#" + personID
}

func newEventRecord(event events.DomainEvent) (*EventRecord, error) {
	rec, err := events.NewRecord(event)
	if err != nil {
		return nil, err
	}
	ts := rec.Timestamp.Format(sortKeyLayout)
	return &EventRecord{
		PK:            eventsPK(rec.AggregateID),
		SK:            fmt.Sprintf("EVENT#%s#%s", ts, rec.EventID),
		EventID:       rec.EventID,
		EventType:     rec.EventType,
		AggregateID:   rec.AggregateID,
		Payload:       string(rec.Payload),
		Timestamp:     rec.Timestamp.Format(time.RFC3339Nano),
		Version:       rec.Version,
		PublishStatus: string(PublishStatusPending),
		GSI2PK:        outboxPartition,
		GSI2SK:        ts + "#" + rec.EventID,
		TTL:           rec.Timestamp.Add(eventRetention).Unix(),
	}, nil
}

// toRecord converts the stored item back into a publishable event
func (r EventRecord) toRecord() events.Record {
	ts, _ := time.Parse(time.RFC3339Nano, r.Timestamp)
	return events.Record{
		EventID:     r.EventID,
		EventType:   r.EventType,
		AggregateID: r.AggregateID,
		Version:     r.Version,
		Timestamp:   ts,
		Payload:     json.RawMessage(r.Payload),
	}
}
