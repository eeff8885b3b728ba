// Package websocket tracks API Gateway WebSocket connections and pushes
// tree change notifications to them.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	connectionsPartition = "CONNECTIONS"
	connectionTTL        = 24 * time.Hour
)

// ErrUnknownConnection is returned when removing a connection that is not stored
var ErrUnknownConnection = errors.New("unknown connection")

// DynamoAPI is the subset of the DynamoDB client used by ConnectionStore
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Connection is one open WebSocket client
type Connection struct {
	ConnectionID string
	UserID       string
	Endpoint     string
	ConnectedAt  time.Time
}

type connectionItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	ConnectionID string `dynamodbav:"ConnectionID"`
	UserID       string `dynamodbav:"UserID,omitempty"`
	Endpoint     string `dynamodbav:"Endpoint"`
	ConnectedAt  string `dynamodbav:"ConnectedAt"`
	TTL          int64  `dynamodbav:"TTL"`
}

// ConnectionStore keeps every connection under one partition so a
// broadcast is a single paginated Query.
type ConnectionStore struct {
	client    DynamoAPI
	tableName string
}

// NewConnectionStore creates a new connection store
func NewConnectionStore(client DynamoAPI, tableName string) *ConnectionStore {
	return &ConnectionStore{client: client, tableName: tableName}
}

// Register stores conn. Connections expire after a day.
func (s *ConnectionStore) Register(ctx context.Context, conn Connection) error {
	item, err := attributevalue.MarshalMap(connectionItem{
		PK:           connectionsPartition,
		SK:           "CONNECTION#" + conn.ConnectionID,
		ConnectionID: conn.ConnectionID,
		UserID:       conn.UserID,
		Endpoint:     conn.Endpoint,
		ConnectedAt:  conn.ConnectedAt.UTC().Format(time.RFC3339),
		TTL:          conn.ConnectedAt.Add(connectionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to store connection: %w", err)
	}
	return nil
}

// Unregister removes a connection
func (s *ConnectionStore) Unregister(ctx context.Context, connectionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: connectionsPartition},
			"SK": &types.AttributeValueMemberS{Value: "CONNECTION#" + connectionID},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrUnknownConnection
		}
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	return nil
}

// List returns every stored connection
func (s *ConnectionStore) List(ctx context.Context) ([]Connection, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(connectionsPartition))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var out []Connection
	for {
		page, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections: %w", err)
		}
		for _, av := range page.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(av, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
			}
			connectedAt, _ := time.Parse(time.RFC3339, item.ConnectedAt)
			out = append(out, Connection{
				ConnectionID: item.ConnectionID,
				UserID:       item.UserID,
				Endpoint:     item.Endpoint,
				ConnectedAt:  connectedAt,
			})
		}
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}
