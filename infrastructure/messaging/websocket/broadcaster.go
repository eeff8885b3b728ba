package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MessageTreeChanged tells clients to refetch the tree
const MessageTreeChanged = "tree.changed"

// PostAPI is the subset of the API Gateway management client used to push messages
type PostAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// ClientFactory returns the management client for an endpoint
type ClientFactory func(endpoint string) PostAPI

// Message is what clients receive
type Message struct {
	Type      string `json:"type"`
	PersonID  string `json:"personId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewTreeChanged builds the notification sent for a person event
func NewTreeChanged(personID, eventType string, at time.Time) Message {
	return Message{
		Type:      MessageTreeChanged,
		PersonID:  personID,
		EventType: eventType,
		Timestamp: at.Unix(),
	}
}

// IsTreeEvent reports whether an event type can change the tree
func IsTreeEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "person.")
}

// BroadcastStats summarises one broadcast
type BroadcastStats struct {
	Sent   int
	Stale  int
	Failed int
}

// Broadcaster pushes messages to every stored connection
type Broadcaster struct {
	store       *ConnectionStore
	clients     ClientFactory
	concurrency int
	logger      *zap.Logger
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(store *ConnectionStore, clients ClientFactory, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		store:       store,
		clients:     clients,
		concurrency: 10,
		logger:      logger,
	}
}

// Broadcast sends msg to all connections. Gone connections are removed.
// It fails only when every send failed.
func (b *Broadcaster) Broadcast(ctx context.Context, msg Message) (BroadcastStats, error) {
	var stats BroadcastStats

	payload, err := json.Marshal(msg)
	if err != nil {
		return stats, fmt.Errorf("failed to marshal message: %w", err)
	}

	conns, err := b.store.List(ctx)
	if err != nil {
		return stats, err
	}

	clients := make(map[string]PostAPI)
	for _, c := range conns {
		if _, ok := clients[c.Endpoint]; !ok {
			clients[c.Endpoint] = b.clients(c.Endpoint)
		}
	}

	var sent, stale, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, c := range conns {
		c := c
		g.Go(func() error {
			_, err := clients[c.Endpoint].PostToConnection(gctx, &apigatewaymanagementapi.PostToConnectionInput{
				ConnectionId: aws.String(c.ConnectionID),
				Data:         payload,
			})
			if err == nil {
				sent.Add(1)
				return nil
			}

			var gone *apigwtypes.GoneException
			if errors.As(err, &gone) {
				stale.Add(1)
				if uerr := b.store.Unregister(gctx, c.ConnectionID); uerr != nil && !errors.Is(uerr, ErrUnknownConnection) {
					b.logger.Warn("Failed to remove stale connection",
						zap.String("connectionID", c.ConnectionID),
						zap.Error(uerr))
				}
				return nil
			}

			failed.Add(1)
			b.logger.Warn("Failed to send to connection",
				zap.String("connectionID", c.ConnectionID),
				zap.Error(err))
			return nil
		})
	}
	_ = g.Wait()

	stats = BroadcastStats{Sent: int(sent.Load()), Stale: int(stale.Load()), Failed: int(failed.Load())}
	b.logger.Info("Broadcast complete",
		zap.String("type", msg.Type),
		zap.Int("sent", stats.Sent),
		zap.Int("stale", stats.Stale),
		zap.Int("failed", stats.Failed))

	if stats.Failed > 0 && stats.Sent == 0 {
		return stats, fmt.Errorf("all %d message sends failed", stats.Failed)
	}
	return stats, nil
}
