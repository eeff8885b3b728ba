package di

import (
	"context"
	"time"

	"familytree/application/commands/bus"
	"familytree/application/ports"
	querybus "familytree/application/queries/bus"
	"familytree/infrastructure/config"
	"familytree/infrastructure/messaging/websocket"
	"familytree/infrastructure/persistence/dynamodb"
	"familytree/pkg/auth"
	"familytree/pkg/observability"

	"go.uber.org/zap"
)

// cacheSweepInterval is how often idle cache entries and rate limit buckets are dropped
const cacheSweepInterval = time.Minute

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Repository   ports.PersonRepository
	EventStore   ports.EventStore
	Publisher    ports.EventPublisher
	Outbox       *dynamodb.OutboxProcessor
	Locker       ports.Locker
	Cache        *InMemoryCache
	Collector    *observability.Collector
	Metrics      ports.MetricsRecorder
	Tracer       *observability.Tracer
	RateLimiter  auth.RateLimiter
	JWTValidator *auth.JWTValidator
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
}

// Pinger is implemented by stores that can check their backend
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the person store is reachable
func (c *Container) Ready(ctx context.Context) error {
	if p, ok := c.Repository.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// StartBackground starts the workers that run beside request handling
// and returns a func that stops them.
func (c *Container) StartBackground(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)

	if c.Outbox != nil {
		c.Outbox.Start(ctx)
	}
	go c.Cache.Run(ctx, cacheSweepInterval)
	if limiter, ok := c.RateLimiter.(*auth.TokenBucketLimiter); ok {
		go limiter.Run(ctx, cacheSweepInterval)
	}

	return func() {
		if c.Outbox != nil {
			c.Outbox.Stop()
		}
		cancel()
	}
}

// Notifier holds the dependencies of the WebSocket notify function
type Notifier struct {
	Config      *config.Config
	Logger      *zap.Logger
	Broadcaster *websocket.Broadcaster
}
