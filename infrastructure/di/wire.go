//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"familytree/infrastructure/config"

	"github.com/google/wire"
)

// AWSSet provides the AWS SDK clients
var AWSSet = wire.NewSet(
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
)

// StoreSet provides persistence, events and write coordination
var StoreSet = wire.NewSet(
	ProvidePersonRepository,
	ProvideEventStore,
	ProvideEventBridgePublisher,
	ProvideEventPublisher,
	ProvideOutboxProcessor,
	ProvideLocker,
	ProvideInMemoryCache,
	ProvideCache,
)

// ObservabilitySet provides metrics and tracing
var ObservabilitySet = wire.NewSet(
	ProvideCollector,
	ProvideCloudWatchMetrics,
	ProvideMetrics,
	ProvideTracer,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvidePersonValidator,
	AWSSet,
	StoreSet,
	ObservabilitySet,
	ProvideRateLimiter,
	ProvideJWTValidator,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}

// InitializeNotifier wires the WebSocket broadcaster used by the notify function
func InitializeNotifier(ctx context.Context, cfg *config.Config) (*Notifier, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideAWSConfig,
		ProvideDynamoDBClient,
		ProvideConnectionStore,
		ProvideManagementClients,
		ProvideBroadcaster,
		wire.Struct(new(Notifier), "*"),
	)
	return nil, nil, nil
}
