package di

import (
	"context"
	"fmt"
	"time"

	"familytree/application/commands"
	"familytree/application/commands/bus"
	commandhandlers "familytree/application/commands/handlers"
	"familytree/application/ports"
	"familytree/application/queries"
	querybus "familytree/application/queries/bus"
	queryhandlers "familytree/application/queries/handlers"
	domainconfig "familytree/domain/config"
	"familytree/domain/core/validators"
	"familytree/infrastructure/config"
	"familytree/infrastructure/messaging"
	"familytree/infrastructure/messaging/eventbridge"
	"familytree/infrastructure/messaging/websocket"
	"familytree/infrastructure/persistence/dynamodb"
	"familytree/infrastructure/persistence/memory"
	"familytree/infrastructure/persistence/sqlite"
	"familytree/pkg/auth"
	"familytree/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// writeLockResource is the lock every write command holds
const writeLockResource = "persons"

// serviceName names the service in metrics and traces
const serviceName = "familytree"

// ProvideLogger creates the application logger.
// Production uses JSON output; LOG_LEVEL overrides the level either way.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("service", serviceName), zap.String("environment", cfg.Environment))

	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig selects the domain rules for the environment
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.TreeCacheTTL > 0 {
		dc.TreeCacheTTL = cfg.TreeCacheTTL
	}
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return dc, nil
}

// ProvidePersonValidator creates the store-boundary validator
func ProvidePersonValidator(dc *domainconfig.DomainConfig) *validators.PersonValidator {
	return validators.NewPersonValidator(dc)
}

// ProvidePersonRepository opens the configured person store
func ProvidePersonRepository(
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (ports.PersonRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreDynamoDB:
		return dynamodb.NewPersonRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger), func() {}, nil

	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close SQLite store", zap.Error(err))
			}
		}
		return repo, cleanup, nil

	default:
		logger.Warn("Using in-memory person store; data is lost on restart")
		return memory.NewPersonRepository(), func() {}, nil
	}
}

// ProvideEventStore keeps person history next to the persons
func ProvideEventStore(
	cfg *config.Config,
	repo ports.PersonRepository,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) ports.EventStore {
	switch store := repo.(type) {
	case *sqlite.PersonRepository:
		return store.EventStore()
	case *dynamodb.PersonRepository:
		return dynamodb.NewEventStore(client, cfg.DynamoDBTable, logger)
	default:
		return memory.NewEventStore()
	}
}

// ProvideEventBridgePublisher creates the EventBridge publisher
func ProvideEventBridgePublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) *eventbridge.Publisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideEventPublisher records every event before it leaves the process.
// The DynamoDB store doubles as an outbox drained by the OutboxProcessor,
// so the publisher only records there; the other stores log after recording.
func ProvideEventPublisher(store ports.EventStore, logger *zap.Logger) ports.EventPublisher {
	if _, ok := store.(*dynamodb.EventStore); ok {
		return messaging.NewRecordingPublisher(store, nil)
	}
	return messaging.NewRecordingPublisher(store, messaging.NewLogPublisher(logger))
}

// ProvideOutboxProcessor drains the DynamoDB outbox into EventBridge.
// Other stores publish inline and get no processor.
func ProvideOutboxProcessor(
	cfg *config.Config,
	store ports.EventStore,
	publisher *eventbridge.Publisher,
	logger *zap.Logger,
) *dynamodb.OutboxProcessor {
	eventStore, ok := store.(*dynamodb.EventStore)
	if !ok {
		return nil
	}
	return dynamodb.NewOutboxProcessor(eventStore, publisher, cfg.OutboxInterval, logger)
}

// ProvideLocker serialises writers. DynamoDB deployments may run several
// instances, so they coordinate through a lease in the table.
func ProvideLocker(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.Locker {
	if cfg.StoreBackend == config.StoreDynamoDB {
		return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, cfg.LockLease, cfg.LockTimeout, logger)
	}
	return memory.NewLocker()
}

// ProvideInMemoryCache creates the query result cache
func ProvideInMemoryCache() *InMemoryCache {
	return NewInMemoryCache()
}

// ProvideCache exposes the in-memory cache as the cache port
func ProvideCache(cache *InMemoryCache) ports.Cache {
	return cache
}

// ProvideCollector creates the Prometheus collector served on /metrics
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideCloudWatchMetrics creates the CloudWatch recorder.
// It discards everything unless ENABLE_METRICS is set.
func ProvideCloudWatchMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("FamilyTree/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideMetrics fans measurements out to every recorder
func ProvideMetrics(cloudwatch *observability.Metrics, collector *observability.Collector) ports.MetricsRecorder {
	return observability.Fanout{cloudwatch, collector}
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideRateLimiter limits requests per client. Lambda instances do not
// share memory, so there a DynamoDB counter backs the local buckets.
func ProvideRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	local := auth.NewTokenBucketLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if !cfg.IsLambda || cfg.StoreBackend != config.StoreDynamoDB {
		return local
	}

	perMinute := int(cfg.RateLimitRPS * 60)
	distributed := auth.NewDistributedRateLimiter(client, cfg.DynamoDBTable, perMinute, time.Minute, "API")
	return auth.NewCompositeRateLimiter(local, distributed)
}

// ProvideJWTValidator creates the token validator, or nil when auth is disabled
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideCommandBus creates a command bus with registered handlers.
// Every command runs under the write lock.
func ProvideCommandBus(
	repo ports.PersonRepository,
	validator *validators.PersonValidator,
	publisher ports.EventPublisher,
	cache ports.Cache,
	locker ports.Locker,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
		bus.LockingMiddleware(locker, writeLockResource, logger),
	)

	createHandler := commandhandlers.NewCreatePersonHandler(repo, validator, publisher, cache, logger)
	updateHandler := commandhandlers.NewUpdatePersonHandler(repo, validator, publisher, cache, logger)
	deleteHandler := commandhandlers.NewDeletePersonHandler(repo, publisher, cache, logger)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.CreatePersonCommand{}, func(ctx context.Context, cmd bus.Command) error {
			createCmd, ok := cmd.(commands.CreatePersonCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			_, err := createHandler.Handle(ctx, createCmd)
			return err
		}},
		{commands.UpdatePersonCommand{}, func(ctx context.Context, cmd bus.Command) error {
			updateCmd, ok := cmd.(commands.UpdatePersonCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			_, err := updateHandler.Handle(ctx, updateCmd)
			return err
		}},
		{commands.DeletePersonCommand{}, func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeletePersonCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			return deleteHandler.Handle(ctx, deleteCmd)
		}},
	}

	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers.
// Tree results are cached until the next write clears the cache.
func ProvideQueryBus(
	repo ports.PersonRepository,
	store ports.EventStore,
	cache ports.Cache,
	dc *domainconfig.DomainConfig,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.MetricsMiddleware(metrics),
		querybus.CachingMiddleware(cache, dc.TreeCacheTTL, logger),
	)

	getHandler := queryhandlers.NewGetPersonHandler(repo, logger)
	listHandler := queryhandlers.NewListPersonsHandler(repo, dc.MaxListResult, logger)
	treeHandler := queryhandlers.NewGetFamilyTreeHandler(repo, metrics, logger)
	historyHandler := queryhandlers.NewGetPersonHistoryHandler(store, logger)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandlerFunc
	}{
		{queries.GetPersonQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			query, ok := q.(queries.GetPersonQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", q)
			}
			return getHandler.Handle(ctx, query)
		}},
		{queries.ListPersonsQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			query, ok := q.(queries.ListPersonsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", q)
			}
			return listHandler.Handle(ctx, query)
		}},
		{queries.GetFamilyTreeQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			query, ok := q.(queries.GetFamilyTreeQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", q)
			}
			return treeHandler.Handle(ctx, query)
		}},
		{queries.GetPersonHistoryQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			query, ok := q.(queries.GetPersonHistoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", q)
			}
			return historyHandler.Handle(ctx, query)
		}},
	}

	for _, r := range registrations {
		if err := queryBus.Register(r.query, r.handler); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideConnectionStore creates the WebSocket connection registry
func ProvideConnectionStore(client *awsdynamodb.Client, cfg *config.Config) *websocket.ConnectionStore {
	return websocket.NewConnectionStore(client, cfg.ConnectionsTable)
}

// ProvideManagementClients builds API Gateway management clients per endpoint
func ProvideManagementClients(awsCfg aws.Config) websocket.ClientFactory {
	return func(endpoint string) websocket.PostAPI {
		return apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
}

// ProvideBroadcaster creates the tree-change broadcaster
func ProvideBroadcaster(store *websocket.ConnectionStore, clients websocket.ClientFactory, logger *zap.Logger) *websocket.Broadcaster {
	return websocket.NewBroadcaster(store, clients, logger)
}
