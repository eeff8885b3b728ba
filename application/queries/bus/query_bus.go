package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"familytree/application/ports"

	"go.uber.org/zap"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// Cacheable is implemented by queries whose results may be cached.
// Queries that do not implement it always reach their handler.
type Cacheable interface {
	CacheKey() string
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// Middleware decorates a query handler
type Middleware func(next QueryHandler) QueryHandler

// ErrHandlerNotFound is returned for queries without a registered handler
var ErrHandlerNotFound = errors.New("query handler not found")

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	handlers    map[reflect.Type]QueryHandler
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewQueryBus creates a new query bus
func NewQueryBus(middlewares ...Middleware) *QueryBus {
	return &QueryBus{
		handlers:    make(map[reflect.Type]QueryHandler),
		middlewares: middlewares,
	}
}

// Register registers a handler for a query type
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}

	for i := len(b.middlewares) - 1; i >= 0; i-- {
		handler = b.middlewares[i](handler)
	}
	b.handlers[t] = handler
	return nil
}

// Ask dispatches a query to its handler and returns the result.
// Validation and handler errors are returned as-is.
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	return handler.Handle(ctx, query)
}

// CachingMiddleware serves Cacheable queries from cache.
// Write commands clear the cache, so ttl only bounds staleness from other writers.
func CachingMiddleware(cache ports.Cache, ttl time.Duration, logger *zap.Logger) Middleware {
	seconds := int(ttl / time.Second)
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			cacheable, ok := query.(Cacheable)
			if !ok || cache == nil || seconds <= 0 {
				return next.Handle(ctx, query)
			}

			key := cacheable.CacheKey()
			if cached, found := cache.Get(ctx, key); found {
				logger.Debug("Query served from cache", zap.String("cacheKey", key))
				return cached, nil
			}

			result, err := next.Handle(ctx, query)
			if err != nil {
				return nil, err
			}

			if err := cache.Set(ctx, key, result, seconds); err != nil {
				logger.Warn("Failed to cache query result", zap.String("cacheKey", key), zap.Error(err))
			}
			return result, nil
		})
	}
}

// MetricsMiddleware records query latency and failures
func MetricsMiddleware(metrics ports.MetricsRecorder) Middleware {
	return func(next QueryHandler) QueryHandler {
		return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
			queryType := reflect.TypeOf(query).Name()
			start := time.Now()

			result, err := next.Handle(ctx, query)
			metrics.RecordLatency(ctx, queryType, time.Since(start))
			if err != nil {
				metrics.RecordCount(ctx, "QueryErrors", 1, map[string]string{"Query": queryType})
			}
			return result, err
		})
	}
}
