// Package mocks holds testify mocks for the application ports.
package mocks

import (
	"context"
	"time"

	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"

	"github.com/stretchr/testify/mock"
)

type MockPersonRepository struct {
	mock.Mock
}

var _ ports.PersonRepository = (*MockPersonRepository)(nil)

func (m *MockPersonRepository) Create(ctx context.Context, person *entities.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockPersonRepository) Save(ctx context.Context, person *entities.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockPersonRepository) GetByID(ctx context.Context, id valueobjects.PersonID) (*entities.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Person), args.Error(1)
}

func (m *MockPersonRepository) GetByIDs(ctx context.Context, ids []valueobjects.PersonID) (map[string]*entities.Person, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*entities.Person), args.Error(1)
}

func (m *MockPersonRepository) List(ctx context.Context, opts ports.ListOptions) ([]*entities.Person, int, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entities.Person), args.Int(1), args.Error(2)
}

func (m *MockPersonRepository) FindReferencing(ctx context.Context, id valueobjects.PersonID) ([]*entities.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Person), args.Error(1)
}

func (m *MockPersonRepository) Delete(ctx context.Context, id valueobjects.PersonID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPersonRepository) Snapshot(ctx context.Context) ([]*entities.Person, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Person), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// Published returns the event types handed to PublishBatch, in call order
func (m *MockEventPublisher) Published() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method != "PublishBatch" {
			continue
		}
		for _, e := range call.Arguments.Get(1).([]events.DomainEvent) {
			types = append(types, e.GetEventType())
		}
	}
	return types
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (interface{}, bool) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	m.Called(ctx, operation, latency)
}

func (m *MockMetrics) RecordCount(ctx context.Context, name string, value float64, dimensions map[string]string) {
	m.Called(ctx, name, value, dimensions)
}
