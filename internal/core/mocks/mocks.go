package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, queueID, serviceType string) (*domain.Ticket, error) {
	args := m.Called(ctx, queueID, serviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByQueue(ctx context.Context, queueID string) ([]*domain.Ticket, error) {
	args := m.Called(ctx, queueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CallNext(ctx context.Context, queueID string, at time.Time) (*domain.Ticket, error) {
	args := m.Called(ctx, queueID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Finish(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkNotified(ctx context.Context, id int64, at time.Time) (*domain.Ticket, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) DeleteAll(ctx context.Context, queueID string) (int, []int64, error) {
	args := m.Called(ctx, queueID)
	var failed []int64
	if args.Get(1) != nil {
		failed = args.Get(1).([]int64)
	}
	return args.Int(0), failed, args.Error(2)
}

func (m *MockTicketRepository) EnsureQueue(ctx context.Context, queueID string) error {
	args := m.Called(ctx, queueID)
	return args.Error(0)
}

// MockServiceTypeRepository is a mock implementation of ports.ServiceTypeRepository
type MockServiceTypeRepository struct {
	mock.Mock
}

func NewMockServiceTypeRepository() *MockServiceTypeRepository {
	return &MockServiceTypeRepository{}
}

func (m *MockServiceTypeRepository) Create(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error) {
	args := m.Called(ctx, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceType), args.Error(1)
}

func (m *MockServiceTypeRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceType), args.Error(1)
}

func (m *MockServiceTypeRepository) List(ctx context.Context) ([]*domain.ServiceType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ServiceType), args.Error(1)
}

func (m *MockServiceTypeRepository) Update(ctx context.Context, st *domain.ServiceType) (*domain.ServiceType, error) {
	args := m.Called(ctx, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceType), args.Error(1)
}

func (m *MockServiceTypeRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockServiceTypeRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

var (
	_ ports.TicketRepository      = (*MockTicketRepository)(nil)
	_ ports.ServiceTypeRepository = (*MockServiceTypeRepository)(nil)
	_ ports.EventBroadcaster      = (*MockEventBroadcaster)(nil)
	_ ports.Notifier              = (*MockNotifier)(nil)
)
