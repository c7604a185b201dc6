package message_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/apimgmt/pkg/message"
)

// MockStore is a mock implementation of message.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindByID(ctx context.Context, id string) (*message.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.Message), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, msg message.Message) (*message.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.Message), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, msg message.Message) (*message.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*message.Message), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Search(ctx context.Context, criteria message.Criteria) ([]message.Message, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]message.Message), args.Error(1)
}

// MockAckStore is a MockStore that also records acknowledgements atomically.
type MockAckStore struct {
	MockStore
}

func (m *MockAckStore) Acknowledge(ctx context.Context, id, nodeID string, at time.Time) error {
	return m.Called(ctx, id, nodeID, at).Error(0)
}
