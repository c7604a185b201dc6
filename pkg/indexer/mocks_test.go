package indexer_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/apimgmt/pkg/message"
	"github.com/dmitrymomot/apimgmt/pkg/scheduler"
	"github.com/dmitrymomot/apimgmt/pkg/search"
)

type MockMessages struct {
	mock.Mock
}

func (m *MockMessages) Search(ctx context.Context, q message.Query) ([]message.Entity, error) {
	args := m.Called(ctx, q)
	if e := args.Get(0); e != nil {
		return e.([]message.Entity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessages) Ack(ctx context.Context, messageID string) {
	m.Called(ctx, messageID)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Ingest(ctx context.Context, p search.Payload) error {
	return m.Called(ctx, p).Error(0)
}

type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Add(name string, schedule scheduler.Schedule, job scheduler.Job) error {
	return m.Called(name, schedule, job).Error(0)
}
