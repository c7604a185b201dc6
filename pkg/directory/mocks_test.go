package directory_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/apimgmt/pkg/directory"
)

type MockAPILookup struct {
	mock.Mock
}

func (m *MockAPILookup) FindAPIByID(ctx context.Context, id string) (*directory.API, error) {
	args := m.Called(ctx, id)
	if api := args.Get(0); api != nil {
		return api.(*directory.API), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAPICache struct {
	mock.Mock
}

func (m *MockAPICache) Get(ctx context.Context, id string) (*directory.API, bool) {
	args := m.Called(ctx, id)
	if api := args.Get(0); api != nil {
		return api.(*directory.API), args.Bool(1)
	}
	return nil, args.Bool(1)
}

func (m *MockAPICache) Set(ctx context.Context, api *directory.API) error {
	return m.Called(ctx, api).Error(0)
}

func (m *MockAPICache) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
