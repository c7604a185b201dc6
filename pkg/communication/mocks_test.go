package communication_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/apimgmt/pkg/communication"
	"github.com/dmitrymomot/apimgmt/pkg/directory"
)

type MockMemberships struct {
	mock.Mock
}

func (m *MockMemberships) FindByRole(ctx context.Context, scope directory.RoleScope, role string) ([]directory.Membership, error) {
	args := m.Called(ctx, scope, role)
	if ms := args.Get(0); ms != nil {
		return ms.([]directory.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMemberships) FindByReferencesAndRole(ctx context.Context, refType directory.ReferenceType, refIDs []string, scope directory.RoleScope, role string) ([]directory.Membership, error) {
	args := m.Called(ctx, refType, refIDs, scope, role)
	if ms := args.Get(0); ms != nil {
		return ms.([]directory.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAPIs struct {
	mock.Mock
}

func (m *MockAPIs) FindAPIByID(ctx context.Context, id string) (*directory.API, error) {
	args := m.Called(ctx, id)
	if api := args.Get(0); api != nil {
		return api.(*directory.API), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) SearchSubscriptions(ctx context.Context, criteria directory.SubscriptionCriteria) ([]directory.Subscription, error) {
	args := m.Called(ctx, criteria)
	if subs := args.Get(0); subs != nil {
		return subs.([]directory.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, channel communication.Channel, userIDs []string, c *communication.Communication) error {
	return m.Called(ctx, channel, userIDs, c).Error(0)
}
