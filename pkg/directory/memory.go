package directory

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-memory directory implementing MembershipLookup, APILookup
// and SubscriptionLookup.
type Memory struct {
	mu            sync.RWMutex
	memberships   []Membership
	apis          map[string]API
	subscriptions []Subscription
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{apis: make(map[string]API)}
}

func (m *Memory) AddMembership(ms ...Membership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberships = append(m.memberships, ms...)
}

func (m *Memory) AddAPI(api API) {
	m.mu.Lock()
	defer m.mu.Unlock()
	api.Groups = slices.Clone(api.Groups)
	m.apis[api.ID] = api
}

func (m *Memory) AddSubscription(subs ...Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, subs...)
}

func (m *Memory) FindByRole(ctx context.Context, scope RoleScope, role string) ([]Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Membership
	for _, ms := range m.memberships {
		if ms.RoleScope == scope && ms.RoleName == role {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *Memory) FindByReferencesAndRole(ctx context.Context, refType ReferenceType, refIDs []string, scope RoleScope, role string) ([]Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Membership
	for _, ms := range m.memberships {
		if ms.ReferenceType == refType && slices.Contains(refIDs, ms.ReferenceID) &&
			ms.RoleScope == scope && ms.RoleName == role {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *Memory) FindAPIByID(ctx context.Context, id string) (*API, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	api, ok := m.apis[id]
	if !ok {
		return nil, ErrAPINotFound
	}
	api.Groups = slices.Clone(api.Groups)
	return &api, nil
}

func (m *Memory) SearchSubscriptions(ctx context.Context, criteria SubscriptionCriteria) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Subscription
	for _, s := range m.subscriptions {
		if criteria.Matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}
