// Package directory looks up the users, APIs and subscriptions that
// communications are addressed to.
//
// The lookups are split into three interfaces so callers depend only on what
// they use. Memory implements all of them for tests and local runs, Postgres
// reads them from the management database, and CachedAPIs puts an APICache
// (LRU or Redis) in front of any APILookup.
package directory

import "context"

// MembershipLookup finds role memberships.
type MembershipLookup interface {
	// FindByRole returns every membership holding role within scope.
	FindByRole(ctx context.Context, scope RoleScope, role string) ([]Membership, error)

	// FindByReferencesAndRole returns memberships holding role within scope
	// on any of the referenced objects.
	FindByReferencesAndRole(ctx context.Context, refType ReferenceType, refIDs []string, scope RoleScope, role string) ([]Membership, error)
}

// APILookup loads API definitions.
type APILookup interface {
	// FindAPIByID returns ErrAPINotFound when no API has the id.
	FindAPIByID(ctx context.Context, id string) (*API, error)
}

// SubscriptionLookup searches subscriptions.
type SubscriptionLookup interface {
	SearchSubscriptions(ctx context.Context, criteria SubscriptionCriteria) ([]Subscription, error)
}
