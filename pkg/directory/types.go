package directory

import (
	"fmt"
	"slices"
)

// RoleScope is the area a role applies to.
type RoleScope string

const (
	RoleScopeAPI         RoleScope = "API"
	RoleScopeApplication RoleScope = "APPLICATION"
	RoleScopePortal      RoleScope = "PORTAL"
	RoleScopeManagement  RoleScope = "MANAGEMENT"
)

var roleScopes = []RoleScope{RoleScopeAPI, RoleScopeApplication, RoleScopePortal, RoleScopeManagement}

func (s RoleScope) String() string {
	return string(s)
}

func (s RoleScope) Valid() bool {
	return slices.Contains(roleScopes, s)
}

// ParseRoleScope decodes a role scope name.
func ParseRoleScope(name string) (RoleScope, error) {
	s := RoleScope(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoleScope, name)
	}
	return s, nil
}

// ReferenceType is the kind of object a membership is attached to.
type ReferenceType string

const (
	ReferenceAPI         ReferenceType = "API"
	ReferenceApplication ReferenceType = "APPLICATION"
	ReferenceGroup       ReferenceType = "GROUP"
	ReferenceManagement  ReferenceType = "MANAGEMENT"
	ReferencePortal      ReferenceType = "PORTAL"
)

func (t ReferenceType) String() string {
	return string(t)
}

// Membership grants a user a role on a referenced object.
type Membership struct {
	UserID        string
	ReferenceType ReferenceType
	ReferenceID   string
	RoleScope     RoleScope
	RoleName      string
}

// API is the subset of an API definition needed to compute its audience.
type API struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Groups []string `json:"groups,omitempty"`
}

// Subscription links an application to an API.
type Subscription struct {
	ID          string
	API         string
	Application string
	Status      string
}

// SubscriptionCriteria filters subscriptions. Empty fields do not filter.
type SubscriptionCriteria struct {
	APIs         []string
	Applications []string
}

// Matches reports whether s satisfies the criteria.
func (c SubscriptionCriteria) Matches(s Subscription) bool {
	if len(c.APIs) > 0 && !slices.Contains(c.APIs, s.API) {
		return false
	}
	if len(c.Applications) > 0 && !slices.Contains(c.Applications, s.Application) {
		return false
	}
	return true
}
