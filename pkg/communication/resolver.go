// Package communication resolves which users an administrator's
// communication is addressed to and hands them to a delivery channel.
package communication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/apimgmt/pkg/directory"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// Resolver turns a recipient filter into a set of user ids.
type Resolver struct {
	memberships   directory.MembershipLookup
	apis          directory.APILookup
	subscriptions directory.SubscriptionLookup
	logger        *slog.Logger
}

type ResolverOption func(*Resolver)

func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewResolver(
	memberships directory.MembershipLookup,
	apis directory.APILookup,
	subscriptions directory.SubscriptionLookup,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		memberships:   memberships,
		apis:          apis,
		subscriptions: subscriptions,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("communication"))
	return r
}

// RecipientsGlobal resolves a communication that is not tied to an API.
// Only the MANAGEMENT scope has global recipients.
func (r *Resolver) RecipientsGlobal(ctx context.Context, c *Communication) (map[string]struct{}, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	if c.Recipient.RoleScope != directory.RoleScopeManagement {
		return ids, nil
	}

	for _, role := range c.Recipient.RoleValues {
		ms, err := r.memberships.FindByRole(ctx, directory.RoleScopeManagement, role)
		if err != nil {
			return nil, fmt.Errorf("find %s members: %w", role, err)
		}
		addUsers(ids, ms)
	}
	return ids, nil
}

// RecipientsForAPI resolves a communication sent to the consumers of api.
// Only the APPLICATION scope is resolved: owners of the applications
// subscribed to the API plus holders of the role in the API's groups.
func (r *Resolver) RecipientsForAPI(ctx context.Context, api *directory.API, c *Communication) (map[string]struct{}, error) {
	if api == nil || api.ID == "" {
		return nil, ErrInvalidRecipientFilter
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{})
	if c.Recipient.RoleScope != directory.RoleScopeApplication {
		r.logger.DebugContext(ctx, "role scope has no api recipients",
			logger.APIID(api.ID), logger.RoleScope(c.Recipient.RoleScope.String()))
		return ids, nil
	}

	stored, err := r.apis.FindAPIByID(ctx, api.ID)
	if errors.Is(err, directory.ErrAPINotFound) {
		r.logger.DebugContext(ctx, "api not found, no recipients", logger.APIID(api.ID))
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find api %s: %w", api.ID, err)
	}

	subs, err := r.subscriptions.SearchSubscriptions(ctx, directory.SubscriptionCriteria{APIs: []string{stored.ID}})
	if err != nil {
		return nil, fmt.Errorf("search subscriptions of %s: %w", stored.ID, err)
	}
	appIDs := distinctApplications(subs)

	for _, role := range c.Recipient.RoleValues {
		if len(appIDs) > 0 {
			ms, err := r.memberships.FindByReferencesAndRole(ctx, directory.ReferenceApplication, appIDs, directory.RoleScopeApplication, role)
			if err != nil {
				return nil, fmt.Errorf("find application %s members: %w", role, err)
			}
			addUsers(ids, ms)
		}

		if len(stored.Groups) > 0 {
			ms, err := r.memberships.FindByReferencesAndRole(ctx, directory.ReferenceGroup, stored.Groups, directory.RoleScopeApplication, role)
			if err != nil {
				return nil, fmt.Errorf("find group %s members: %w", role, err)
			}
			addUsers(ids, ms)
		}
	}
	return ids, nil
}

func distinctApplications(subs []directory.Subscription) []string {
	seen := make(map[string]struct{}, len(subs))
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		if _, ok := seen[s.Application]; ok || s.Application == "" {
			continue
		}
		seen[s.Application] = struct{}{}
		out = append(out, s.Application)
	}
	return out
}

func addUsers(ids map[string]struct{}, ms []directory.Membership) {
	for _, m := range ms {
		ids[m.UserID] = struct{}{}
	}
}
