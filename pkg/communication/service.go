package communication

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmitrymomot/apimgmt/pkg/directory"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// Dispatcher delivers a communication to resolved users.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel Channel, userIDs []string, c *Communication) error
}

// NoOpDispatcher drops every communication.
type NoOpDispatcher struct{}

func (NoOpDispatcher) Dispatch(context.Context, Channel, []string, *Communication) error {
	return nil
}

// Service resolves and dispatches communications.
type Service struct {
	resolver   *Resolver
	apis       directory.APILookup
	dispatcher Dispatcher
	logger     *slog.Logger
}

type ServiceOption func(*Service)

func WithDispatcher(d Dispatcher) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(resolver *Resolver, apis directory.APILookup, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:   resolver,
		apis:       apis,
		dispatcher: NoOpDispatcher{},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("communication"))
	return s
}

// Create sends c to the consumers of the API and returns how many users it
// was dispatched to.
func (s *Service) Create(ctx context.Context, apiID string, c *Communication) (int, error) {
	api, err := s.apis.FindAPIByID(ctx, apiID)
	if err != nil {
		return 0, err
	}

	ids, err := s.resolver.RecipientsForAPI(ctx, api, c)
	if err != nil {
		return 0, err
	}
	return s.dispatch(ctx, c, ids, logger.APIID(apiID))
}

// CreateGlobal sends c to users selected without reference to an API.
func (s *Service) CreateGlobal(ctx context.Context, c *Communication) (int, error) {
	ids, err := s.resolver.RecipientsGlobal(ctx, c)
	if err != nil {
		return 0, err
	}
	return s.dispatch(ctx, c, ids)
}

func (s *Service) dispatch(ctx context.Context, c *Communication, ids map[string]struct{}, attrs ...any) (int, error) {
	userIDs := slices.Sorted(maps.Keys(ids))
	if len(userIDs) > 0 {
		if err := s.dispatcher.Dispatch(ctx, c.Channel, userIDs, c); err != nil {
			return 0, errors.Join(ErrDispatchFailed, err)
		}
	}

	s.logger.InfoContext(ctx, "communication sent",
		append(attrs, slog.String("channel", c.Channel.String()), logger.Count(len(userIDs)))...)
	return len(userIDs), nil
}
