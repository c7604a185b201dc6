package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
	"github.com/dmitrymomot/apimgmt/pkg/node"
)

// Service sends, searches and acknowledges messages on behalf of one node.
type Service struct {
	store  Store
	node   node.Node
	now    func() time.Time
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a message service bound to the given node identity.
func NewService(store Store, n node.Node, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		node:   n,
		now:    time.Now,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("message"))
	return s
}

// Send persists a new message originating from this node. The message is
// deleted by the store once its TTL has elapsed.
func (s *Service) Send(ctx context.Context, in NewMessage) error {
	if in.To == "" {
		return ErrRecipientNotFound
	}

	tags, err := EncodeTags(in.Tags)
	if err != nil {
		return errors.Join(ErrMappingFailure, err)
	}

	now := s.now()
	msg := Message{
		ID:        uuid.NewString(),
		From:      s.node.ID(),
		To:        in.To,
		Tags:      tags,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
		DeleteAt:  now.Add(in.TTL),
	}

	if _, err := s.store.Create(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to create message",
			logger.MessageID(msg.ID),
			logger.Recipient(msg.To),
			logger.Error(err),
		)
		return errors.Join(ErrTechnicalFailure, fmt.Errorf("create message %s: %w", msg.ID, err))
	}

	return nil
}

// Search returns live messages matching the query that this node has not
// acknowledged yet. Query tags are OR-ed; no tags means no tag filter.
func (s *Service) Search(ctx context.Context, q Query) ([]Entity, error) {
	tags, err := EncodeTags(q.Tags)
	if err != nil {
		return nil, errors.Join(ErrMappingFailure, err)
	}

	messages, err := s.store.Search(ctx, Criteria{
		To:         q.To,
		Tags:       tags,
		NotAckBy:   s.node.ID(),
		NotDeleted: true,
	})
	if err != nil {
		return nil, errors.Join(ErrTechnicalFailure, err)
	}

	entities := make([]Entity, 0, len(messages))
	for _, msg := range messages {
		entity, err := toEntity(msg)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Ack records that this node has processed the message. Acking twice is a
// no-op. Failures are logged, never returned; an unacked message is simply
// seen again on the next poll.
func (s *Service) Ack(ctx context.Context, messageID string) {
	if a, ok := s.store.(Acknowledger); ok {
		s.logAckError(ctx, messageID, a.Acknowledge(ctx, messageID, s.node.ID(), s.now()))
		return
	}

	msg, err := s.store.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			s.logger.DebugContext(ctx, "acknowledged message no longer exists", logger.MessageID(messageID))
			return
		}
		s.logger.ErrorContext(ctx, "failed to load message to acknowledge",
			logger.MessageID(messageID),
			logger.Error(err),
		)
		return
	}

	if msg.AckedBy(s.node.ID()) {
		return
	}

	msg.Acknowledgments = append(msg.Acknowledgments, s.node.ID())
	msg.UpdatedAt = s.now()

	_, err = s.store.Update(ctx, *msg)
	s.logAckError(ctx, messageID, err)
}

func (s *Service) logAckError(ctx context.Context, messageID string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrMessageNotFound):
		s.logger.DebugContext(ctx, "acknowledged message no longer exists", logger.MessageID(messageID))
	default:
		s.logger.ErrorContext(ctx, "failed to acknowledge message",
			logger.MessageID(messageID),
			logger.Error(err),
		)
	}
}

// Delete removes a message from the store.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	if err := s.store.Delete(ctx, messageID); err != nil {
		return errors.Join(ErrTechnicalFailure, fmt.Errorf("delete message %s: %w", messageID, err))
	}
	return nil
}

func toEntity(msg Message) (Entity, error) {
	tags, err := DecodeTags(msg.Tags)
	if err != nil {
		return Entity{}, errors.Join(ErrMappingFailure, fmt.Errorf("message %s: %w", msg.ID, err))
	}
	return Entity{
		ID:      msg.ID,
		To:      msg.To,
		Content: msg.Content,
		Tags:    tags,
	}, nil
}
