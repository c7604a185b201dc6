package message

import (
	"context"
	"time"
)

// Store persists messages. Implementations must return ErrMessageNotFound
// from FindByID and Update when no message has the given id, and must
// evaluate Criteria.NotAckBy against the requesting node only.
type Store interface {
	FindByID(ctx context.Context, id string) (*Message, error)
	Create(ctx context.Context, msg Message) (*Message, error)
	Update(ctx context.Context, msg Message) (*Message, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, criteria Criteria) ([]Message, error)
}

// Acknowledger is implemented by stores that record an acknowledgement in a
// single atomic write. Service.Ack uses it when available; otherwise it
// falls back to FindByID and Update, where two nodes acking the same
// message at once can overwrite each other.
type Acknowledger interface {
	// Acknowledge adds nodeID to the message acknowledgements unless it is
	// already present and stamps UpdatedAt with at. It returns
	// ErrMessageNotFound for unknown ids.
	Acknowledge(ctx context.Context, id, nodeID string, at time.Time) error
}
