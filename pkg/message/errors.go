package message

import "errors"

var (
	// ErrRecipientNotFound is returned by Send when no recipient class is given.
	ErrRecipientNotFound = errors.New("message recipient not found")

	// ErrTechnicalFailure wraps failures of the underlying message store.
	ErrTechnicalFailure = errors.New("message store operation failed")

	// ErrMappingFailure is returned when a stored message does not match the
	// expected shape, for example a tag outside the known set.
	ErrMappingFailure = errors.New("message mapping failed")

	// ErrUnknownTag is returned when decoding a tag name that is not defined.
	ErrUnknownTag = errors.New("unknown message tag")

	// ErrMessageNotFound is returned by stores when no message has the requested id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidMessage is returned by stores for messages without an id.
	ErrInvalidMessage = errors.New("invalid message")
)
