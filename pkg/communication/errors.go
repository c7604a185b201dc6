package communication

import (
	"errors"

	"github.com/dmitrymomot/apimgmt/pkg/directory"
)

var (
	// ErrInvalidRecipientFilter is returned when a communication does not say who it is for.
	ErrInvalidRecipientFilter = errors.New("communication.invalid_recipient_filter")

	// ErrAPINotFound is returned by Service.Create for unknown API ids.
	ErrAPINotFound = directory.ErrAPINotFound

	// ErrDispatchFailed wraps errors returned by a Dispatcher.
	ErrDispatchFailed = errors.New("communication.dispatch_failed")
)
