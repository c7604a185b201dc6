package directory

import "errors"

var (
	// ErrAPINotFound is returned by APILookup.FindAPIByID for unknown ids.
	ErrAPINotFound = errors.New("directory.api_not_found")

	// ErrUnknownRoleScope is returned when decoding an undefined role scope.
	ErrUnknownRoleScope = errors.New("directory.unknown_role_scope")
)
