package script

import "errors"

// Errors for script operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotFunction is returned when a handler names a global that is not
	// a Lua function.
	ErrNotFunction = errors.New("not a lua function")
)
