package datasource

import "errors"

var (
	// ErrOutOfBounds reports an index outside [0, Size).
	ErrOutOfBounds = errors.New("row index out of bounds")
	// ErrNotAvailable reports a row that is valid but not currently cached.
	ErrNotAvailable = errors.New("row data not available")
	// ErrNoKey reports a row without an external identity.
	ErrNoKey = errors.New("row has no key")
)
