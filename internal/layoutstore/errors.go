package layoutstore

import "errors"

var (
	// ErrConnection reports that the underlying database could not be opened.
	ErrConnection = errors.New("layoutstore: connection failed")
	// ErrStorage reports a failed read or write transaction. State is left as
	// it was before the call.
	ErrStorage = errors.New("layoutstore: storage failure")
	// ErrValidation reports caller input the store refuses to persist.
	ErrValidation = errors.New("layoutstore: validation failed")
	// ErrNotFound reports a point lookup that matched nothing.
	ErrNotFound = errors.New("layoutstore: not found")
)
