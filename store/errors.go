package store

import "errors"

var (
	// ErrSnapshotNotFound indicates no state has been saved under the requested name.
	ErrSnapshotNotFound = errors.New("store: snapshot not found")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrInvalidName indicates an empty checkpoint name.
	ErrInvalidName = errors.New("store: invalid checkpoint name")
)
