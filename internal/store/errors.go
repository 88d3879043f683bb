package store

import "errors"

var (
	// ErrNotFound is returned when no document exists for a kind and id.
	ErrNotFound = errors.New("store: not found")

	// ErrEmptyID is returned when saving a document without an id.
	ErrEmptyID = errors.New("store: empty id")
)
