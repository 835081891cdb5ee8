package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("tag already in use")
	ErrUnavailable = errors.New("store unavailable")
	ErrBadDriver   = errors.New("unsupported store driver")
)
