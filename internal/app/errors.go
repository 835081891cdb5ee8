package service

import "errors"

var (
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidRead wraps the reason a submitted read was rejected.
	ErrInvalidRead = errors.New("invalid read")
	// ErrInvalidRoster is returned for roster entries without a usable tag.
	ErrInvalidRoster = errors.New("invalid roster")
	// ErrBackpressure is returned when the read queue cannot take more reads.
	ErrBackpressure = errors.New("read queue full")
)
