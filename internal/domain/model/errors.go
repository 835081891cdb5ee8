package model

import "errors"

// Sentinel errors for model validation.
var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrEmptyTag         = errors.New("empty tag id")
	ErrEmptyRace        = errors.New("empty race id")
	ErrUnknownReader    = errors.New("unknown reader")
)
