package correction

import "errors"

// ErrValidation is returned for malformed correction input. Nothing is
// written when it is returned.
var ErrValidation = errors.New("invalid correction")
