package results

import "time"

// DefaultMaxDuration is the elapsed time above which a result is flagged.
const DefaultMaxDuration = 24 * time.Hour

// Option configures a computation.
type Option func(*options)

type options struct {
	maxDuration time.Duration
}

func newOptions(opts []Option) options {
	o := options{maxDuration: DefaultMaxDuration}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxDuration overrides the plausible race duration. Zero disables the check.
func WithMaxDuration(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDuration = d
		}
	}
}
