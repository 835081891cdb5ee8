package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	now   func() time.Time
	newID func() string
}

func newStoreOptions(opts []Option) storeOptions {
	o := storeOptions{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the clock used to stamp corrections.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets the generator for correction ids.
func WithIDGenerator(gen func() string) Option {
	return func(o *storeOptions) {
		if gen != nil {
			o.newID = gen
		}
	}
}
