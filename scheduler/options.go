package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

type options struct {
	parent context.Context
	logger zerolog.Logger
}

// Option configures a Scheduler.
type Option func(opts *options)

// WithLogger sets the logger used for round and termination events.
func WithLogger(logger zerolog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithContext sets a parent context. Values of the parent are visible to
// controllers, and cancelling it cancels the simulation as End does.
func WithContext(ctx context.Context) Option {
	return func(opts *options) {
		opts.parent = ctx
	}
}
