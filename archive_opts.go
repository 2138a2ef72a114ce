package seqscan

import "log/slog"

type options struct {
	workers      int
	backend      Backend
	policy       FailurePolicy
	strictBlocks bool
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		backend:      BackendPipeline,
		policy:       FailFast,
		strictBlocks: true,
	}
}

// Option configures an Archive.
type Option func(*options)

// WithWorkers sets the number of concurrent workers.
// Zero (the default) uses GOMAXPROCS. Negative values run serially.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithBackend selects the scheduling backend (default: BackendPipeline).
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithFailurePolicy sets how record errors are handled (default: FailFast).
func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithStrictBlockIndex enables or disables block index monotonicity
// validation at load time (default: enabled).
func WithStrictBlockIndex(strict bool) Option {
	return func(o *options) {
		o.strictBlocks = strict
	}
}

// WithLogger sets the logger for index loading and worker diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
