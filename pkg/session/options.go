package session

import (
	"log/slog"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
)

// Dependencies are the collaborators a session drives.
// Loader and Aligner are required; the downstream consumers are optional.
type Dependencies struct {
	Loader    ports.LibraryLoader
	Aligner   ports.Aligner
	Peptides  ports.PeptideBuilder
	Mutations ports.MutationScanner
}

type options struct {
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	locker      ports.DistributedLocker
	concurrency int
	id          string
}

// Option configures a Session or a Manager.
type Option func(*options)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}

// WithLocker enables distributed locking in the Manager.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithConcurrency caps the number of chains searched or resolved in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithID fixes the session ID instead of generating one.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}
