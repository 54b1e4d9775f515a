package ports

import (
	"context"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// LibraryLoader defines how the engine retrieves the domain library.
// Implementations must fail with a *domain.LibraryLoadError when the backing source is
// missing or unreadable, before any search is attempted.
type LibraryLoader interface {
	Load(ctx context.Context) (*domain.Library, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used to reload the library while a server is running.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying library changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
