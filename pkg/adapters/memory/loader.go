package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// Loader implements ports.LibraryLoader over domains held in memory.
type Loader struct {
	version string
	domains []domain.LibraryDomain
}

// NewLoader creates a loader serving the given domains under a library version.
func NewLoader(version string, domains ...domain.LibraryDomain) *Loader {
	return &Loader{
		version: version,
		domains: append([]domain.LibraryDomain(nil), domains...),
	}
}

// Load builds the library. Invalid domain sets fail like an unreadable file would.
func (l *Loader) Load(ctx context.Context) (*domain.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lib, err := domain.NewLibrary(l.version, l.domains)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: fmt.Sprintf("memory:%s", l.version), Err: err}
	}
	return lib, nil
}
