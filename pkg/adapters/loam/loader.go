package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam document repository to the ports.LibraryLoader interface.
// Every document (Markdown with frontmatter, JSON or YAML) describes one domain.
type Loader struct {
	Repo    *loam.TypedRepository[DomainMetadata]
	Version string
	Path    string
}

// New creates a Loam adapter over an existing typed repository.
func New(repo *loam.TypedRepository[DomainMetadata], version string) *Loader {
	return &Loader{
		Repo:    repo,
		Version: version,
	}
}

// Open initializes a read-only Loam repository at path.
// A missing directory fails with a *domain.LibraryLoadError before Loam is touched.
func Open(path, version string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: path, Err: err}
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.LibraryLoadError{Path: path, Err: fmt.Errorf("not a directory")}
	}

	// Strict mode keeps integers as integers; the library is never written.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: path, Err: fmt.Errorf("failed to initialize loam: %w", err)}
	}

	l := New(loam.NewTypedRepository[DomainMetadata](repo), version)
	l.Path = path
	return l, nil
}

// Load lists every document of the repository and builds the library.
// IDs come from the frontmatter or, failing that, the file name without extension.
func (l *Loader) Load(ctx context.Context) (*domain.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, err := l.Repo.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.LibraryLoadError{Path: l.path(), Err: fmt.Errorf("loam list failed: %w", err)}
	}

	seen := make(map[string]string, len(docs))
	domains := make([]domain.LibraryDomain, 0, len(docs))
	for _, doc := range docs {
		d := toDomain(doc.ID, doc.Data, doc.Content)
		if existing, ok := seen[d.ID]; ok {
			return nil, &domain.LibraryLoadError{
				Path: l.path(),
				Err:  fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", d.ID, existing, doc.ID),
			}
		}
		seen[d.ID] = doc.ID
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].ID < domains[j].ID })

	version := l.Version
	if version == "" {
		version = "loam:" + filepath.Base(l.path())
	}
	lib, err := domain.NewLibrary(version, domains)
	if err != nil {
		return nil, &domain.LibraryLoadError{Path: l.path(), Err: err}
	}
	return lib, nil
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (l *Loader) path() string {
	if l.Path != "" {
		return l.Path
	}
	return "loam"
}

func toDomain(docID string, meta DomainMetadata, content string) domain.LibraryDomain {
	id := meta.ID
	if id == "" {
		id = docID
	}
	sequence := meta.Sequence
	if sequence == "" {
		sequence = cleanSequence(content)
	}
	return domain.LibraryDomain{
		ID:        trimExtension(id),
		Name:      meta.Name,
		Kind:      domain.DomainKind(strings.ToLower(meta.Kind)),
		ChainType: meta.ChainType,
		Length:    meta.Length,
		Sequence:  sequence,
	}
}

// cleanSequence keeps the residue letters of a document body, dropping whitespace,
// numbering and FASTA headers.
func cleanSequence(content string) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, ">") {
			continue
		}
		for _, r := range line {
			if unicode.IsLetter(r) {
				b.WriteRune(unicode.ToUpper(r))
			}
		}
	}
	return b.String()
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
