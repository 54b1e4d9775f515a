package domaindetect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/pkg/adapters/cached"
	"github.com/aretw0/domaindetect/pkg/adapters/file"
	loamAdapter "github.com/aretw0/domaindetect/pkg/adapters/loam"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/ports"
	"github.com/aretw0/domaindetect/pkg/session"
)

// Detector is the high-level entry point of the library.
// It wires a library loader, an aligner and an optional hit cache into a session manager.
type Detector struct {
	manager *session.Manager
	loader  ports.LibraryLoader
	aligner ports.Aligner
	cache   ports.HitCache
	locker  ports.DistributedLocker
	config  domain.Config
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	concurrency int
	peptides    ports.PeptideBuilder
	mutations   ports.MutationScanner
	closers     []io.Closer

	// Name is the base name of the library path, if any.
	Name string
}

// Option defines a functional option for configuring the Detector.
type Option func(*Detector)

// WithConfig sets the resolution policy for new sessions (default: domain.DefaultConfig).
func WithConfig(cfg domain.Config) Option {
	return func(d *Detector) {
		d.config = cfg
	}
}

// WithLoader injects a custom LibraryLoader, bypassing path detection.
func WithLoader(l ports.LibraryLoader) Option {
	return func(d *Detector) {
		d.loader = l
	}
}

// WithAligner sets the alignment collaborator. It is required.
func WithAligner(a ports.Aligner) Option {
	return func(d *Detector) {
		d.aligner = a
	}
}

// WithHitCache caches alignment results per library version and sequence.
// If the cache implements io.Closer it is closed by Detector.Close.
func WithHitCache(c ports.HitCache) Option {
	return func(d *Detector) {
		d.cache = c
	}
}

// WithLocker shares session and search locks across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(d *Detector) {
		d.locker = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Detector) {
		d.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithConcurrency bounds per-chain parallelism inside a session.
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		d.concurrency = n
	}
}

// WithDownstream sets the consumers of certified assignments.
func WithDownstream(peptides ports.PeptideBuilder, mutations ports.MutationScanner) Option {
	return func(d *Detector) {
		d.peptides = peptides
		d.mutations = mutations
	}
}

// New initializes a Detector.
// By default the library is read from libraryPath: a directory is opened as a loam
// repository of domain documents, anything else as a single library file. If WithLoader
// is given, libraryPath is only used as a label.
func New(libraryPath string, opts ...Option) (*Detector, error) {
	d := &Detector{config: domain.DefaultConfig()}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	if libraryPath != "" {
		d.Name = filepath.Base(libraryPath)
		d.logger = d.logger.With("library", d.Name)
	}

	if d.loader == nil {
		if libraryPath == "" {
			return nil, fmt.Errorf("libraryPath is required when no custom loader is provided")
		}
		loader, err := OpenLibrary(libraryPath, "")
		if err != nil {
			return nil, err
		}
		d.loader = loader
	}
	if d.aligner == nil {
		return nil, fmt.Errorf("an aligner is required")
	}

	aligner := d.aligner
	if d.cache != nil {
		aligner = cached.New(aligner, d.cache,
			cached.WithLocker(d.locker),
			cached.WithLogger(d.logger),
		)
		if c, ok := d.cache.(io.Closer); ok {
			d.closers = append(d.closers, c)
		}
	}

	sessionOpts := []session.Option{
		session.WithLogger(d.logger),
		session.WithLifecycleHooks(d.hooks),
	}
	if d.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(d.locker))
	}
	if d.concurrency > 0 {
		sessionOpts = append(sessionOpts, session.WithConcurrency(d.concurrency))
	}

	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	d.manager = session.NewManager(d.config, session.Dependencies{
		Loader:    d.loader,
		Aligner:   aligner,
		Peptides:  d.peptides,
		Mutations: d.mutations,
	}, sessionOpts...)
	return d, nil
}

// OpenLibrary picks a loader for path. Directories are loam repositories; everything
// else, including a path that does not exist yet, is a library file whose errors
// surface when the library is loaded.
func OpenLibrary(path, version string) (ports.LibraryLoader, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		loader, err := loamAdapter.Open(path, version)
		if err != nil {
			return nil, err
		}
		return loader, nil
	}
	return &file.LibraryLoader{Path: path, Version: version}, nil
}

// Manager returns the session registry used by servers.
func (d *Detector) Manager() *session.Manager {
	return d.manager
}

// Loader returns the library loader.
func (d *Detector) Loader() ports.LibraryLoader {
	return d.loader
}

// Watcher returns the library change notifier, or nil when the loader cannot watch.
func (d *Detector) Watcher() ports.Watchable {
	if w, ok := d.loader.(ports.Watchable); ok {
		return w
	}
	return nil
}

// Library loads the domain library without starting a session.
func (d *Detector) Library(ctx context.Context) (*domain.Library, error) {
	return d.loader.Load(ctx)
}

// Annotate runs a one-shot session over chains: load, search, resolve and certify.
// The snapshot is returned even on failure so callers can report how far it got.
// Unresolved overlaps stop the run at RESOLVED with a domain.ErrOverlappingDomains error.
func (d *Detector) Annotate(ctx context.Context, chains []domain.Chain) (session.Snapshot, error) {
	sess, err := d.manager.Create(nil)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer func() {
		if err := d.manager.Delete(context.WithoutCancel(ctx), sess.ID()); err != nil {
			d.logger.Warn("Failed to drop one-shot session", "session_id", sess.ID(), "err", err)
		}
	}()

	var snap session.Snapshot
	err = d.manager.Do(ctx, sess.ID(), func(ctx context.Context, s *session.Session) error {
		defer func() { snap = s.Snapshot() }()

		if err := s.LoadLibrary(ctx); err != nil {
			return err
		}
		if err := s.SearchChains(ctx, chains); err != nil {
			return err
		}
		if err := s.Resolve(ctx); err != nil {
			return err
		}
		return s.Certify(ctx)
	})
	return snap, err
}

// Close releases caches and clients registered with the Detector.
func (d *Detector) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
