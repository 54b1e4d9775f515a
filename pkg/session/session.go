package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/aretw0/domaindetect/internal/logging"
	engine "github.com/aretw0/domaindetect/internal/runtime"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Session owns every per-chain collection of one annotation run and its lifecycle state.
//
// Operations are serialized: one writer at a time. Readers (State, Results, Snapshot)
// never block on a running operation and only ever observe published states.
type Session struct {
	id          string
	cfg         domain.Config
	pipeline    *engine.Engine
	deps        Dependencies
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	concurrency int

	op sync.Mutex // single writer

	mu        sync.RWMutex // guards the published fields below
	state     domain.SessionState
	lastErr   error
	library   *domain.Library
	chains    []domain.Chain
	hits      map[string][]domain.CandidateHit
	results   map[string]domain.ChainResult
	issues    []domain.ChainIssue
	updatedAt time.Time

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New creates a session in the INIT state. The configuration is validated up front.
func New(cfg domain.Config, deps Dependencies, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Loader == nil {
		return nil, errors.New("session: library loader is required")
	}
	if deps.Aligner == nil {
		return nil, errors.New("session: aligner is required")
	}

	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.New().String()
	}
	if o.concurrency <= 0 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}

	logger := o.logger.With("session_id", o.id)
	pipeline := engine.NewEngine(cfg,
		engine.WithLogger(logger),
		engine.WithConcurrency(o.concurrency),
	)
	return &Session{
		id:          o.id,
		cfg:         cfg.Effective(),
		pipeline:    pipeline,
		deps:        deps,
		hooks:       o.hooks,
		logger:      logger,
		concurrency: o.concurrency,
		state:       domain.StateInit,
		updatedAt:   time.Now(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the effective resolution policy.
func (s *Session) Config() domain.Config { return s.cfg }

// State returns the last published lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error that moved the session to FAILED, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Library returns the loaded library or nil.
func (s *Session) Library() *domain.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library
}

// Chains returns the submitted chains in submission order.
func (s *Session) Chains() []domain.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chain(nil), s.chains...)
}

// Hits returns the raw alignment hits of a chain.
func (s *Session) Hits(chainID string) []domain.CandidateHit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CandidateHit(nil), s.hits[chainID]...)
}

// Results returns a copy of every resolved chain in submission order.
// It is empty before the first resolution.
func (s *Session) Results() []domain.ChainResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedResults()
}

// Result returns a copy of one resolved chain.
func (s *Session) Result(chainID string) (domain.ChainResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[chainID]
	if !ok {
		return domain.ChainResult{}, false
	}
	return res.Clone(), true
}

// Issues returns the problems reported by the last failed certification.
func (s *Session) Issues() []domain.ChainIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChainIssue(nil), s.issues...)
}

// Assignments returns the final assignment list per chain. It is only available once
// the session is CERTIFIED; earlier calls fail with domain.ErrOverlappingDomains.
func (s *Session) Assignments() (map[string][]domain.DomainAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.StateCertified {
		return nil, fmt.Errorf("%w: session is %s, not certified", domain.ErrOverlappingDomains, s.state)
	}
	out := make(map[string][]domain.DomainAssignment, len(s.results))
	for id, res := range s.results {
		out[id] = append([]domain.DomainAssignment(nil), res.Assignments...)
	}
	return out, nil
}

// LoadLibrary loads the domain library. A missing or unreadable library is fatal:
// the session moves to FAILED and no search can follow.
func (s *Session) LoadLibrary(ctx context.Context) error {
	ctx, done := s.begin(ctx)
	defer done()

	if from := s.State(); from != domain.StateInit {
		return &domain.TransitionError{From: from, To: domain.StateLibraryLoaded}
	}

	lib, err := s.deps.Loader.Load(ctx)
	if ctx.Err() != nil {
		return s.canceled(ctx)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrLibraryLoadFailed) {
			err = &domain.LibraryLoadError{Err: err}
		}
		s.fail(ctx, err)
		return err
	}

	s.logger.Info("Library loaded", "version", lib.Version, "domains", lib.Len())
	return s.publish(ctx, domain.StateLibraryLoaded, func() {
		s.library = lib
	})
}

// SearchChains runs the aligner on every chain concurrently and stores the raw hits.
// A chain with zero hits is valid. Searching without a library is fatal.
// If any search fails the previous state is kept and nothing is published.
func (s *Session) SearchChains(ctx context.Context, chains []domain.Chain) error {
	ctx, done := s.begin(ctx)
	defer done()

	s.mu.RLock()
	from, lib := s.state, s.library
	s.mu.RUnlock()

	if !domain.CanTransition(from, domain.StateHitsLoaded) && from != domain.StateInit {
		return &domain.TransitionError{From: from, To: domain.StateHitsLoaded}
	}
	if lib == nil {
		s.fail(ctx, domain.ErrLibraryNotLoaded)
		return domain.ErrLibraryNotLoaded
	}
	if err := validateChains(chains); err != nil {
		return err
	}

	hits, err := s.search(ctx, lib, chains)
	if ctx.Err() != nil {
		return s.canceled(ctx)
	}
	if err != nil {
		return err
	}

	return s.publish(ctx, domain.StateHitsLoaded, func() {
		s.chains = append([]domain.Chain(nil), chains...)
		s.hits = hits
		s.results = nil
		s.issues = nil
	})
}

// Resolve filters, scores and resolves every chain concurrently and publishes the
// result as RESOLVED once all chains are done.
//
// Overlaps the resolver could not remove do not stop the transition; they are
// returned as *domain.ConflictError values (matching domain.ErrOverlappingDomains)
// and block certification until edited away.
func (s *Session) Resolve(ctx context.Context) error {
	ctx, done := s.begin(ctx)
	defer done()

	s.mu.RLock()
	from, lib := s.state, s.library
	inputs := s.inputs(s.chains)
	s.mu.RUnlock()

	if !from.AtLeast(domain.StateHitsLoaded) {
		return &domain.TransitionError{From: from, To: domain.StateResolved}
	}

	results, err := s.pipeline.AnnotateAll(ctx, inputs, lib)
	if err != nil {
		return s.canceled(ctx)
	}

	resolved := make(map[string]domain.ChainResult, len(results))
	for _, res := range results {
		resolved[res.Chain.ID] = res
	}
	if err := s.publish(ctx, domain.StateResolved, func() {
		s.results = resolved
		s.issues = nil
	}); err != nil {
		return err
	}

	s.emitResolved(ctx, results)
	return conflictErrors(results)
}

// Certify checks every chain is non-overlapping and fully accounted for. Incompatible
// chains keep the session RESOLVED and are returned in a *domain.IncompatibleChainsError.
func (s *Session) Certify(ctx context.Context) error {
	ctx, done := s.begin(ctx)
	defer done()

	s.mu.RLock()
	from := s.state
	results := s.orderedResults()
	s.mu.RUnlock()

	if !from.AtLeast(domain.StateResolved) {
		return &domain.TransitionError{From: from, To: domain.StateCertified}
	}

	if issues := s.pipeline.Certify(results); len(issues) > 0 {
		s.mu.Lock()
		s.issues = issues
		s.updatedAt = time.Now()
		s.mu.Unlock()

		err := &domain.IncompatibleChainsError{Issues: issues}
		s.logger.Warn("Certification failed", "chains", err.ChainIDs(), "issues", len(issues))
		return err
	}

	return s.publish(ctx, domain.StateCertified, func() {
		s.issues = nil
	})
}

// ReannotateChangedDomains takes a new submission of the session's chains and only
// recomputes the chains whose ID or sequence changed. Unchanged chains keep their hits
// and assignments. Removed chains are dropped.
//
// When nothing changed the call is a no-op: no search runs and the state is kept.
// Otherwise a session that was RESOLVED or CERTIFIED ends up RESOLVED and must be
// certified again.
func (s *Session) ReannotateChangedDomains(ctx context.Context, chains []domain.Chain) (domain.ChainDiff, error) {
	ctx, done := s.begin(ctx)
	defer done()

	s.mu.RLock()
	from, lib := s.state, s.library
	prev := append([]domain.Chain(nil), s.chains...)
	s.mu.RUnlock()

	if !from.AtLeast(domain.StateHitsLoaded) {
		return domain.ChainDiff{}, &domain.TransitionError{From: from, To: domain.StateHitsLoaded}
	}
	if err := validateChains(chains); err != nil {
		return domain.ChainDiff{}, err
	}

	diff := domain.DiffChains(prev, chains)
	if diff.Empty() {
		s.relabel(chains)
		s.logger.Debug("Reannotation skipped, no chain changed")
		return diff, nil
	}

	dirty := make(map[string]bool, len(diff.Added)+len(diff.Changed))
	for _, id := range diff.Dirty() {
		dirty[id] = true
	}
	var changed []domain.Chain
	for _, c := range chains {
		if dirty[c.ID] {
			changed = append(changed, c)
		}
	}

	fresh, err := s.search(ctx, lib, changed)
	if ctx.Err() != nil {
		return diff, s.canceled(ctx)
	}
	if err != nil {
		return diff, err
	}

	s.mu.RLock()
	hits := make(map[string][]domain.CandidateHit, len(chains))
	results := make(map[string]domain.ChainResult, len(chains))
	for _, c := range chains {
		if dirty[c.ID] {
			hits[c.ID] = fresh[c.ID]
			continue
		}
		hits[c.ID] = s.hits[c.ID]
		if res, ok := s.results[c.ID]; ok {
			res.Chain = c
			results[c.ID] = res
		}
	}
	s.mu.RUnlock()

	target := domain.StateHitsLoaded
	var recomputed []domain.ChainResult
	if from.AtLeast(domain.StateResolved) {
		target = domain.StateResolved
		inputs := make([]engine.ChainInput, 0, len(changed))
		for _, c := range changed {
			inputs = append(inputs, engine.ChainInput{Chain: c, Hits: hits[c.ID]})
		}
		recomputed, err = s.pipeline.AnnotateAll(ctx, inputs, lib)
		if err != nil {
			return diff, s.canceled(ctx)
		}
		for _, res := range recomputed {
			results[res.Chain.ID] = res
		}
	} else {
		results = nil
	}

	s.logger.Info("Chains reannotated",
		"added", len(diff.Added),
		"changed", len(diff.Changed),
		"removed", len(diff.Removed),
	)
	if err := s.publish(ctx, target, func() {
		s.chains = append([]domain.Chain(nil), chains...)
		s.hits = hits
		s.results = results
		s.issues = nil
	}); err != nil {
		return diff, err
	}

	s.emitResolved(ctx, recomputed)
	return diff, conflictErrors(recomputed)
}

// relabel stores chains whose sequences are unchanged, keeping hits and results.
func (s *Session) relabel(chains []domain.Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = append([]domain.Chain(nil), chains...)
	for _, c := range chains {
		if res, ok := s.results[c.ID]; ok {
			res.Chain = c
			s.results[c.ID] = res
		}
	}
}

// EditAssignments replaces the domain table of one chain with user-edited
// assignments. Gaps and warnings are recomputed and the session drops back to RESOLVED.
// Assignments without a source hit are marked as manual.
func (s *Session) EditAssignments(ctx context.Context, chainID string, assignments []domain.DomainAssignment) error {
	ctx, done := s.begin(ctx)
	defer done()

	s.mu.RLock()
	from, lib := s.state, s.library
	res, ok := s.results[chainID]
	s.mu.RUnlock()

	if !from.AtLeast(domain.StateResolved) {
		return &domain.TransitionError{From: from, To: domain.StateResolved}
	}
	if !ok {
		return fmt.Errorf("%w: unknown chain %q", domain.ErrInvalidChain, chainID)
	}

	res = res.Clone()
	res.Assignments = make([]domain.DomainAssignment, 0, len(assignments))
	for _, a := range assignments {
		a.ChainID = chainID
		if a.Source.LibraryDomainID == "" {
			a.Manual = true
		}
		res.Assignments = append(res.Assignments, a)
	}
	res = s.pipeline.Refresh(res, lib)

	if err := s.publish(ctx, domain.StateResolved, func() {
		s.results[chainID] = res
		s.issues = nil
	}); err != nil {
		return err
	}

	s.emitResolved(ctx, []domain.ChainResult{res})
	return conflictErrors([]domain.ChainResult{res})
}

// BuildPeptides hands the certified assignments to the peptide builder.
// Before certification it fails with domain.ErrOverlappingDomains.
func (s *Session) BuildPeptides(ctx context.Context) error {
	if s.deps.Peptides == nil {
		return errors.New("session: no peptide builder configured")
	}
	results, err := s.certifiedResults()
	if err != nil {
		return err
	}
	return s.deps.Peptides.Build(ctx, results)
}

// ScanMutations runs the mutation scanner on the certified chains. Scanner failures
// are wrapped in *domain.MutationScanError and never change the session state.
func (s *Session) ScanMutations(ctx context.Context) error {
	if s.deps.Mutations == nil {
		return errors.New("session: no mutation scanner configured")
	}
	results, err := s.certifiedResults()
	if err != nil {
		return err
	}
	if err := s.deps.Mutations.Scan(ctx, results); err != nil {
		s.logger.Warn("Mutation scan failed", "err", err)
		return &domain.MutationScanError{Err: err}
	}
	return nil
}

// Cancel interrupts the running operation, if any, and resets the session to INIT.
// It returns once the session is reset.
func (s *Session) Cancel() {
	s.cancelMu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancelMu.Unlock()

	s.op.Lock()
	defer s.op.Unlock()
	s.reset(context.Background())
}

// Snapshot is a read-only view of a session for transports and reports.
type Snapshot struct {
	ID             string               `json:"id"`
	State          domain.SessionState  `json:"state"`
	Error          string               `json:"error,omitempty"`
	LibraryVersion string               `json:"library_version,omitempty"`
	Chains         []domain.Chain       `json:"chains,omitempty"`
	Results        []domain.ChainResult `json:"results,omitempty"`
	Issues         []domain.ChainIssue  `json:"issues,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Snapshot returns a consistent copy of the published session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Chains:    append([]domain.Chain(nil), s.chains...),
		Results:   s.orderedResults(),
		Issues:    append([]domain.ChainIssue(nil), s.issues...),
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.library != nil {
		snap.LibraryVersion = s.library.Version
	}
	return snap
}

// begin takes the writer lock and registers a cancelable context for the operation.
func (s *Session) begin(ctx context.Context) (context.Context, func()) {
	s.op.Lock()
	ctx, cancel := context.WithCancel(ctx)

	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()

	return ctx, func() {
		s.cancelMu.Lock()
		s.cancel = nil
		s.cancelMu.Unlock()
		cancel()
		s.op.Unlock()
	}
}

// publish moves the session to the target state and applies mutate atomically.
func (s *Session) publish(ctx context.Context, to domain.SessionState, mutate func()) error {
	s.mu.Lock()
	from := s.state
	if !domain.CanTransition(from, to) {
		s.mu.Unlock()
		return &domain.TransitionError{From: from, To: to}
	}
	mutate()
	s.state = to
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.emitState(ctx, from, to, nil)
	return nil
}

func (s *Session) fail(ctx context.Context, err error) {
	s.mu.Lock()
	from := s.state
	if from == domain.StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = domain.StateFailed
	s.lastErr = err
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.logger.Error("Session failed", "state", from, "err", err)
	s.emitState(ctx, from, domain.StateFailed, err)
}

// canceled resets the session and reports the interruption.
func (s *Session) canceled(ctx context.Context) error {
	cause := ctx.Err()
	s.reset(context.WithoutCancel(ctx))
	return fmt.Errorf("%w: %w", domain.ErrSessionCanceled, cause)
}

func (s *Session) reset(ctx context.Context) {
	s.mu.Lock()
	from := s.state
	if from == domain.StateFailed || (from == domain.StateInit && s.library == nil && s.chains == nil) {
		s.mu.Unlock()
		return
	}
	s.state = domain.StateInit
	s.library = nil
	s.chains = nil
	s.hits = nil
	s.results = nil
	s.issues = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("Session reset", "from", from)
	s.emitState(ctx, from, domain.StateInit, nil)
}

func (s *Session) search(ctx context.Context, lib *domain.Library, chains []domain.Chain) (map[string][]domain.CandidateHit, error) {
	found := make([][]domain.CandidateHit, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range chains {
		g.Go(func() error {
			start := time.Now()
			hits, err := s.deps.Aligner.Search(gctx, c, lib)
			s.emitSearch(ctx, c.ID, len(hits), time.Since(start), err)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return &domain.AlignmentError{ChainID: c.ID, Err: err}
			}
			found[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]domain.CandidateHit, len(chains))
	for i, c := range chains {
		out[c.ID] = found[i]
	}
	return out, nil
}

func (s *Session) certifiedResults() ([]domain.ChainResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.StateCertified {
		return nil, fmt.Errorf("%w: session is %s, not certified", domain.ErrOverlappingDomains, s.state)
	}
	return s.orderedResults(), nil
}

// orderedResults must be called with s.mu held.
func (s *Session) orderedResults() []domain.ChainResult {
	out := make([]domain.ChainResult, 0, len(s.results))
	for _, c := range s.chains {
		if res, ok := s.results[c.ID]; ok {
			out = append(out, res.Clone())
		}
	}
	return out
}

// inputs must be called with s.mu held.
func (s *Session) inputs(chains []domain.Chain) []engine.ChainInput {
	out := make([]engine.ChainInput, 0, len(chains))
	for _, c := range chains {
		out = append(out, engine.ChainInput{Chain: c, Hits: s.hits[c.ID]})
	}
	return out
}

func (s *Session) emitState(ctx context.Context, from, to domain.SessionState, err error) {
	s.logger.Debug("State transition", "from", from, "state", to)
	if s.hooks.OnStateChange == nil {
		return
	}
	s.hooks.OnStateChange(ctx, &domain.StateEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStateChange, SessionID: s.id},
		From:      from,
		To:        to,
		Err:       err,
	})
}

func (s *Session) emitSearch(ctx context.Context, chainID string, hits int, d time.Duration, err error) {
	if err != nil {
		s.logger.Warn("Alignment failed", "chain_id", chainID, "err", err)
	}
	if s.hooks.OnSearch == nil {
		return
	}
	s.hooks.OnSearch(ctx, &domain.SearchEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSearch, SessionID: s.id},
		ChainID:   chainID,
		Hits:      hits,
		Duration:  d,
		IsError:   err != nil,
	})
}

func (s *Session) emitResolved(ctx context.Context, results []domain.ChainResult) {
	if s.hooks.OnChainResolved == nil {
		return
	}
	for _, res := range results {
		s.hooks.OnChainResolved(ctx, &domain.ChainEvent{
			EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventChainResolved, SessionID: s.id},
			ChainID:     res.Chain.ID,
			Assignments: len(res.Assignments),
			Gaps:        len(res.Gaps),
			Unassigned:  res.Unassigned(),
		})
	}
}

func validateChains(chains []domain.Chain) error {
	seen := make(map[string]bool, len(chains))
	for i, c := range chains {
		if c.ID == "" {
			return fmt.Errorf("%w: chain #%d has no id", domain.ErrInvalidChain, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate chain id %q", domain.ErrInvalidChain, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

func conflictErrors(results []domain.ChainResult) error {
	var errs []error
	for _, res := range results {
		if len(res.Conflicts) > 0 {
			errs = append(errs, &domain.ConflictError{ChainID: res.Chain.ID, Conflicts: res.Conflicts})
		}
	}
	if len(errs) > 0 {
		return &domain.AggregateError{Errors: errs}
	}
	return nil
}
