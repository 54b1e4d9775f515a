package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/aretw0/domaindetect/internal/logging"
	"github.com/aretw0/domaindetect/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// ChainInput pairs a chain with the raw hits the aligner returned for it.
type ChainInput struct {
	Chain domain.Chain
	Hits  []domain.CandidateHit
}

// Engine runs the per-chain pipeline: filter, score, resolve, detect gaps.
// It is a pure function of (chains, hits, config, library) and holds no mutable state.
type Engine struct {
	cfg         domain.Config
	logger      *slog.Logger
	concurrency int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConcurrency caps the number of chains resolved in parallel. Zero means GOMAXPROCS.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg domain.Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:    cfg.Effective(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency <= 0 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() domain.Config {
	return e.cfg
}

// AnnotateChain resolves a single chain. It never fails: unresolved overlaps are
// recorded on the result and reported at certification.
func (e *Engine) AnnotateChain(chain domain.Chain, hits []domain.CandidateHit, lib *domain.Library) domain.ChainResult {
	res := domain.ChainResult{
		Chain: chain,
		Hits:  append([]domain.CandidateHit(nil), hits...),
	}

	clean := sanitizeHits(chain, hits)
	filtered := FilterHits(clean, e.cfg.SkipHitPercentCoverageThreshold, e.cfg.SkipHitPercentIdentityThreshold)
	res.Scored = ScoreHits(filtered, e.cfg.UpperSortingThreshold, e.cfg.LowerSortingThreshold)

	assignments, err := NewResolver(e.cfg, lib).Resolve(chain, res.Scored)
	res.Assignments = assignments

	e.logger.Debug("Chain resolved",
		"chain_id", chain.ID,
		"hits", len(hits),
		"scored", len(res.Scored),
		"assignments", len(res.Assignments),
	)
	if err != nil {
		e.logger.Debug("Resolver left overlapping assignments", "chain_id", chain.ID, "err", err)
	}
	return e.Refresh(res, lib)
}

// Refresh recomputes everything derived from a chain's assignments: ordering,
// conflicts, gaps and warnings. It is used after resolution and after manual edits.
func (e *Engine) Refresh(res domain.ChainResult, lib *domain.Library) domain.ChainResult {
	domain.SortAssignments(res.Assignments)
	res.Conflicts = FindConflicts(res.Assignments)
	res.Gaps = DetectGaps(res.Chain.ID, res.Chain.Len(), res.Assignments, e.cfg.MaxDomainDistance)
	res.Warnings = nil

	id := res.Chain.ID
	for _, domainID := range unknownDomains(res, lib) {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnUnknownDomain,
			ChainID: id,
			Message: fmt.Sprintf("domain %q is missing from the library", domainID),
		})
	}
	if len(res.Assignments) == 0 {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnNoHits,
			ChainID: id,
			Message: "no domain recognized for this chain",
		})
	}
	if len(res.Gaps) > 0 {
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    domain.WarnGaps,
			ChainID: id,
			Message: fmt.Sprintf("%d unassigned region(s) longer than %d residues", len(res.Gaps), e.cfg.MaxDomainDistance),
		})
	}
	if len(res.Conflicts) > 0 {
		e.logger.Warn("Unresolved domain conflicts", "chain_id", id, "conflicts", len(res.Conflicts))
	}
	return res
}

// AnnotateAll resolves every chain concurrently, one task per chain, and returns the
// results in input order once all of them are done. Only cancellation fails it.
func (e *Engine) AnnotateAll(ctx context.Context, inputs []ChainInput, lib *domain.Library) ([]domain.ChainResult, error) {
	results := make([]domain.ChainResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.AnnotateChain(in.Chain, in.Hits, lib)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Certify checks every result and returns the issues of incompatible chains.
func (e *Engine) Certify(results []domain.ChainResult) []domain.ChainIssue {
	var issues []domain.ChainIssue
	for _, res := range results {
		issues = append(issues, CheckChain(res, e.cfg.MaxDomainDistance)...)
	}
	return issues
}

// sanitizeHits clamps hits to the chain and drops empty ones. Hits without a chain ID
// are attributed to the chain they were returned for.
func sanitizeHits(chain domain.Chain, hits []domain.CandidateHit) []domain.CandidateHit {
	out := make([]domain.CandidateHit, 0, len(hits))
	for _, h := range hits {
		if h.ChainID == "" {
			h.ChainID = chain.ID
		}
		if h.ChainID != chain.ID {
			continue
		}
		h.Start = max(h.Start, 0)
		h.End = min(h.End, chain.Len())
		if h.End <= h.Start {
			continue
		}
		out = append(out, h)
	}
	return out
}

func unknownDomains(res domain.ChainResult, lib *domain.Library) []string {
	if lib == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	check := func(id string) {
		if _, ok := lib.Domain(id); !ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, h := range res.Scored {
		check(h.LibraryDomainID)
	}
	for _, a := range res.Assignments {
		check(a.DomainID)
	}
	return ids
}
