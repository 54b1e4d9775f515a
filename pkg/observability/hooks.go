package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/domaindetect/pkg/domain"
)

// LoggingHooks logs every lifecycle event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, e *domain.StateEvent) {
			level := slog.LevelInfo
			if e.To == domain.StateFailed {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "state_change",
				"session_id", e.SessionID,
				"from", e.From,
				"to", e.To,
				"err", e.Err,
			)
		},
		OnSearch: func(ctx context.Context, e *domain.SearchEvent) {
			logger.DebugContext(ctx, "search",
				"session_id", e.SessionID,
				"chain_id", e.ChainID,
				"hits", e.Hits,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnChainResolved: func(ctx context.Context, e *domain.ChainEvent) {
			logger.InfoContext(ctx, "chain_resolved",
				"session_id", e.SessionID,
				"chain_id", e.ChainID,
				"assignments", e.Assignments,
				"gaps", e.Gaps,
			)
		},
	}
}

// Combine returns hooks that invoke every non-nil callback of each set in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if h.OnStateChange != nil {
			prev := out.OnStateChange
			out.OnStateChange = func(ctx context.Context, e *domain.StateEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStateChange(ctx, e)
			}
		}
		if h.OnSearch != nil {
			prev := out.OnSearch
			out.OnSearch = func(ctx context.Context, e *domain.SearchEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnSearch(ctx, e)
			}
		}
		if h.OnChainResolved != nil {
			prev := out.OnChainResolved
			out.OnChainResolved = func(ctx context.Context, e *domain.ChainEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnChainResolved(ctx, e)
			}
		}
	}
	return out
}
