package observability

import (
	"context"

	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by session hooks.
type Metrics struct {
	Transitions    *prometheus.CounterVec
	ChainsResolved prometheus.Counter
	Gaps           prometheus.Counter
	Unassigned     prometheus.Histogram
	SearchDuration *prometheus.HistogramVec
	SearchHits     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domaindetect_session_transitions_total",
				Help: "Total number of session state transitions",
			},
			[]string{"from", "to"},
		),
		ChainsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domaindetect_chains_resolved_total",
			Help: "Total number of chains resolved into domain assignments",
		}),
		Gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domaindetect_gaps_total",
			Help: "Total number of unassigned gaps reported",
		}),
		Unassigned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "domaindetect_unassigned_residues",
			Help:    "Residues left unassigned per resolved chain",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250},
		}),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "domaindetect_search_duration_seconds",
				Help: "Duration of alignment searches",
			},
			[]string{"outcome"},
		),
		SearchHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domaindetect_search_hits_total",
			Help: "Candidate hits returned by the aligner",
		}),
	}

	for _, c := range []prometheus.Collector{m.Transitions, m.ChainsResolved, m.Gaps, m.Unassigned, m.SearchDuration, m.SearchHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnSearch: func(_ context.Context, e *domain.SearchEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.SearchDuration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
			m.SearchHits.Add(float64(e.Hits))
		},
		OnChainResolved: func(_ context.Context, e *domain.ChainEvent) {
			m.ChainsResolved.Inc()
			m.Gaps.Add(float64(e.Gaps))
			m.Unassigned.Observe(float64(e.Unassigned))
		},
	}
}
