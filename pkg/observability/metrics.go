package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tendril"

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	Turns          *prometheus.CounterVec
	TurnDuration   prometheus.Histogram
	NodeEvaluated  *prometheus.CounterVec
	NodeDuration   *prometheus.HistogramVec
	Exceptions     *prometheus.CounterVec
	Revisions      *prometheus.CounterVec
	DuplicateNodes prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of dialogue turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of dialogue turns.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		NodeEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_evaluations_total",
			Help:      "Total number of evaluated nodes by type.",
		}, []string{"type"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_exec_duration_seconds",
			Help:      "Duration of node executions by type.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"type"}),
		Exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_total",
			Help:      "Total number of recorded exceptions by kind.",
		}, []string{"kind", "absorbed"}),
		Revisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revisions_total",
			Help:      "Total number of applied revisions by merge mode.",
		}, []string{"mode"}),
		DuplicateNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "revision_duplicated_nodes",
			Help:      "Number of nodes copied per revision.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Turns, m.TurnDuration, m.NodeEvaluated, m.NodeDuration,
		m.Exceptions, m.Revisions, m.DuplicateNodes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			m.Turns.WithLabelValues(outcome).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
		OnNodeEvaluated: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeEvaluated.WithLabelValues(e.NodeType).Inc()
			m.NodeDuration.WithLabelValues(e.NodeType).Observe(e.Duration.Seconds())
		},
		OnException: func(_ context.Context, e *domain.ExceptionEvent) {
			m.Exceptions.WithLabelValues(string(e.Err.Kind), strconv.FormatBool(e.Absorbed)).Inc()
		},
		OnRevise: func(_ context.Context, e *domain.ReviseEvent) {
			m.Revisions.WithLabelValues(string(e.Mode)).Inc()
			m.DuplicateNodes.Observe(float64(e.Duplicated))
		},
	}
}
