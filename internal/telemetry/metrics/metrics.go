// Package metrics defines the Prometheus counters for capture ingestion and event dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// Dispatch results.
const (
	ResultSent          = "sent"
	ResultPublishFailed = "publish_failed"
	ResultMarkFailed    = "mark_failed"
	ResultSkipped       = "skipped"
)

// Store labels for rollbacks.
const (
	StorePrimary = "primary"
	StoreLegacy  = "legacy"
)

// Metrics holds the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ingest    *prometheus.CounterVec
	dispatch  *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_ingest_total",
			Help: "Capture submissions by outcome.",
		}, []string{"outcome"}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_dispatch_total",
			Help: "Domain event dispatch attempts by result.",
		}, []string{"result"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_rollback_total",
			Help: "Compensating rollbacks by store.",
		}, []string{"store"}),
	}
	for _, c := range []prometheus.Collector{m.ingest, m.dispatch, m.rollbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Ingest(outcome string) {
	if m != nil {
		m.ingest.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Dispatch(result string) {
	if m != nil {
		m.dispatch.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Rollback(store string) {
	if m != nil {
		m.rollbacks.WithLabelValues(store).Inc()
	}
}
