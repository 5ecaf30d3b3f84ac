package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Ingest(OutcomeCreated)
	m.Ingest(OutcomeCreated)
	m.Ingest(OutcomeReplayed)
	m.Dispatch(ResultPublishFailed)
	m.Rollback(StoreLegacy)

	if got := testutil.ToFloat64(m.ingest.WithLabelValues(OutcomeCreated)); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ingest.WithLabelValues(OutcomeReplayed)); got != 1 {
		t.Errorf("replayed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatch.WithLabelValues(ResultPublishFailed)); got != 1 {
		t.Errorf("publish_failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rollbacks.WithLabelValues(StoreLegacy)); got != 1 {
		t.Errorf("legacy rollbacks = %v, want 1", got)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("registering twice on one registry should fail")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Ingest(OutcomeFailed)
	m.Dispatch(ResultSent)
	m.Rollback(StorePrimary)
}
