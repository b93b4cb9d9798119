package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.RunsStarted.Inc()
	m.RunsStarted.Inc()
	if got := testutil.ToFloat64(m.RunsStarted); got != 2 {
		t.Errorf("runs_started_total = %v, want 2", got)
	}

	m.RunOutcomes.WithLabelValues("completed").Inc()
	if got := testutil.ToFloat64(m.RunOutcomes.WithLabelValues("completed")); got != 1 {
		t.Errorf("run_outcomes_total{completed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RunOutcomes.WithLabelValues("failed")); got != 0 {
		t.Errorf("run_outcomes_total{failed} = %v, want 0", got)
	}

	m.RunActive.Inc()
	m.RunActive.Dec()
	if got := testutil.ToFloat64(m.RunActive); got != 0 {
		t.Errorf("run_active = %v, want 0", got)
	}

	m.LayerValidCells.WithLabelValues("temperature").Set(3072)
	if got := testutil.ToFloat64(m.LayerValidCells.WithLabelValues("temperature")); got != 3072 {
		t.Errorf("layer_valid_cells{temperature} = %v, want 3072", got)
	}
}

// Fresh-registry metrics from repeated calls must not collide.
func TestNewMetricsForTesting_Repeated(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.RunsStarted.Inc()
	if got := testutil.ToFloat64(b.RunsStarted); got != 0 {
		t.Errorf("second instance saw %v increments, want 0", got)
	}
}
