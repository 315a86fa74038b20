package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("markup:history_refresh").End(nil))
	failure := errors.New("boom")
	require.ErrorIs(t, m.Track("markup:history_refresh").End(failure), failure)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("markup:history_refresh", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("markup:history_refresh", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("markup:history_refresh")))
}

func TestAddRefreshed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddRefreshed("updated", 3)
	m.AddRefreshed("updated", 0)
	m.AddRefreshed("failed", 1)

	require.Equal(t, 3.0, testutil.ToFloat64(m.refreshed.WithLabelValues("updated")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshed.WithLabelValues("failed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	err := errors.New("kept")
	require.ErrorIs(t, m.Track("job").End(err), err)
	m.AddRefreshed("updated", 2)
}
