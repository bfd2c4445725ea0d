package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PathfindDone(OutcomeFound, time.Millisecond)
		m.CacheLookup(true)
		m.SetCasters(3)
		m.SetFlagEntries(10)
	})
}

func TestCounters(t *testing.T) {
	m := New(nil)

	m.PathfindDone(OutcomeFound, time.Millisecond)
	m.PathfindDone(OutcomeFound, 2*time.Millisecond)
	m.PathfindDone(OutcomeCancelled, 0)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.SetCasters(4)
	m.SetFlagEntries(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pathfindRequests.WithLabelValues(OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pathfindRequests.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.casters))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.flagEntries))
}

func TestRegisterAndServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetFlagEntries(7)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	n, err := testutil.GatherAndCount(reg, "ryot_flag_cache_entries")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
