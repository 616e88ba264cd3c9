package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()
	r.PageFetched()
	r.PageFetched()
	r.FetchFailed()
	r.Skipped(3)
	r.Skipped(0)
	r.Persisted(18, 2)
	r.ObservePage(150 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(r.PagesFetched), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(r.FetchFailures), 0.001)
	assert.InDelta(t, 3, testutil.ToFloat64(r.RecordsSkipped), 0.001)
	assert.InDelta(t, 18, testutil.ToFloat64(r.EntitiesSaved), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(r.EntitiesFailed), 0.001)
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.PageFetched()
		r.FetchFailed()
		r.Skipped(1)
		r.Persisted(1, 1)
		r.ObservePage(time.Second)
		r.ObserveRequest(http.MethodGet, "/venues", http.StatusOK, time.Millisecond)
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.Persisted(5, 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "venue_entities_saved_total 5")
}

func TestRegistry_ObserveRequest(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest(http.MethodGet, "/venues", http.StatusOK, 5*time.Millisecond)
	r.ObserveRequest(http.MethodGet, "/venues", http.StatusOK, 7*time.Millisecond)
	r.ObserveRequest(http.MethodGet, "/venues", http.StatusBadRequest, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("GET", "/venues", "200")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("GET", "/venues", "400")), 0.001)
	assert.Equal(t, 1, testutil.CollectAndCount(r.HTTPDuration))
}

func TestRegistry_Counters_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.PageFetched()
	r.Persisted(4, 1)
	r.ObservePage(time.Second)
	r.ObserveRequest(http.MethodGet, "/stats", http.StatusOK, time.Millisecond)
	r.ObserveRequest(http.MethodGet, "/venues", http.StatusOK, time.Millisecond)

	got, err := r.Counters()
	require.NoError(t, err)
	assert.InDelta(t, 1, got["venue_pages_fetched_total"], 0.001)
	assert.InDelta(t, 4, got["venue_entities_saved_total"], 0.001)
	assert.InDelta(t, 1, got["venue_entities_failed_total"], 0.001)
	assert.InDelta(t, 2, got["venue_http_requests_total"], 0.001)
	assert.NotContains(t, got, "venue_page_duration_seconds")

	var empty *Registry
	got, err = empty.Counters()
	require.NoError(t, err)
	assert.Empty(t, got)
}
