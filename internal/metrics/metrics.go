// Package metrics exposes Prometheus instruments for the ingestion pipeline.
// A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rotisserie/eris"
)

// Registry holds the pipeline and HTTP instruments on a private Prometheus
// registry.
type Registry struct {
	reg            *prometheus.Registry
	PagesFetched   prometheus.Counter
	FetchFailures  prometheus.Counter
	RecordsSkipped prometheus.Counter
	EntitiesSaved  prometheus.Counter
	EntitiesFailed prometheus.Counter
	PageDuration   prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewRegistry creates and registers all instruments.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_pages_fetched_total",
		Help: "Directory pages fetched successfully.",
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_fetch_failures_total",
		Help: "Directory page fetches that failed.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_records_skipped_total",
		Help: "Raw records that could not be decoded or lacked an identity.",
	})
	saved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_entities_saved_total",
		Help: "Venues upserted successfully.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "venue_entities_failed_total",
		Help: "Venues whose upsert failed.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "venue_page_duration_seconds",
		Help:    "Time to fetch, normalize and persist one page.",
		Buckets: prometheus.DefBuckets,
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_http_requests_total",
		Help: "HTTP requests served, by route and status.",
	}, []string{"method", "route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "venue_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	r.MustRegister(pages, fetchFailures, skipped, saved, failed, duration, requests, latency)
	return &Registry{
		reg:            r,
		PagesFetched:   pages,
		FetchFailures:  fetchFailures,
		RecordsSkipped: skipped,
		EntitiesSaved:  saved,
		EntitiesFailed: failed,
		PageDuration:   duration,
		HTTPRequests:   requests,
		HTTPDuration:   latency,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) PageFetched() {
	if r != nil {
		r.PagesFetched.Inc()
	}
}

func (r *Registry) FetchFailed() {
	if r != nil {
		r.FetchFailures.Inc()
	}
}

func (r *Registry) Skipped(n int) {
	if r != nil && n > 0 {
		r.RecordsSkipped.Add(float64(n))
	}
}

// Persisted records the outcome of one upsert batch.
func (r *Registry) Persisted(saved, failed int) {
	if r == nil {
		return
	}
	r.EntitiesSaved.Add(float64(saved))
	r.EntitiesFailed.Add(float64(failed))
}

func (r *Registry) ObservePage(d time.Duration) {
	if r != nil {
		r.PageDuration.Observe(d.Seconds())
	}
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Counters returns the current value of every counter series, summed
// across labels and keyed by metric name.
func (r *Registry) Counters() (map[string]float64, error) {
	out := map[string]float64{}
	if r == nil {
		return out, nil
	}
	families, err := r.reg.Gather()
	if err != nil {
		return nil, eris.Wrap(err, "metrics: gather")
	}
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		out[mf.GetName()] = sum
	}
	return out, nil
}
