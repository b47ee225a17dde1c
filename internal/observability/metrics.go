package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/climate-api/internal/health"
	"github.com/kjstillabower/climate-api/internal/models"
	"github.com/kjstillabower/climate-api/internal/validation"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation; the service assumes low concurrency.
	HTTPRequestsInFlight prometheus.Gauge

	// Data store queries by query name and status (success, error).
	StoreQueriesTotal *prometheus.CounterVec

	// Data store query latency. Watch for: p99 growth, which stalls exactly one request each.
	StoreQueryDuration *prometheus.HistogramVec

	// Date-range queries by outcome (success or one of the RangeError kinds).
	RangeQueriesTotal *prometheus.CounterVec

	// Date-range queries whose start or end was clamped to the dataset bounds.
	RangeQueriesClampedTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Dataset span in days (last_date - first_date). Set once at startup.
	DatasetSpanDays prometheus.Gauge

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeQueriesTotal",
			Help: "Total number of data store queries",
		},
		[]string{"query", "status"},
	)
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storeQueryDurationSeconds",
			Help:    "Data store query latency in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)
	RangeQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeQueriesTotal",
			Help: "Total number of temperature range queries by outcome",
		},
		[]string{"outcome"},
	)
	RangeQueriesClampedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangeQueriesClampedTotal",
			Help: "Range queries whose start or end was clamped to the dataset bounds",
		},
		[]string{"side"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	DatasetSpanDays = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datasetSpanDays",
			Help: "Days between the first and last measurement date",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		StoreQueriesTotal, StoreQueryDuration,
		RangeQueriesTotal, RangeQueriesClampedTotal,
		RateLimitDeniedTotal,
		DatasetSpanDays,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from serve after config load with cfg.OverloadWindow, the window /health uses.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(health.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(health.DenialCount(window)) },
			),
		)
	})
}

// ObserveStoreQuery records one data store query outcome and its latency.
func ObserveStoreQuery(query string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreQueriesTotal.WithLabelValues(query, status).Inc()
	StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// SetDatasetBounds publishes the dataset span. Unparseable bounds leave the gauge untouched.
func SetDatasetBounds(b models.Bounds) {
	first, err := validation.ParseDate(b.FirstDate)
	if err != nil {
		return
	}
	last, err := validation.ParseDate(b.LastDate)
	if err != nil {
		return
	}
	DatasetSpanDays.Set(last.Sub(first).Hours() / 24)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
