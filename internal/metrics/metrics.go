// Package metrics exposes Prometheus collectors for the aggregation service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	adapterOutcomesTotal       *prometheus.CounterVec
	adapterDurationSeconds     *prometheus.HistogramVec
	recordsSuppressedTotal     *prometheus.CounterVec
	governorIntervalSeconds    *prometheus.GaugeVec
	platformRequestsTotal      *prometheus.CounterVec
	browserSessionsActive      prometheus.Gauge
	searchesTotal              *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		adapterOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobmcp_adapter_outcomes_total",
				Help: "Source adapter outcomes, labeled by source and outcome kind.",
			},
			[]string{"source", "outcome"},
		)

		adapterDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobmcp_adapter_duration_seconds",
				Help:    "Wall time spent in each source adapter call.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
			},
			[]string{"source"},
		)

		recordsSuppressedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobmcp_records_suppressed_total",
				Help: "Records dropped during normalization for missing title or company.",
			},
			[]string{"source"},
		)

		governorIntervalSeconds = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobmcp_governor_interval_seconds",
				Help: "Current minimum spacing between requests per source.",
			},
			[]string{"source"},
		)

		platformRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobmcp_platform_requests_total",
				Help: "Outbound platform requests, labeled by host and status code.",
			},
			[]string{"site", "status"},
		)

		browserSessionsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobmcp_browser_sessions_active",
				Help: "Browser tabs currently checked out of a session pool.",
			},
		)

		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobmcp_searches_total",
				Help: "Aggregated searches, labeled by result (success, partial, failed, invalid).",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveAdapter records one adapter outcome and its duration.
func ObserveAdapter(source, outcome string, duration time.Duration) {
	Init()
	adapterOutcomesTotal.WithLabelValues(source, outcome).Inc()
	adapterDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveSuppressed counts records dropped by the normalizer.
func ObserveSuppressed(source string, n int) {
	if n <= 0 {
		return
	}
	Init()
	recordsSuppressedTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveGovernorInterval publishes the current governor interval for a source.
func ObserveGovernorInterval(source string, interval time.Duration) {
	Init()
	governorIntervalSeconds.WithLabelValues(source).Set(interval.Seconds())
}

// ObservePlatformRequest counts an outbound request to a platform.
func ObservePlatformRequest(rawURL string, status int) {
	Init()
	platformRequestsTotal.WithLabelValues(SanitizeSite(rawURL), strconv.Itoa(status)).Inc()
}

// IncBrowserSessions increments the active browser sessions gauge.
func IncBrowserSessions() {
	Init()
	browserSessionsActive.Inc()
}

// DecBrowserSessions decrements the active browser sessions gauge.
func DecBrowserSessions() {
	Init()
	browserSessionsActive.Dec()
}

// ObserveSearch counts a finished search by result class.
func ObserveSearch(result string) {
	Init()
	searchesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
