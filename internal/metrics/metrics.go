// Package metrics exposes Prometheus collectors for the crawler service.
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

// scoreBuckets spans the normalised score range (-1, 1).
var scoreBuckets = []float64{-0.9, -0.5, -0.25, 0, 0.25, 0.5, 0.7, 0.8, 0.9, 0.95, 0.99}

var (
	crawlerPagesTotal             *prometheus.CounterVec
	crawlerBytesTotal             prometheus.Counter
	crawlerPageScores             prometheus.Histogram
	crawlerLinkScores             prometheus.Histogram
	crawlerLinkScoreWindowMean    prometheus.Gauge
	crawlerItemsTotal             *prometheus.CounterVec
	crawlerBatchesTotal           prometheus.Counter
	crawlerAggregatesEvicted      prometheus.Counter
	crawlerBreakerBlacklisted     *prometheus.CounterVec
	crawlerBreakerRejected        prometheus.Counter
	crawlerLinksDropped           *prometheus.CounterVec
	crawlerFrontierDepth          prometheus.Gauge
	crawlerActiveWorkers          prometheus.Gauge
	crawlerRateLimitDelaysSeconds prometheus.Histogram
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of fetch attempts, labeled by status class.",
			},
			[]string{"status"},
		)

		crawlerBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of body bytes fetched.",
			},
		)

		crawlerPageScores = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_page_score",
				Help:    "Distribution of normalised page scores.",
				Buckets: scoreBuckets,
			},
		)

		crawlerLinkScores = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_link_score",
				Help:    "Distribution of normalised link scores.",
				Buckets: scoreBuckets,
			},
		)

		crawlerLinkScoreWindowMean = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_link_score_window_mean",
				Help: "Mean link score over the most recent scoring window.",
			},
		)

		crawlerItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_items_total",
				Help: "Crawl items emitted, labeled by itemization mode.",
			},
			[]string{"mode"},
		)

		crawlerBatchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_batches_total",
				Help: "Per-domain batches flushed.",
			},
		)

		crawlerAggregatesEvicted = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_domain_aggregates_evicted_total",
				Help: "Domain aggregates discarded by capacity or TTL before reaching a flush.",
			},
		)

		crawlerBreakerBlacklisted = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_breaker_blacklisted_total",
				Help: "Domains blacklisted by the circuit breaker, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerBreakerRejected = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_breaker_rejected_total",
				Help: "Requests rejected before dispatch because their domain is blacklisted.",
			},
		)

		crawlerLinksDropped = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_links_dropped_total",
				Help: "Outbound links not scheduled, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerFrontierDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_depth",
				Help: "Requests waiting in the priority frontier.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing a request.",
			},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of per-domain politeness waits.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
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

// StatusClass buckets an HTTP status for low-cardinality labels. Zero means
// no response was received.
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(status string, bytesFetched int) {
	Init()
	crawlerPagesTotal.WithLabelValues(status).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.Add(float64(bytesFetched))
	}
}

// ObservePageScore records a normalised page score.
func ObservePageScore(value float64) {
	Init()
	crawlerPageScores.Observe(value)
}

// ObserveLinkScore records a normalised link score.
func ObserveLinkScore(value float64) {
	Init()
	crawlerLinkScores.Observe(value)
}

// SetLinkScoreWindowMean publishes the rolling link score mean.
func SetLinkScoreWindowMean(mean float64) {
	Init()
	crawlerLinkScoreWindowMean.Set(mean)
}

// ObserveItems counts emitted crawl items. mode is "immediate" or "batch".
func ObserveItems(mode string, n int) {
	Init()
	crawlerItemsTotal.WithLabelValues(mode).Add(float64(n))
}

// ObserveBatch counts a flushed domain batch.
func ObserveBatch() {
	Init()
	crawlerBatchesTotal.Inc()
}

// ObserveAggregateEvicted counts an aggregate dropped before flushing.
func ObserveAggregateEvicted() {
	Init()
	crawlerAggregatesEvicted.Inc()
}

// ObserveBlacklisted counts a domain entering the blacklist.
func ObserveBlacklisted(reason string) {
	Init()
	crawlerBreakerBlacklisted.WithLabelValues(reason).Inc()
}

// ObserveRejected counts a request rejected by the breaker.
func ObserveRejected() {
	Init()
	crawlerBreakerRejected.Inc()
}

// ObserveLinkDropped counts an outbound link that was not scheduled.
func ObserveLinkDropped(reason string) {
	Init()
	crawlerLinksDropped.WithLabelValues(reason).Inc()
}

// SetFrontierDepth publishes the number of queued requests.
func SetFrontierDepth(n int) {
	Init()
	crawlerFrontierDepth.Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
