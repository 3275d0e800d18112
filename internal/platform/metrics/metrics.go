// Package metrics exposes Prometheus instrumentation for the catalog engine.
//
// Counters cover the parts of the upstream conversation worth alerting on:
// request volume per endpoint, retries, rate-limit hits, credential
// refreshes, and facet cache effectiveness. Scrape at GET /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UpstreamRequests counts catalog API calls by endpoint and status code
var UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playdex_upstream_requests_total",
	Help: "Total upstream catalog API requests.",
}, []string{"endpoint", "status"})

// UpstreamRetries counts retry attempts after a 429 by endpoint
var UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playdex_upstream_retries_total",
	Help: "Upstream retries issued after rate limiting.",
}, []string{"endpoint"})

// RateLimitExhausted counts requests that failed with 429 after all retries
var RateLimitExhausted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "playdex_upstream_rate_limit_exhausted_total",
	Help: "Requests abandoned after exhausting rate-limit retries.",
})

// TokenRefreshes counts credential exchanges by result (ok|error)
var TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playdex_token_refreshes_total",
	Help: "Upstream credential exchange attempts.",
}, []string{"result"})

// FacetCache counts facet stats cache lookups by result (hit|miss|stale_fallback)
var FacetCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "playdex_facet_cache_total",
	Help: "Facet statistics cache lookups.",
}, []string{"result"})

// UpstreamLatency tracks upstream call latency by endpoint
var UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "playdex_upstream_latency_seconds",
	Help:    "Upstream catalog API latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"endpoint"})

// ObserveUpstream records one upstream call outcome in a single shot
func ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, itoa(status)).Inc()
	UpstreamLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler { return promhttp.Handler() }

// itoa avoids strconv for the tiny status-code domain we emit
func itoa(n int) string {
	if n <= 0 {
		return "0"
	}
	buf := [4]byte{}
	i := len(buf)
	for n > 0 && i > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
