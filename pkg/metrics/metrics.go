// Package metrics holds the Prometheus collectors shared by providers, the
// cache and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glimpse"

// Registry is a dedicated Prometheus registry. A private registry keeps
// tests free of global registration conflicts.
var Registry = prometheus.NewRegistry()

var (
	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to upstream search services",
		},
		[]string{"provider", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HTTP API requests",
		},
		[]string{"route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		upstreamRequests,
		upstreamDuration,
		cacheLookups,
		apiRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheWait  = "wait"
	CacheError = "error"
)

// ObserveUpstream records one upstream request. status is the HTTP status, or
// 0 when the request never got a response.
func ObserveUpstream(provider string, status int, took time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(provider, label).Inc()
	upstreamDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// ObserveCache records a cache lookup outcome.
func ObserveCache(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveAPI records a served API request.
func ObserveAPI(route string, status int) {
	apiRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
