// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the services and the product cache.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"method", "path", "status"},
	)
	CartMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cart_mutations_total", Help: "Cart mutations by operation and outcome"},
		[]string{"op", "outcome"},
	)
	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "orders_created_total", Help: "Orders placed"},
	)
	OrderTotalMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "order_total_mismatch_total", Help: "Orders whose client-supplied total differed from the computed one"},
	)
	CacheHitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_hit_total", Help: "Cache hits by component"},
		[]string{"component"},
	)
	CacheMissTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_miss_total", Help: "Cache misses by component"},
		[]string{"component"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration,
		RequestsTotal,
		CartMutationsTotal,
		OrdersCreatedTotal,
		OrderTotalMismatchTotal,
		CacheHitTotal,
		CacheMissTotal,
	)
}

func ObserveRequest(method, path string, status int, seconds float64) {
	code := strconv.Itoa(status)
	RequestDuration.WithLabelValues(method, path, code).Observe(seconds)
	RequestsTotal.WithLabelValues(method, path, code).Inc()
}

// Outcome labels an operation result for counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
