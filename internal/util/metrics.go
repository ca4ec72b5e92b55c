package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart and wishlist mutations",
	}, []string{"operation"})

	PersistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_persist_failures_total",
		Help: "Total number of state writes that could not be persisted",
	}, []string{"key"})

	StorageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_storage_loads_total",
		Help: "Storage loads by outcome",
	}, []string{"outcome"})

	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	OrderSubmissionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_submissions_failed_total",
		Help: "Order submissions rejected or unreachable upstream, by applied policy",
	}, []string{"policy"})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_changes_total",
		Help: "Order status transitions by target status",
	}, []string{"status"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_upstream_request_duration_seconds",
		Help:    "Latency of calls to external services",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream", "operation", "outcome"})

	AdminSnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_admin_snapshots_published_total",
		Help: "Admin snapshots fanned out to subscribers after a change",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
