// Package metrics holds the Prometheus collectors of the storefront service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations applied, by operation",
		},
		[]string{"op"}, // "add", "remove", "coupon", "clear"
	)

	CartPayloadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_payload_errors_total",
			Help: "Session cart payloads that could not be decoded and were replaced by an empty cart",
		},
	)

	CartLinesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_lines_skipped_total",
			Help: "Cart lines skipped during hydration because the product left the catalog",
		},
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_catalog_cache_hits_total",
			Help: "Product lookups served from the in-process cache",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_catalog_cache_misses_total",
			Help: "Product lookups that went to the database",
		},
	)

	CoPurchaseOrders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_copurchase_orders_total",
			Help: "Paid orders recorded into the co-purchase store",
		},
	)

	CoPurchaseIncrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_copurchase_increments_total",
			Help: "Directed co-purchase score increments sent to the score store",
		},
	)

	SuggestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_suggest_duration_seconds",
			Help:    "Latency of suggestion queries against the score store",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // "single", "multi"
	)

	SuggestFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_suggest_failures_total",
			Help: "Suggestion requests answered with an empty list because the score store failed",
		},
	)
)
