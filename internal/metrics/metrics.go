// Package metrics registers the Prometheus collectors for the fill
// ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PagesFetched counts trade-history pages successfully retrieved.
	PagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fillscope_pages_fetched_total", Help: "Trade history pages retrieved"},
	)
	// ThrottleRetries counts page requests retried after an HTTP 429.
	ThrottleRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fillscope_throttle_retries_total", Help: "Page requests retried after throttling"},
	)
	// FillsClassified counts raw fills classified into trade records.
	FillsClassified = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fillscope_fills_classified_total", Help: "Raw fills classified"},
	)
	// FillsSkipped counts malformed fills dropped by the pipeline.
	FillsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fillscope_fills_skipped_total", Help: "Malformed fills skipped"},
	)
	// CatalogRefreshes counts successful market catalog refreshes.
	CatalogRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fillscope_catalog_refreshes_total", Help: "Market catalog refreshes"},
	)
)

func init() {
	prometheus.MustRegister(
		PagesFetched,
		ThrottleRetries,
		FillsClassified,
		FillsSkipped,
		CatalogRefreshes,
	)
}
