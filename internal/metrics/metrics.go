// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_pages_fetched_total",
		Help: "Page fetch attempts by result (ok, empty, error, disallowed).",
	}, []string{"result"})

	SitemapsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_sitemaps_resolved_total",
		Help: "Sitemap documents visited by result (ok, error, skipped).",
	}, []string{"result"})

	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_ingest_runs_total",
		Help: "Finished ingestion runs by outcome status.",
	}, []string{"status"})

	IndexFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitechat_index_failures_total",
		Help: "Pages persisted without a vector because indexing failed.",
	})

	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_chat_requests_total",
		Help: "Chat turns by outcome (answered, no_results, error).",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "code"})

	JobsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitechat_jobs_published_total",
		Help: "Scrape jobs published to the queue by source.",
	}, []string{"source"})

	QueuePending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sitechat_queue_pending_entries",
		Help: "Entries delivered to the worker group but not yet acked.",
	}, []string{"stream"})

	QueueLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sitechat_queue_lag_entries",
		Help: "Entries not yet delivered to the worker group (-1 when the group is unknown).",
	}, []string{"stream"})

	QueueOldestPending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sitechat_queue_oldest_pending_seconds",
		Help: "Idle time of the oldest pending entry.",
	}, []string{"stream"})
)
