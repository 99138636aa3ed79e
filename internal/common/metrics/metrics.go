// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	FeedItemsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_items_scored_total",
			Help: "Candidates scored, by item type",
		},
		[]string{"item_type"},
	)

	FeedItemsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_items_rejected_total",
			Help: "Candidates rejected during scoring, by item type and reason",
		},
		[]string{"item_type", "reason"},
	)

	FeedRankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_ranking_duration_seconds",
			Help:    "Duration of a scoring or ranking pass",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"task_type"},
	)

	FeedDiversitySwaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_diversity_swaps_total",
			Help: "Items moved by the diversifier to break type or author runs",
		},
	)

	FeedScoreCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_score_cache_requests_total",
			Help: "Score cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
