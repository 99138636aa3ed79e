// internal/workers/feed/diversify-feed/handler.go
package diversifyfeed

import (
	"context"
	"time"

	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/metrics"
	"feed-ranking-workers/internal/common/validation"
	"feed-ranking-workers/internal/workers/feed/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "diversify-feed"
)

type Handler struct {
	config   *Config
	schema   *validation.Schema
	reporter *pipeline.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		schema:   validation.MustForTask(TaskType),
		reporter: pipeline.NewReporter(TaskType, log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := pipeline.Decode(h.schema, job.Variables, &input); err != nil {
		return h.reporter.Fail(ctx, client, job, err)
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		return h.reporter.Fail(ctx, client, job, err)
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	return h.reporter.Complete(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	cfg := h.config.Diversity
	if input.MaxConsecutiveSameType > 0 {
		cfg.MaxConsecutiveSameType = input.MaxConsecutiveSameType
	}
	if input.MaxConsecutiveSameAuthor > 0 {
		cfg.MaxConsecutiveSameAuthor = input.MaxConsecutiveSameAuthor
	}

	page, err := pipeline.Finish(ctx, TaskType, cfg, input.Page, h.pageSize(input.PageSize), input.ScoredItems)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	metrics.FeedRankingDuration.WithLabelValues(TaskType).Observe(duration.Seconds())
	h.logger.Info("diversification completed", map[string]interface{}{
		"rankingId":        page.Feed.RankingID,
		"inputCount":       len(input.ScoredItems),
		"outputCount":      len(page.Feed.Items),
		"swaps":            page.Stats.Swaps,
		"typeViolations":   page.Stats.TypeViolations,
		"authorViolations": page.Stats.AuthorViolations,
		"durationMs":       duration.Milliseconds(),
	})
	if duration > h.config.SlowPassThreshold {
		h.logger.Warn("diversification exceeded threshold", map[string]interface{}{
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": h.config.SlowPassThreshold.Milliseconds(),
		})
	}

	return &Output{Feed: page.Feed, Stats: page.Stats}, nil
}

func (h *Handler) pageSize(requested int) int {
	size := requested
	if size <= 0 {
		size = h.config.PageSize
	}
	if h.config.MaxPageSize > 0 && size > h.config.MaxPageSize {
		size = h.config.MaxPageSize
	}
	return size
}

// UseRetrier retries job completion through r.
func (h *Handler) UseRetrier(r pipeline.CommandRetrier) {
	h.reporter.UseRetrier(r)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
