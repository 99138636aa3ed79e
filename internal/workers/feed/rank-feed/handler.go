// internal/workers/feed/rank-feed/handler.go
package rankfeed

import (
	"context"
	"time"

	"feed-ranking-workers/internal/common/errors"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/metrics"
	"feed-ranking-workers/internal/common/observability"
	"feed-ranking-workers/internal/common/validation"
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/store"
	"feed-ranking-workers/internal/workers/feed/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	TaskType = "rank-feed"
)

// ItemsObserver is told how many items each pass ranked.
type ItemsObserver interface {
	RecordItemsRanked(ctx context.Context, taskType string, n int)
}

// Sources are the candidate feeds. A nil source contributes nothing.
type Sources struct {
	Jobs     store.CandidateSource
	Posts    store.CandidateSource
	Observer ItemsObserver
}

type Handler struct {
	config   *Config
	pipeline *pipeline.Pipeline
	sources  Sources
	schema   *validation.Schema
	reporter *pipeline.Reporter
	logger   logger.Logger
	now      func() time.Time
}

func NewHandler(config *Config, p *pipeline.Pipeline, sources Sources, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		pipeline: p,
		sources:  sources,
		schema:   validation.MustForTask(TaskType),
		reporter: pipeline.NewReporter(TaskType, log),
		logger:   log,
		now:      time.Now,
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

func (h *Handler) execute(ctx context.Context, input *Input) (output *Output, err error) {
	ctx, end := observability.StartSpan(ctx, TaskType, attribute.String("userId", input.UserID))
	defer func() { end(err) }()

	start := time.Now()

	profile, err := h.pipeline.LoadProfile(ctx, input.UserID, nil, h.config.RequireProfile)
	if err != nil {
		return nil, err
	}

	candidates, err := h.loadCandidates(ctx, input)
	if err != nil {
		return nil, err
	}

	req, err := h.pipeline.LoadContext(ctx, input.UserID, profile, candidates, pipeline.Overrides{})
	if err != nil {
		return nil, err
	}

	scored, err := h.pipeline.Score(ctx, TaskType, input.UserID, req, candidates)
	if err != nil {
		return nil, err
	}

	page, err := pipeline.Finish(ctx, TaskType, h.config.Diversity, input.Page, h.pageSize(input.PageSize), scored.Items)
	if err != nil {
		return nil, err
	}
	if !enabled(input.IncludeBreakdown) {
		page.Feed.Items = pipeline.WithoutBreakdowns(page.Feed.Items)
	}
	if h.sources.Observer != nil {
		h.sources.Observer.RecordItemsRanked(ctx, TaskType, len(scored.Items))
	}

	duration := time.Since(start)
	h.logger.Info("ranking completed", map[string]interface{}{
		"rankingId":     page.Feed.RankingID,
		"userId":        input.UserID,
		"inputCount":    len(candidates),
		"rankedCount":   len(scored.Items),
		"rejectedCount": len(scored.Rejected),
		"outputCount":   len(page.Feed.Items),
		"swaps":         page.Stats.Swaps,
		"durationMs":    duration.Milliseconds(),
	})
	if duration > h.config.SlowPassThreshold {
		h.logger.Warn("ranking exceeded threshold", map[string]interface{}{
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": h.config.SlowPassThreshold.Milliseconds(),
		})
	}

	rejected := scored.Rejected
	if rejected == nil {
		rejected = []models.ItemError{}
	}
	return &Output{Feed: page.Feed, Rejected: rejected, Stats: page.Stats}, nil
}

// loadCandidates reads recent jobs and posts concurrently. Jobs come first
// in the returned slice; ordering is settled later by score.
func (h *Handler) loadCandidates(ctx context.Context, input *Input) ([]models.CandidateItem, error) {
	now := h.now()
	var jobs, posts []models.CandidateItem

	g, gctx := errgroup.WithContext(ctx)
	if enabled(input.IncludeJobs) && h.sources.Jobs != nil {
		g.Go(func() error {
			items, err := h.sources.Jobs.Recent(gctx, now.Add(-h.config.JobLookback), h.config.CandidateLimit)
			if err != nil {
				return errors.NewCandidateLoadFailedError(string(models.ItemTypeJob), err)
			}
			jobs = items
			return nil
		})
	}
	if enabled(input.IncludePosts) && h.sources.Posts != nil {
		g.Go(func() error {
			items, err := h.sources.Posts.Recent(gctx, now.Add(-h.config.PostLookback), h.config.CandidateLimit)
			if err != nil {
				return errors.NewCandidateLoadFailedError(string(models.ItemTypePost), err)
			}
			posts = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(jobs, posts...), nil
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
