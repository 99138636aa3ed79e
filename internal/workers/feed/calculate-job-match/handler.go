// internal/workers/feed/calculate-job-match/handler.go
package calculatejobmatch

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
	TaskType = "calculate-job-match"
)

type Handler struct {
	config   *Config
	pipeline *pipeline.Pipeline
	schema   *validation.Schema
	reporter *pipeline.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, p *pipeline.Pipeline, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		pipeline: p,
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
	profile, err := h.pipeline.LoadProfile(ctx, input.UserID, input.Profile, h.config.RequireProfile)
	if err != nil {
		return nil, err
	}

	match, breakdown := h.pipeline.Scorer().MatchJob(profile, &input.Job, time.Time{})

	h.logger.Info("job match calculated", map[string]interface{}{
		"userId":     input.UserID,
		"jobId":      input.JobID,
		"matchScore": match.Total,
	})

	return &Output{
		UserID:     input.UserID,
		JobID:      input.JobID,
		MatchScore: match.Total,
		Breakdown: MatchBreakdown{
			Skills:   match.Skills,
			Location: match.Location,
			Level:    match.Level,
			Sector:   match.Sector,
		},
		Weights: breakdown.Weights,
	}, nil
}

// UseRetrier retries job completion through r.
func (h *Handler) UseRetrier(r pipeline.CommandRetrier) {
	h.reporter.UseRetrier(r)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
