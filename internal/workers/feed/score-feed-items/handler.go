// internal/workers/feed/score-feed-items/handler.go
package scorefeeditems

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/metrics"
	"feed-ranking-workers/internal/common/validation"
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/workers/feed/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-feed-items"
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
	start := time.Now()

	profile, err := h.pipeline.LoadProfile(ctx, input.UserID, input.Profile, false)
	if err != nil {
		return nil, err
	}

	candidates, rejected := decodeCandidates(input.Candidates)

	req, err := h.pipeline.LoadContext(ctx, input.UserID, profile, candidates, pipeline.Overrides{
		Interactions: input.Interactions,
		Social:       input.socialGraph(),
	})
	if err != nil {
		return nil, err
	}

	result, err := h.pipeline.Score(ctx, TaskType, input.UserID, req, candidates)
	if err != nil {
		return nil, err
	}
	rejected = append(rejected, result.Rejected...)

	items := result.Items
	if input.IncludeBreakdown != nil && !*input.IncludeBreakdown {
		items = pipeline.WithoutBreakdowns(items)
	}

	duration := time.Since(start)
	h.logger.Info("scoring completed", map[string]interface{}{
		"userId":        input.UserID,
		"inputCount":    len(input.Candidates),
		"scoredCount":   len(items),
		"rejectedCount": len(rejected),
		"durationMs":    duration.Milliseconds(),
	})
	if duration > h.config.SlowPassThreshold {
		h.logger.Warn("scoring pass exceeded threshold", map[string]interface{}{
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": h.config.SlowPassThreshold.Milliseconds(),
		})
	}

	if rejected == nil {
		rejected = []models.ItemError{}
	}
	return &Output{
		ScoredItems:   items,
		Rejected:      rejected,
		ScoredCount:   len(items),
		RejectedCount: len(rejected),
	}, nil
}

// decodeCandidates decodes each raw candidate on its own. Entries that are
// not valid candidate objects are rejected under their id, or their index
// when no id can be read.
func decodeCandidates(raw []json.RawMessage) ([]models.CandidateItem, []models.ItemError) {
	candidates := make([]models.CandidateItem, 0, len(raw))
	var rejected []models.ItemError
	for i, r := range raw {
		var item models.CandidateItem
		if err := json.Unmarshal(r, &item); err != nil {
			var ref struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(r, &ref)
			if ref.ID == "" {
				ref.ID = fmt.Sprintf("candidates[%d]", i)
			}
			rejected = append(rejected, models.ItemError{
				ItemID: ref.ID,
				Error:  fmt.Sprintf("decode candidate: %v", err),
			})
			continue
		}
		candidates = append(candidates, item)
	}
	return candidates, rejected
}

// UseRetrier retries job completion through r.
func (h *Handler) UseRetrier(r pipeline.CommandRetrier) {
	h.reporter.UseRetrier(r)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
