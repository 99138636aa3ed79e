package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	ferrors "feed-ranking-workers/internal/common/errors"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/metrics"
	"feed-ranking-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Decode unmarshals job variables into v and checks them against the task
// schema. Malformed JSON is a PARSE_ERROR, schema violations are
// INPUT_VALIDATION_FAILED.
func Decode(schema *validation.Schema, variables string, v interface{}) error {
	raw := []byte(variables)
	if err := json.Unmarshal(raw, v); err != nil {
		return ferrors.NewParseError(fmt.Errorf("parse input: %w", err))
	}
	if result := schema.Validate(raw); !result.Valid {
		return ferrors.NewInputValidationError(result.Error())
	}
	return nil
}

// CommandRetrier retries a job command on transient gateway failures.
// *camunda.Client implements it.
type CommandRetrier interface {
	Retry(ctx context.Context, operation string, command func(context.Context) error) error
}

type sendOnce struct{}

func (sendOnce) Retry(ctx context.Context, _ string, command func(context.Context) error) error {
	return command(ctx)
}

// Reporter sends job outcomes back to Zeebe for one task type.
type Reporter struct {
	taskType string
	errors   *ferrors.ErrorHandler
	retrier  CommandRetrier
	logger   logger.Logger
}

func NewReporter(taskType string, log logger.Logger) *Reporter {
	return &Reporter{
		taskType: taskType,
		errors:   ferrors.NewErrorHandler(log),
		retrier:  sendOnce{},
		logger:   log,
	}
}

// UseRetrier makes Complete retry the command through r. A nil r sends once.
func (r *Reporter) UseRetrier(retrier CommandRetrier) {
	if retrier == nil {
		retrier = sendOnce{}
	}
	r.retrier = retrier
}

// Complete sends the output as job variables.
func (r *Reporter) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	err = r.retrier.Retry(ctx, "complete job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
	if err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	return nil
}

// Fail counts the failure and hands it to the error handler, which either
// fails the job with retries or throws a BPMN error. It returns err.
func (r *Reporter) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	code := string(ferrors.ErrCodeInternal)
	if stdErr, ok := ferrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, code).Inc()
	r.errors.HandleJobError(ctx, client, job, err)
	return err
}
