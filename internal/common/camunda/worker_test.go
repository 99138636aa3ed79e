package camunda

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"feed-ranking-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	mu        sync.Mutex
	statuses  []string
	durations int
}

func (o *recordingObserver) RecordJobProcessed(_ context.Context, _ string, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) RecordJobDuration(_ context.Context, _ string, _ time.Duration, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.durations++
}

func TestWrapHandler_RecordsStatus(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		want       string
	}{
		{"completed", nil, "completed"},
		{"failed", fmt.Errorf("store down"), "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &recordingObserver{}
			var gotKey int64
			handler := JobHandlerFunc(func(_ worker.JobClient, job entities.Job) error {
				gotKey = job.Key
				return tt.handlerErr
			})

			wrapped := wrapHandler("rank-feed", handler, observer, logger.NewTestLogger(t))
			wrapped(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42}})

			assert.Equal(t, int64(42), gotKey)
			assert.Equal(t, []string{tt.want}, observer.statuses)
			assert.Equal(t, 1, observer.durations)
		})
	}
}

func TestWrapHandler_NilObserver(t *testing.T) {
	called := false
	handler := JobHandlerFunc(func(worker.JobClient, entities.Job) error {
		called = true
		return nil
	})

	wrapped := wrapHandler("diversify-feed", handler, nil, logger.NewTestLogger(t))
	assert.NotPanics(t, func() {
		wrapped(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7}})
	})
	assert.True(t, called)
}
