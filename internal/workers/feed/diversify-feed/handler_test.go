// internal/workers/feed/diversify-feed/handler_test.go
package diversifyfeed

import (
	"context"
	"testing"
	"time"

	"feed-ranking-workers/internal/common/errors"
	"feed-ranking-workers/internal/common/logger"
	"feed-ranking-workers/internal/common/validation"
	"feed-ranking-workers/internal/models"
	"feed-ranking-workers/internal/workers/feed/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 3 * time.Second
	return cfg
}

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func job(id string, score float64) models.ScoredItem {
	return models.ScoredItem{ID: id, Type: models.ItemTypeJob, Score: score, AuthorID: "company-" + id}
}

func post(id string, score float64, author string) models.ScoredItem {
	return models.ScoredItem{ID: id, Type: models.ItemTypePost, Score: score, AuthorID: author}
}

func ids(items []models.ScoredItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		expectedIDs   []string
		expectedSwaps int
	}{
		{
			name: "sorts and breaks a long job run",
			input: &Input{ScoredItems: []models.ScoredItem{
				job("j80", 80), post("p74", 74, "author-1"), job("j95", 95),
				job("j75", 75), job("j90", 90), job("j85", 85),
			}},
			expectedIDs:   []string{"j95", "j90", "j85", "p74", "j80", "j75"},
			expectedSwaps: 1,
		},
		{
			name: "per-job limit override alternates types",
			input: &Input{
				ScoredItems: []models.ScoredItem{
					job("j1", 90), job("j2", 80), post("p1", 70, "a"), post("p2", 60, "b"),
				},
				MaxConsecutiveSameType: 1,
			},
			expectedIDs:   []string{"j1", "p1", "j2", "p2"},
			expectedSwaps: 2,
		},
		{
			name: "nothing to repair",
			input: &Input{ScoredItems: []models.ScoredItem{
				job("j1", 90), post("p1", 80, "a"), job("j2", 50),
			}},
			expectedIDs:   []string{"j1", "p1", "j2"},
			expectedSwaps: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), newTestLogger(t))

			output, err := handler.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedIDs, ids(output.Feed.Items))
			assert.Equal(t, tt.expectedSwaps, output.Stats.Swaps)
			assert.Equal(t, len(tt.input.ScoredItems), output.Feed.Total)
			assert.NotEmpty(t, output.Feed.RankingID)
		})
	}
}

func TestHandler_Execute_Pagination(t *testing.T) {
	items := []models.ScoredItem{
		job("j1", 90), post("p1", 85, "a"), job("j2", 60), post("p2", 55, "b"), job("j3", 20),
	}

	tests := []struct {
		name             string
		page             int
		pageSize         int
		maxPageSize      int
		expectedCount    int
		expectedPageSize int
		expectedHasMore  bool
	}{
		{"first page", 1, 2, 100, 2, 2, true},
		{"last page", 3, 2, 100, 1, 2, false},
		{"beyond the end", 9, 2, 100, 0, 2, false},
		{"default page size", 0, 0, 100, 5, 20, false},
		{"clamped to max", 1, 50, 3, 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			cfg.MaxPageSize = tt.maxPageSize
			handler := NewHandler(cfg, newTestLogger(t))

			output, err := handler.Execute(context.Background(), &Input{
				ScoredItems: items,
				Page:        tt.page,
				PageSize:    tt.pageSize,
			})

			require.NoError(t, err)
			assert.Len(t, output.Feed.Items, tt.expectedCount)
			assert.Equal(t, tt.expectedPageSize, output.Feed.PageSize)
			assert.Equal(t, tt.expectedHasMore, output.Feed.HasMore)
			assert.Equal(t, 5, output.Feed.Total)
		})
	}
}

func TestHandler_Execute_PagesShareOneOrdering(t *testing.T) {
	handler := NewHandler(createTestConfig(), newTestLogger(t))
	items := []models.ScoredItem{
		job("j1", 95), job("j2", 94), job("j3", 93), job("j4", 92), post("p1", 91, "a"), job("j5", 90),
	}

	full, err := handler.Execute(context.Background(), &Input{ScoredItems: items, PageSize: 6})
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), &Input{ScoredItems: items, Page: 2, PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, ids(full.Feed.Items[3:]), ids(second.Feed.Items))
}

func TestHandler_Execute_EmptyInput(t *testing.T) {
	handler := NewHandler(createTestConfig(), newTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{ScoredItems: []models.ScoredItem{}})

	require.NoError(t, err)
	assert.Empty(t, output.Feed.Items)
	assert.NotNil(t, output.Feed.Items)
	assert.Zero(t, output.Feed.Total)
	assert.False(t, output.Feed.HasMore)
}

// ==========================
// Input Decoding Tests
// ==========================

func TestDecodeInput(t *testing.T) {
	schema := validation.MustForTask(TaskType)

	tests := []struct {
		name         string
		variables    string
		expectedCode errors.ErrorCode
	}{
		{"valid", `{"scoredItems":[{"id":"a","type":"job","score":40}],"page":2}`, ""},
		{"missing items", `{"page":1}`, errors.ErrCodeInputValidationFailed},
		{"score out of range", `{"scoredItems":[{"id":"a","type":"job","score":140}]}`, errors.ErrCodeInputValidationFailed},
		{"zero limit", `{"scoredItems":[],"maxConsecutiveSameType":0}`, errors.ErrCodeInputValidationFailed},
		{"page size too large", `{"scoredItems":[],"pageSize":101}`, errors.ErrCodeInputValidationFailed},
		{"truncated", `{"scoredItems":[`, errors.ErrCodeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input Input
			err := pipeline.Decode(schema, tt.variables, &input)

			if tt.expectedCode == "" {
				require.NoError(t, err)
				assert.Equal(t, 2, input.Page)
				return
			}
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedCode, stdErr.Code)
		})
	}
}
