package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"feed-ranking-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		GatewayAddress: "localhost:26500",
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	}}
}

// ==========================
// Retry
// ==========================

func TestClient_Retry(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantCode  errors.ErrorCode
	}{
		{
			name:      "succeeds first time",
			wantCalls: 1,
		},
		{
			name:      "transient failure then success",
			failures:  []error{fmt.Errorf("rpc error: code = Unavailable")},
			wantCalls: 2,
		},
		{
			name: "gives up after max retries",
			failures: []error{
				fmt.Errorf("connection refused"),
				fmt.Errorf("connection refused"),
				fmt.Errorf("connection refused"),
			},
			wantCalls: 3,
			wantCode:  errors.ErrCodeExternalServiceError,
		},
		{
			name:      "job gone is not retried",
			failures:  []error{fmt.Errorf("rpc error: code = NotFound desc = job not found")},
			wantCalls: 1,
			wantCode:  errors.ErrCodeResourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(2)
			calls := 0
			err := c.Retry(context.Background(), "complete job", func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestClient_Retry_ContextCancelled(t *testing.T) {
	c := newTestClient(5)
	c.config.RetryConfig.BaseDelay = time.Second
	c.config.RetryConfig.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Retry(ctx, "complete job", func(context.Context) error {
		return fmt.Errorf("connection reset by peer")
	})

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
}

// ==========================
// Error mapping
// ==========================

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"context deadline exceeded", errors.ErrCodeTimeout},
		{"job not found", errors.ErrCodeResourceNotFound},
		{"resource already exists", errors.ErrCodeBusinessRuleViolation},
		{"permission denied", errors.ErrCodeAuthenticationRejected},
		{"something broke", errors.ErrCodeExternalServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(fmt.Errorf("%s", tt.msg), "complete job", 0)
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, stdErr.Code)
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("dial tcp: connection refused")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("rpc error: code = Unavailable")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("job not found")))
}
