package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapAdapter(zap.New(core)), logs
}

func TestZapWrapper_Levels(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	log.Debug("hidden", nil)
	log.Info("processing job", map[string]interface{}{"jobKey": int64(42)})
	log.Warn("slow ranking pass", map[string]interface{}{"durationMs": int64(700)})
	log.Error("job failed", nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "processing job", entries[0].Message)
	assert.Equal(t, int64(42), entries[0].ContextMap()["jobKey"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestZapWrapper_WithFields(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	scoped := log.WithFields(map[string]interface{}{"taskType": "rank-feed"})
	scoped.With(map[string]interface{}{"userId": "user-1"}).Info("feed ranked", nil)
	log.Info("unscoped", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "rank-feed", ctx["taskType"])
	assert.Equal(t, "user-1", ctx["userId"])
	assert.NotContains(t, entries[1].ContextMap(), "taskType")
}

func TestZapWrapper_ErrorFields(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.WithError(errors.New("boom")).Error("store failed", nil)
	log.Warn("cache miss", map[string]interface{}{"cacheError": errors.New("timeout")})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	assert.Equal(t, "timeout", entries[1].ContextMap()["cacheError"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew(t *testing.T) {
	assert.NotNil(t, New("info", "json"))
	assert.NotNil(t, New("debug", "console"))
	assert.NotNil(t, NewWithOutput("info", "json", "/nonexistent-dir/feed.log"))
	assert.NotNil(t, NewNoOpLogger())
	NewTestLogger(t).Info("test logger works", nil)
}
