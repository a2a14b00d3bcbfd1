package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"未知", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestSchedulerLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSchedulerLoggerFrom(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.AttemptComplete("run-1", 2, 14, 1, 93.5)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scheduler", line["component"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.EqualValues(t, 2, line["attempt"])
	assert.EqualValues(t, 14, line["entries"])
	assert.Equal(t, "排课尝试完成", line["message"])
}

func TestSchedulerLogger_StartGeneration(t *testing.T) {
	var buf bytes.Buffer
	l := NewSchedulerLoggerFrom(zerolog.New(&buf))

	l.StartGeneration("run-3", 4, 6, 3, map[string]interface{}{"total": 6, "hard": 5, "soft": 1})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 4, line["batches"])
	assert.EqualValues(t, 3, line["attempts"])
	constraints, ok := line["constraints"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 5, constraints["hard"])
	assert.EqualValues(t, 1, constraints["soft"])
}

func TestSchedulerLogger_GenerationFailed(t *testing.T) {
	var buf bytes.Buffer
	l := NewSchedulerLoggerFrom(zerolog.New(&buf))

	l.GenerationFailed("run-2", time.Second, 4)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.EqualValues(t, 4, line["violations"])
}

func TestContextWithRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-9")
	assert.Equal(t, "req-9", ctx.Value(RequestIDKey))
	assert.NotNil(t, WithContext(ctx))
}
