package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "json"})

	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.Same(t, logger, slog.Default())
}

func TestNewLogger_Debug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RowsPredicted.Add(3)
	a.Submissions.WithLabelValues("batch", "success").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(a.RowsPredicted), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RowsPredicted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.Submissions.WithLabelValues("batch", "success")), 0)
}
