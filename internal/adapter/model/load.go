package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialConnectBackoff = 200 * time.Millisecond
	maxConnectBackoff     = 5 * time.Second
)

// Load constructs the configured backend once, verifies it, and wraps it in
// the prediction cache when MODEL_CACHE_SIZE is positive. Any failure wraps
// domain.ErrArtifactLoadFailure.
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.Model, error) {
	var m domain.Model

	switch cfg.ModelBackend {
	case config.BackendXGBoost:
		x, err := LoadXGBoost(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		logger.Info("xgboost model loaded", "path", cfg.ModelPath, "trees", x.NTrees())
		m = x
	case config.BackendServer:
		s := NewServerModel(cfg.ModelServerURL, cfg.ModelName, cfg.ModelTimeout, logger)
		if err := waitForServer(ctx, s, cfg.ModelConnectAttempts, logger); err != nil {
			return nil, err
		}
		m = s
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrArtifactLoadFailure, cfg.ModelBackend)
	}

	if cfg.ModelCacheSize > 0 {
		logger.Info("prediction cache enabled", "cache_size", cfg.ModelCacheSize)
		m = NewCachedModel(m, cfg.ModelCacheSize, metrics)
	}
	return m, nil
}

// waitForServer probes the model server until it answers, backing off
// between attempts. The server commonly starts alongside this service.
func waitForServer(ctx context.Context, s *ServerModel, attempts int, logger *slog.Logger) error {
	attempts = max(attempts, 1)
	backoff := initialConnectBackoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.Check(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Warn("model server not ready, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("%w: %w", domain.ErrArtifactLoadFailure, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxConnectBackoff)
	}
	return err
}
