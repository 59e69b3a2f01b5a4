package model

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadXGBoost_MissingFile(t *testing.T) {
	_, err := LoadXGBoost(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifactLoadFailure)
}

func TestLoadXGBoost_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood_model.bin")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a booster"), 0o600))

	_, err := LoadXGBoost(path)
	assert.ErrorIs(t, err, domain.ErrArtifactLoadFailure)
}

func TestLoad_Backends(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	t.Run("xgboost missing artifact", func(t *testing.T) {
		cfg := &config.Config{ModelBackend: config.BackendXGBoost, ModelPath: filepath.Join(t.TempDir(), "missing.bin")}
		_, err := Load(context.Background(), cfg, logger, metrics)
		assert.ErrorIs(t, err, domain.ErrArtifactLoadFailure)
	})

	t.Run("server unreachable", func(t *testing.T) {
		cfg := &config.Config{
			ModelBackend:   config.BackendServer,
			ModelServerURL: "http://127.0.0.1:1",
			ModelName:      testModelName,
			ModelTimeout:   100 * time.Millisecond,
		}
		_, err := Load(context.Background(), cfg, logger, metrics)
		assert.ErrorIs(t, err, domain.ErrArtifactLoadFailure)
	})

	t.Run("server retried until ready", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"flood_model","version":"3","features":8}`))
		}))
		defer srv.Close()

		cfg := &config.Config{
			ModelBackend:         config.BackendServer,
			ModelServerURL:       srv.URL,
			ModelName:            testModelName,
			ModelTimeout:         time.Second,
			ModelConnectAttempts: 3,
		}
		m, err := Load(context.Background(), cfg, logger, metrics)
		require.NoError(t, err)
		assert.IsType(t, &ServerModel{}, m)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("cache wraps backend", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"name":"flood_model","features":8}`))
		}))
		defer srv.Close()

		cfg := &config.Config{
			ModelBackend:   config.BackendServer,
			ModelServerURL: srv.URL,
			ModelName:      testModelName,
			ModelTimeout:   time.Second,
			ModelCacheSize: 10,
		}
		m, err := Load(context.Background(), cfg, logger, metrics)
		require.NoError(t, err)
		assert.IsType(t, &CachedModel{}, m)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(context.Background(), &config.Config{ModelBackend: "onnx"}, logger, metrics)
		assert.ErrorIs(t, err, domain.ErrArtifactLoadFailure)
	})
}
