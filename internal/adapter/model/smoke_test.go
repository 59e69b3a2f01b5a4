//go:build modelserver

package model

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit a running model server and require MODEL_SERVER_URL.
// Run with: go test -tags=modelserver ./internal/adapter/model/ -v -count=1

func smokeModel(t *testing.T) *ServerModel {
	t.Helper()
	url := os.Getenv("MODEL_SERVER_URL")
	if url == "" {
		t.Fatal("MODEL_SERVER_URL must be set to run smoke tests")
	}
	name := os.Getenv("MODEL_NAME")
	if name == "" {
		name = "flood_model"
	}
	return NewServerModel(url, name, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Check(t *testing.T) {
	require.NoError(t, smokeModel(t).Check(context.Background()))
}

func TestSmoke_Predict(t *testing.T) {
	m := smokeModel(t)

	rows := [][]float64{
		{1.75, 1, 0.62, 2, 0.41, 310.5, 7.25, 4},
		{0.05, 0, 0.10, 0, 0.02, 12.0, 1.50, 8},
	}
	scores, err := m.Predict(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, scores, len(rows))
	for _, s := range scores {
		assert.Greater(t, s, 0.0, "stage should be positive")
	}
}

func TestSmoke_CachedModel(t *testing.T) {
	cached := NewCachedModel(smokeModel(t), 10, observability.NewMetricsForTesting())
	row := make([]float64, domain.NumFeatures)
	row[7] = 1

	s1, err := cached.Predict(context.Background(), [][]float64{row})
	require.NoError(t, err)
	s2, err := cached.Predict(context.Background(), [][]float64{row})
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
