package model

import (
	"context"
	"fmt"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/dmitryikh/leaves"
)

// XGBoostModel evaluates a saved XGBoost model in process. The ensemble is
// read-only after loading and safe for concurrent use.
type XGBoostModel struct {
	ensemble *leaves.Ensemble
	path     string
}

// LoadXGBoost reads an XGBoost binary model file. The raw margin is returned
// as the score, which for a squared-error regressor is the stage itself.
func LoadXGBoost(path string) (*XGBoostModel, error) {
	ensemble, err := leaves.XGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrArtifactLoadFailure, path, err)
	}
	if n := ensemble.NFeatures(); n > domain.NumFeatures {
		return nil, fmt.Errorf("%w: %s expects %d features, have %d",
			domain.ErrArtifactLoadFailure, path, n, domain.NumFeatures)
	}
	if g := ensemble.NOutputGroups(); g != 1 {
		return nil, fmt.Errorf("%w: %s has %d output groups, want a regressor",
			domain.ErrArtifactLoadFailure, path, g)
	}
	return &XGBoostModel{ensemble: ensemble, path: path}, nil
}

// Predict scores the rows as one dense matrix.
func (m *XGBoostModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vals := make([]float64, 0, len(rows)*domain.NumFeatures)
	for i, row := range rows {
		if len(row) != domain.NumFeatures {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), domain.NumFeatures)
		}
		vals = append(vals, row...)
	}

	predictions := make([]float64, len(rows))
	if err := m.ensemble.PredictDense(vals, len(rows), domain.NumFeatures, predictions, 0, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInferenceFailure, err)
	}
	return predictions, nil
}

// NTrees reports the number of trees loaded, for startup logging.
func (m *XGBoostModel) NTrees() int { return m.ensemble.NEstimators() }
