package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/google/uuid"
)

// ResultSink receives every successful submission. Sinks are best effort: a
// failing sink is logged and counted but never changes the caller's result.
type ResultSink interface {
	Name() string
	Store(ctx context.Context, batch domain.PredictionBatch) error
}

// Pipeline runs submissions from raw observations to predictions.
type Pipeline struct {
	model   domain.Model
	sinks   []ResultSink
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	newID   func() string
}

// New creates a Pipeline around a loaded model. The model is shared by all
// submissions and must be safe for concurrent use.
func New(model domain.Model, sinks []ResultSink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		model:   model,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		newID:   uuid.NewString,
	}
	if model != nil {
		p.ready.Store(true)
		metrics.ModelLoaded.Set(1)
	}
	return p
}

// CheckReadiness returns nil once a model is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("model artifact not loaded")
	}
	return nil
}

// PredictBatch runs the batch path: normalize, impute, encode, assemble,
// invoke, augment. Any failure rejects the whole table.
func (p *Pipeline) PredictBatch(ctx context.Context, table domain.Table) (domain.PredictionBatch, error) {
	id := p.newID()
	logger := p.logger.With("submission_id", id, "source", domain.SourceBatch)

	preds, err := p.predictBatch(ctx, table, logger)
	if err != nil {
		return domain.PredictionBatch{}, p.fail(logger, domain.SourceBatch, err)
	}
	return p.complete(ctx, logger, domain.NewPredictionBatch(id, domain.SourceBatch, preds)), nil
}

func (p *Pipeline) predictBatch(ctx context.Context, table domain.Table, logger *slog.Logger) ([]domain.Prediction, error) {
	p.metrics.BatchRows.Observe(float64(len(table.Rows)))

	readings, err := domain.NormalizeTable(table.Rows)
	if err != nil {
		return nil, err
	}

	readings, filled := domain.Impute(readings)
	if filled > 0 {
		p.metrics.CellsImputed.Add(float64(filled))
		logger.Debug("imputed missing cells", "cells", filled)
	}

	vectors := domain.EncodeTable(readings)
	matrix, err := domain.AssembleTable(table.Columns, vectors)
	if err != nil {
		return nil, err
	}

	scores, err := p.invoke(ctx, matrix)
	if err != nil {
		return nil, err
	}
	return domain.Augment(readings, vectors, scores)
}

// PredictOne runs the single-record path. There is no imputation: an empty
// timestamp means January and an unknown season is rejected.
func (p *Pipeline) PredictOne(ctx context.Context, obs domain.Observation) (domain.PredictionBatch, error) {
	id := p.newID()
	logger := p.logger.With("submission_id", id, "source", domain.SourceSingle)

	preds, err := p.predictOne(ctx, obs)
	if err != nil {
		return domain.PredictionBatch{}, p.fail(logger, domain.SourceSingle, err)
	}
	return p.complete(ctx, logger, domain.NewPredictionBatch(id, domain.SourceSingle, preds)), nil
}

func (p *Pipeline) predictOne(ctx context.Context, obs domain.Observation) ([]domain.Prediction, error) {
	reading, month, err := domain.NormalizeSingle(obs)
	if err != nil {
		return nil, err
	}
	vector, err := domain.EncodeStrict(reading, month)
	if err != nil {
		return nil, err
	}
	row, err := domain.AssembleRow(vector)
	if err != nil {
		return nil, err
	}

	scores, err := p.invoke(ctx, [][]float64{row})
	if err != nil {
		return nil, err
	}
	return domain.Augment([]domain.Reading{reading}, []domain.FeatureVector{vector}, scores)
}

// invoke calls the model once for the whole matrix and checks that it
// answered with one finite score per row.
func (p *Pipeline) invoke(ctx context.Context, rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	start := time.Now()
	scores, err := p.model.Predict(ctx, rows)
	p.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrInferenceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInferenceFailure, err)
	}
	if len(scores) != len(rows) {
		return nil, fmt.Errorf("%w: model returned %d scores for %d rows", domain.ErrInferenceFailure, len(scores), len(rows))
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: row %d: non-finite score", domain.ErrInferenceFailure, i)
		}
	}

	p.metrics.RowsPredicted.Add(float64(len(scores)))
	return scores, nil
}

func (p *Pipeline) fail(logger *slog.Logger, source string, err error) error {
	kind := domain.ErrorKind(err)
	p.metrics.Submissions.WithLabelValues(source, "error").Inc()
	p.metrics.SubmissionErrors.WithLabelValues(kind).Inc()
	if kind == "inference_failure" || kind == "internal" {
		logger.Error("submission failed", "error", err, "kind", kind)
	} else {
		logger.Info("submission rejected", "error", err, "kind", kind)
	}
	return err
}

func (p *Pipeline) complete(ctx context.Context, logger *slog.Logger, batch domain.PredictionBatch) domain.PredictionBatch {
	p.metrics.Submissions.WithLabelValues(batch.Source, "success").Inc()
	logger.Info("submission predicted", "rows", len(batch.Predictions))

	for _, sink := range p.sinks {
		if err := sink.Store(ctx, batch); err != nil {
			p.metrics.SinkWrites.WithLabelValues(sink.Name(), "error").Inc()
			logger.Warn("result sink failed", "sink", sink.Name(), "error", err)
			continue
		}
		p.metrics.SinkWrites.WithLabelValues(sink.Name(), "success").Inc()
	}
	return batch
}
