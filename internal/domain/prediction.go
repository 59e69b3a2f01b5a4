package domain

import (
	"context"
	"fmt"
	"time"
)

// Model is the pre-trained stage model. Predict returns one score per input
// row and must not mutate shared state; it is called concurrently.
type Model interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}

// Prediction is one output row: the record's identity, its features and the
// predicted river stage in feet.
type Prediction struct {
	Time     time.Time     `json:"time,omitzero"`
	DateTime string        `json:"DateTime"`
	Features FeatureVector `json:"features"`
	Stage    float64       `json:"ChestnutCreek_ft"`
}

// Submission sources.
const (
	SourceBatch  = "batch"
	SourceSingle = "single"
)

// PredictionBatch is everything one submission produced.
type PredictionBatch struct {
	ID          string       `json:"submission_id"`
	Source      string       `json:"source"`
	PredictedAt time.Time    `json:"predicted_at"`
	Predictions []Prediction `json:"predictions"`
}

// Augment pairs each reading with its features and score. The three inputs
// are parallel slices in table order.
func Augment(readings []Reading, vectors []FeatureVector, scores []float64) ([]Prediction, error) {
	if len(readings) != len(vectors) || len(vectors) != len(scores) {
		return nil, fmt.Errorf("augment: %d readings, %d vectors, %d scores", len(readings), len(vectors), len(scores))
	}
	out := make([]Prediction, len(readings))
	for i := range readings {
		out[i] = Prediction{
			Time:     readings[i].Time,
			DateTime: readings[i].DateTime,
			Features: vectors[i],
			Stage:    scores[i],
		}
	}
	return out, nil
}

// NewPredictionBatch stamps a batch with the package clock.
func NewPredictionBatch(id, source string, predictions []Prediction) PredictionBatch {
	return PredictionBatch{
		ID:          id,
		Source:      source,
		PredictedAt: clock.Now().UTC(),
		Predictions: predictions,
	}
}

// RecordedPrediction is one prediction together with the submission it came
// from. It is the unit that sinks publish and history returns.
type RecordedPrediction struct {
	SubmissionID string    `json:"submission_id"`
	Row          int       `json:"row"`
	Source       string    `json:"source"`
	PredictedAt  time.Time `json:"predicted_at"`
	Prediction
}

// Records flattens the batch into one record per row.
func (b PredictionBatch) Records() []RecordedPrediction {
	out := make([]RecordedPrediction, len(b.Predictions))
	for i, p := range b.Predictions {
		out[i] = RecordedPrediction{
			SubmissionID: b.ID,
			Row:          i,
			Source:       b.Source,
			PredictedAt:  b.PredictedAt,
			Prediction:   p,
		}
	}
	return out
}
