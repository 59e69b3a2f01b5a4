package domain

import (
	"fmt"
	"math"
)

// FeatureVector holds the eight model inputs by name.
type FeatureVector struct {
	RainIn                  float64 `json:"Rain_in"`
	Season                  float64 `json:"Season"`
	AntecedentRainIn        float64 `json:"AntecedentRain_in"`
	AntecedentRainCondition float64 `json:"AntecedentRainCondition"`
	RainIntensityInHr       float64 `json:"RainIntensity_in_hr"`
	PeakRunoff              float64 `json:"PeakRunoff"`
	TimeToPeak              float64 `json:"TimeToPeak"`
	Month                   float64 `json:"month"`
}

// featureFields is the training order. It is the only place the order is
// written down; FeatureColumns, Values and FeatureVectorFromValues all read it.
var featureFields = [...]struct {
	name  string
	field func(v *FeatureVector) *float64
}{
	{ColRainIn, func(v *FeatureVector) *float64 { return &v.RainIn }},
	{ColSeason, func(v *FeatureVector) *float64 { return &v.Season }},
	{ColAntecedentRainIn, func(v *FeatureVector) *float64 { return &v.AntecedentRainIn }},
	{ColAntecedentRainCondition, func(v *FeatureVector) *float64 { return &v.AntecedentRainCondition }},
	{ColRainIntensityInHr, func(v *FeatureVector) *float64 { return &v.RainIntensityInHr }},
	{ColPeakRunoff, func(v *FeatureVector) *float64 { return &v.PeakRunoff }},
	{ColTimeToPeak, func(v *FeatureVector) *float64 { return &v.TimeToPeak }},
	{ColMonth, func(v *FeatureVector) *float64 { return &v.Month }},
}

// NumFeatures is the length of every assembled vector.
const NumFeatures = len(featureFields)

// FeatureColumns is the canonical column order shared by training and inference.
var FeatureColumns = func() []string {
	cols := make([]string, NumFeatures)
	for i, f := range featureFields {
		cols[i] = f.name
	}
	return cols
}()

// Values flattens the vector in FeatureColumns order.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, NumFeatures)
	for i, f := range featureFields {
		out[i] = *f.field(&v)
	}
	return out
}

// FeatureVectorFromValues is the inverse of Values.
func FeatureVectorFromValues(values []float64) (FeatureVector, error) {
	var v FeatureVector
	if len(values) != NumFeatures {
		return v, fmt.Errorf("%w: got %d values, want %d", ErrIncompleteFeatureVector, len(values), NumFeatures)
	}
	for i, f := range featureFields {
		*f.field(&v) = values[i]
	}
	return v, nil
}

// AssembleRow validates one vector and flattens it. A NaN in any position,
// whether a gap the imputer could not fill or an unresolved season, fails.
func AssembleRow(v FeatureVector) ([]float64, error) {
	values := v.Values()
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: column %s has no value", ErrIncompleteFeatureVector, FeatureColumns[i])
		}
	}
	return values, nil
}

// AssembleTable checks that the source header carried every required column
// and flattens each row into the model's input matrix, preserving row order.
func AssembleTable(columns []string, vectors []FeatureVector) ([][]float64, error) {
	header := Table{Columns: columns}
	for _, c := range SourceColumns {
		if !header.HasColumn(c) {
			return nil, fmt.Errorf("%w: required column %s not present", ErrIncompleteFeatureVector, c)
		}
	}

	matrix := make([][]float64, len(vectors))
	for i, v := range vectors {
		row, err := AssembleRow(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		matrix[i] = row
	}
	return matrix, nil
}
