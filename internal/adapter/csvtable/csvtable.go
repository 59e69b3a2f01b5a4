// Package csvtable reads observation tables from CSV uploads and writes
// prediction tables back out.
package csvtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DateTimeLayout formats the identity column of written tables.
const DateTimeLayout = "2006-01-02 15:04:05"

var missingMarkers = []string{"", "NA", "NaN", "nan", "NaT", "null"}

type numericField struct {
	name  string
	field func(o *domain.Observation) *float64
}

var numericFields = []numericField{
	{domain.ColRainIn, func(o *domain.Observation) *float64 { return &o.RainIn }},
	{domain.ColAntecedentRainIn, func(o *domain.Observation) *float64 { return &o.AntecedentRainIn }},
	{domain.ColRainIntensityInHr, func(o *domain.Observation) *float64 { return &o.RainIntensityInHr }},
	{domain.ColPeakRunoff, func(o *domain.Observation) *float64 { return &o.PeakRunoff }},
	{domain.ColTimeToPeak, func(o *domain.Observation) *float64 { return &o.TimeToPeak }},
}

type labelField struct {
	name  string
	field func(o *domain.Observation) *string
}

var labelFields = []labelField{
	{domain.ColDateTime, func(o *domain.Observation) *string { return &o.DateTime }},
	{domain.ColSeason, func(o *domain.Observation) *string { return &o.Season }},
	{domain.ColAntecedentRainCondition, func(o *domain.Observation) *string { return &o.AntecedentRainCondition }},
}

// ReadTable loads a CSV with a header row. Columns are matched by name, so
// their order does not matter and extra columns are ignored. Every cell is
// read as text first; numeric columns are then parsed, with missing markers
// becoming NaN. A required column absent from the header is left missing in
// every row and reported later by the assembler.
func ReadTable(r io.Reader) (domain.Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingMarkers),
	)
	if df.Err != nil {
		return domain.Table{}, fmt.Errorf("%w: %w", domain.ErrMalformedTable, df.Err)
	}

	names := df.Names()
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	rows := make([]domain.Observation, df.Nrow())
	for i := range rows {
		rows[i] = domain.EmptyObservation()
	}

	for _, f := range labelFields {
		if !present[f.name] {
			continue
		}
		col := df.Col(f.name)
		records, nan := col.Records(), col.IsNaN()
		for i := range rows {
			if nan[i] {
				continue
			}
			*f.field(&rows[i]) = records[i]
		}
	}

	for _, f := range numericFields {
		if !present[f.name] {
			continue
		}
		col := df.Col(f.name)
		records, nan := col.Records(), col.IsNaN()
		for i := range rows {
			if nan[i] {
				continue
			}
			v, err := parseNumber(records[i])
			if err != nil {
				return domain.Table{}, fmt.Errorf("%w: row %d: column %s: %q is not a number",
					domain.ErrMalformedTable, i, f.name, records[i])
			}
			*f.field(&rows[i]) = v
		}
	}

	return domain.Table{Columns: names, Rows: rows}, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, m := range missingMarkers {
		if s == m {
			return math.NaN(), nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("infinite value")
	}
	return v, nil
}

// Header is the column order of written prediction tables.
func Header() []string {
	h := make([]string, 0, domain.NumFeatures+2)
	h = append(h, domain.ColDateTime)
	h = append(h, domain.FeatureColumns...)
	return append(h, domain.ColPrediction)
}

// WritePredictions writes one row per prediction: the normalized timestamp,
// the eight features in model order, then the predicted stage.
func WritePredictions(w io.Writer, predictions []domain.Prediction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, domain.NumFeatures+2)
	for i, p := range predictions {
		record[0] = ""
		if !p.Time.IsZero() {
			record[0] = p.Time.Format(DateTimeLayout)
		}
		for j, v := range p.Features.Values() {
			record[j+1] = formatFloat(v)
		}
		record[len(record)-1] = formatFloat(p.Stage)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
