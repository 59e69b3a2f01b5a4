package domain

import (
	"math"
	"time"
)

// MonthOf returns the month-of-year feature for t, or NaN for the zero time.
func MonthOf(t time.Time) float64 {
	if t.IsZero() {
		return math.NaN()
	}
	return float64(t.Month())
}

// Source column names, as they appear in upload headers and the manual form.
const (
	ColDateTime                = "DateTime"
	ColRainIn                  = "Rain_in"
	ColSeason                  = "Season"
	ColAntecedentRainIn        = "AntecedentRain_in"
	ColAntecedentRainCondition = "AntecedentRainCondition"
	ColRainIntensityInHr       = "RainIntensity_in_hr"
	ColPeakRunoff              = "PeakRunoff"
	ColTimeToPeak              = "TimeToPeak"
	ColMonth                   = "month"

	// ColPrediction names the appended model output.
	ColPrediction = "ChestnutCreek_ft"
)

// SourceColumns lists every column a batch table must carry.
var SourceColumns = []string{
	ColDateTime,
	ColRainIn,
	ColSeason,
	ColAntecedentRainIn,
	ColAntecedentRainCondition,
	ColRainIntensityInHr,
	ColPeakRunoff,
	ColTimeToPeak,
}

// Observation is one raw record. Numeric fields hold NaN when the cell was
// empty; label fields hold "".
type Observation struct {
	DateTime                string
	RainIn                  float64
	Season                  string
	AntecedentRainIn        float64
	AntecedentRainCondition string
	RainIntensityInHr       float64
	PeakRunoff              float64
	TimeToPeak              float64
}

// EmptyObservation returns an observation with every cell missing.
func EmptyObservation() Observation {
	nan := math.NaN()
	return Observation{
		RainIn:            nan,
		AntecedentRainIn:  nan,
		RainIntensityInHr: nan,
		PeakRunoff:        nan,
		TimeToPeak:        nan,
	}
}

// Table is an ordered set of observations plus the header it was read with.
// Row order is the source file's order and is never changed.
type Table struct {
	Columns []string
	Rows    []Observation
}

// HasColumn reports whether the source header carried name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Reading is an observation whose timestamp has been parsed. Time is zero
// when the timestamp was missing.
type Reading struct {
	Observation
	Time time.Time
}

// Month returns the month-of-year feature, or NaN when the time is missing.
func (r Reading) Month() float64 {
	return MonthOf(r.Time)
}
