package domain

import "math"

// imputeColumn describes one column for the imputer: how to tell a gap and
// how to copy the column's value from one row to another.
type imputeColumn struct {
	name    string
	missing func(r *Reading) bool
	copy    func(dst, src *Reading)
}

func numericColumn(name string, field func(r *Reading) *float64) imputeColumn {
	return imputeColumn{
		name:    name,
		missing: func(r *Reading) bool { return math.IsNaN(*field(r)) },
		copy:    func(dst, src *Reading) { *field(dst) = *field(src) },
	}
}

func labelColumn(name string, field func(r *Reading) *string) imputeColumn {
	return imputeColumn{
		name:    name,
		missing: func(r *Reading) bool { return *field(r) == "" },
		copy:    func(dst, src *Reading) { *field(dst) = *field(src) },
	}
}

var imputeColumns = []imputeColumn{
	{
		name:    ColDateTime,
		missing: func(r *Reading) bool { return r.Time.IsZero() },
		copy: func(dst, src *Reading) {
			dst.Time = src.Time
			dst.DateTime = src.DateTime
		},
	},
	numericColumn(ColRainIn, func(r *Reading) *float64 { return &r.RainIn }),
	labelColumn(ColSeason, func(r *Reading) *string { return &r.Season }),
	numericColumn(ColAntecedentRainIn, func(r *Reading) *float64 { return &r.AntecedentRainIn }),
	labelColumn(ColAntecedentRainCondition, func(r *Reading) *string { return &r.AntecedentRainCondition }),
	numericColumn(ColRainIntensityInHr, func(r *Reading) *float64 { return &r.RainIntensityInHr }),
	numericColumn(ColPeakRunoff, func(r *Reading) *float64 { return &r.PeakRunoff }),
	numericColumn(ColTimeToPeak, func(r *Reading) *float64 { return &r.TimeToPeak }),
}

// Impute fills gaps column by column in row order: each gap takes the nearest
// present value above it, and leading gaps take the first present value. A
// column with no present value is left untouched. The input is not modified.
// It returns the filled rows and the number of cells filled.
func Impute(readings []Reading) ([]Reading, int) {
	out := make([]Reading, len(readings))
	copy(out, readings)

	filled := 0
	for _, col := range imputeColumns {
		filled += fillColumn(out, col)
	}
	return out, filled
}

func fillColumn(rows []Reading, col imputeColumn) int {
	filled := 0
	first := -1
	last := -1
	for i := range rows {
		if !col.missing(&rows[i]) {
			if first == -1 {
				first = i
			}
			last = i
			continue
		}
		if last != -1 {
			col.copy(&rows[i], &rows[last])
			filled++
		}
	}
	if first == -1 {
		return filled
	}
	for i := 0; i < first; i++ {
		col.copy(&rows[i], &rows[first])
		filled++
	}
	return filled
}
