// Package domain turns hydrological observations into the feature vectors the
// flood-stage model was trained on, and attaches the model's predictions.
//
// # Data Source
//
// Observations come from two places: uploaded CSV tables of historical records
// and single records entered by hand. Both share the same columns:
//
//	DateTime                 free-form timestamp, day-first when ambiguous
//	Rain_in                  storm rainfall, inches
//	Season                   "Dormant Season" or "Growing Season"
//	AntecedentRain_in        rainfall over the preceding days, inches
//	AntecedentRainCondition  "AMC I (Dry)", "AMC II (Average)" or "AMC III (Wet)"
//	RainIntensity_in_hr      peak rain intensity, inches per hour
//	PeakRunoff               peak runoff
//	TimeToPeak               time from rainfall onset to runoff peak
//
// # Feature Order
//
// The model consumes a positional vector. Its order is fixed by [FeatureColumns]
// and must match training exactly; a reordered vector still produces a number,
// just the wrong one. [FeatureVector] keeps the fields named and only
// [FeatureVector.Values] flattens them, always through [FeatureColumns].
//
// # Encodings
//
//	Season:                  Dormant Season -> 1, Growing Season -> 0, anything else unresolved (NaN)
//	AntecedentRainCondition: AMC I (Dry) -> 0, AMC II (Average) -> 1, anything else -> 2
//
// The condition encoding has no unresolved case. "AMC III (Wet)", typos and
// blanks all land in bucket 2, which is how the model was trained.
//
// # Missing Values
//
// Numeric cells use NaN, label cells use "" and timestamps use the zero time.
// The batch path fills gaps per column by row position: forward from the last
// present value, then backward from the first one. Rows are never re-sorted by
// time before filling. The single-record path never fills anything.
//
// # Dates
//
// [ParseDateTime] tries year-first ISO layouts, then day-first numeric layouts,
// then named-month layouts. "03/04/2021" is 3 April. There are no month-first
// layouts. The only derived field is the month.
package domain
