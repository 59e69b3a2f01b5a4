package domain

import (
	"fmt"
	"math"
)

// Season labels.
const (
	SeasonDormant = "Dormant Season"
	SeasonGrowing = "Growing Season"
)

// Antecedent moisture condition labels.
const (
	ConditionDry     = "AMC I (Dry)"
	ConditionAverage = "AMC II (Average)"
	ConditionWet     = "AMC III (Wet)"
)

// seasonCodes is the complete season table. Labels not listed are unresolved.
var seasonCodes = map[string]int{
	SeasonDormant: 1,
	SeasonGrowing: 0,
}

// conditionCodes lists the explicit condition codes. Every other label,
// ConditionWet included, takes defaultConditionCode.
var conditionCodes = map[string]int{
	ConditionDry:     0,
	ConditionAverage: 1,
}

const defaultConditionCode = 2

// SeasonCode looks up a season label. ok is false for unresolved labels.
func SeasonCode(label string) (code int, ok bool) {
	code, ok = seasonCodes[label]
	return code, ok
}

// ConditionCode looks up an antecedent condition label. It never fails.
func ConditionCode(label string) int {
	if code, ok := conditionCodes[label]; ok {
		return code
	}
	return defaultConditionCode
}

// EncodeSeason returns the season code as a feature value, NaN when unresolved.
func EncodeSeason(label string) float64 {
	code, ok := SeasonCode(label)
	if !ok {
		return math.NaN()
	}
	return float64(code)
}

// Encode builds the feature vector for a reading. Unresolved seasons and a
// missing month stay NaN for the assembler to reject.
func Encode(r Reading, month float64) FeatureVector {
	return FeatureVector{
		RainIn:                  r.RainIn,
		Season:                  EncodeSeason(r.Season),
		AntecedentRainIn:        r.AntecedentRainIn,
		AntecedentRainCondition: float64(ConditionCode(r.AntecedentRainCondition)),
		RainIntensityInHr:       r.RainIntensityInHr,
		PeakRunoff:              r.PeakRunoff,
		TimeToPeak:              r.TimeToPeak,
		Month:                   month,
	}
}

// EncodeTable encodes readings row by row, deriving month from each time.
func EncodeTable(readings []Reading) []FeatureVector {
	out := make([]FeatureVector, len(readings))
	for i, r := range readings {
		out[i] = Encode(r, r.Month())
	}
	return out
}

// EncodeStrict encodes a manually entered reading. The season must resolve;
// there is no imputation downstream to fill it.
func EncodeStrict(r Reading, month float64) (FeatureVector, error) {
	if _, ok := SeasonCode(r.Season); !ok {
		return FeatureVector{}, fmt.Errorf("%w: %s %q", ErrUnresolvedCategory, ColSeason, r.Season)
	}
	return Encode(r, month), nil
}
