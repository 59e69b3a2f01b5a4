package domain

import "errors"

// Failure taxonomy. Callers match with errors.Is; wrapped errors carry the row
// and column that caused them.
var (
	ErrInvalidTimestamp        = errors.New("invalid timestamp")
	ErrUnresolvedCategory      = errors.New("unresolved category")
	ErrIncompleteFeatureVector = errors.New("incomplete feature vector")
	ErrInferenceFailure        = errors.New("inference failure")
	ErrArtifactLoadFailure     = errors.New("model artifact load failure")
	ErrMalformedTable          = errors.New("malformed table")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidTimestamp, "invalid_timestamp"},
	{ErrUnresolvedCategory, "unresolved_category"},
	{ErrIncompleteFeatureVector, "incomplete_feature_vector"},
	{ErrInferenceFailure, "inference_failure"},
	{ErrArtifactLoadFailure, "artifact_load_failure"},
	{ErrMalformedTable, "malformed_table"},
}

// ErrorKind returns the stable taxonomy name for err, or "internal" when err
// does not wrap any of the domain sentinels.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
