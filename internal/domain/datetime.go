package domain

import (
	"fmt"
	"strings"
	"time"
)

// dateTimeLayouts are tried in order: year-first, then day-first, then
// month-first. A month-first layout is only reached when no day-first one
// fits, so "03/04/2021" is 3 April while "04/13/2021" is 13 April.
// Single-digit layout elements also accept zero-padded input.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05.999999999Z07:00",
	"2006-1-2 15:04:05Z07:00",
	"2006-1-2 15:04:05.999999999",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"20060102",

	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 3:04:05 PM",
	"2/1/2006 3:04 PM",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2/1/06 15:04",
	"2/1/06",

	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"1-2-2006 15:04:05",
	"1-2-2006 15:04",
	"1-2-2006",

	"2 January 2006 15:04:05",
	"2 January 2006",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
	"January 2, 2006 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// ParseDateTime parses a timestamp in any supported layout, day-first when
// both readings are valid. Times without a zone are read as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q matches no supported format", ErrInvalidTimestamp, s)
}

// isMissingDateTime reports whether a timestamp cell is blank. Blank cells are
// gaps for the imputer, not parse failures.
func isMissingDateTime(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaT", "NaN", "nan", "NA":
		return true
	}
	return false
}

// NormalizeTable parses every row's timestamp independently. Blank cells stay
// missing; a non-blank cell that cannot be parsed fails the whole table.
func NormalizeTable(rows []Observation) ([]Reading, error) {
	readings := make([]Reading, len(rows))
	for i, obs := range rows {
		readings[i].Observation = obs
		if isMissingDateTime(obs.DateTime) {
			readings[i].DateTime = ""
			continue
		}
		t, err := ParseDateTime(obs.DateTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		readings[i].Time = t
	}
	return readings, nil
}

// NormalizeSingle parses a manually entered timestamp. An empty entry is not
// an error: it yields a zero time and month 1.
func NormalizeSingle(obs Observation) (Reading, float64, error) {
	r := Reading{Observation: obs}
	if strings.TrimSpace(obs.DateTime) == "" {
		r.DateTime = ""
		return r, float64(time.January), nil
	}
	t, err := ParseDateTime(obs.DateTime)
	if err != nil {
		return Reading{}, 0, err
	}
	r.Time = t
	return r, float64(t.Month()), nil
}
