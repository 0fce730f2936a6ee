package usecase

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// CoerceCount parses a count cell. Thousands separators are stripped and
// fractions truncated. An empty cell is nil and ok; an unparsable, non-finite
// or negative value is nil and not ok.
func CoerceCount(raw string) (*int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return nil, false
	}

	n := int64(f)
	return &n, true
}

// CoerceCountry trims the country cell. An empty result means the row is
// skipped.
func CoerceCountry(raw string) string {
	return strings.TrimSpace(raw)
}

// CoerceDate parses a date cell as a UTC calendar date. The default is used
// when the column is unmapped, the cell is empty or it does not parse; ok is
// false only in the last case.
func CoerceDate(raw string, mapped bool, def time.Time) (time.Time, bool) {
	if !mapped {
		return def, true
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return def, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), true
		}
	}

	// spreadsheets hand years over as floats, e.g. "2021.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f >= 1000 && f <= 9999 {
		return time.Date(int(f), time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	return def, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
