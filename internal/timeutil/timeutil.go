// Package timeutil canonicalizes the timestamp strings that appear in the
// migration and spot-price caches. Producers emit ISO-8601 in either 'Z' or
// explicit-offset form; every lookup and ordering in the auditor goes through
// Key so that two spellings of the same UTC instant collide.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the canonical lookup-key layout: UTC, second precision, no zone
// designator. Keys compare lexicographically in chronological order.
const KeyLayout = "2006-01-02T15:04:05"

// parseLayouts are tried in order. Zone-less forms are taken as UTC, matching
// how the extraction tool wrote the caches.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse converts a cache timestamp to a UTC instant. Callers that load input
// documents treat an error here as fatal for the run.
func Parse(ts string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", ts)
}

// Key returns the canonical lookup key for a timestamp. Inputs that already
// look like keys pass through with any UTC designator stripped, so keys are
// stable under repeated normalization.
func Key(ts string) string {
	if t, err := Parse(ts); err == nil {
		return t.Format(KeyLayout)
	}
	s := strings.TrimSuffix(ts, "Z")
	return strings.TrimSuffix(s, "+00:00")
}

// DaysBetween returns the length of [start, end) in days, fractional.
func DaysBetween(start, end time.Time) float64 {
	return end.Sub(start).Seconds() / 86400.0
}
