// Package rates resolves time-varying product rates and subscription amounts
// at a reference instant. All instants are canonical lookup keys from the
// timeutil package, which compare lexicographically in chronological order.
package rates

import (
	"sort"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

// Kind tags the two schedule entry conventions.
type Kind int

const (
	// Ranged entries apply over [Start, End): inclusive start, exclusive end.
	Ranged Kind = iota
	// OpenEnded entries are step-function rates that apply for reference
	// instants strictly greater than Start. The asymmetry is deliberate: in
	// the source system a rate "starting" on a quarter boundary governs the
	// periods after that boundary, not the boundary period itself.
	OpenEnded
)

// Entry is one rate schedule entry with canonicalized instants.
type Entry struct {
	Kind  Kind
	Start string
	End   string // set only for Ranged
	Rate  float64
}

// AppliesAt reports whether the entry governs the reference instant.
func (e Entry) AppliesAt(ref string) bool {
	if e.Kind == Ranged {
		return e.Start <= ref && ref < e.End
	}
	return e.Start < ref
}

// FromProduct converts a product's raw rate schedule into tagged entries.
func FromProduct(p cache.Product) []Entry {
	entries := make([]Entry, 0, len(p.Rates))
	for _, r := range p.Rates {
		e := Entry{Start: timeutil.Key(r.StartDate), Rate: r.RateDkkPerKwh}
		if r.EndDate != "" {
			e.Kind = Ranged
			e.End = timeutil.Key(r.EndDate)
		} else {
			e.Kind = OpenEnded
		}
		entries = append(entries, e)
	}
	return entries
}

// Resolve returns the rate governing the reference instant: entries are
// scanned in ascending start order and every applicable entry overwrites the
// answer, so a later-starting applicable entry wins. Input order does not
// matter. No applicable entry resolves to zero.
func Resolve(entries []Entry, ref string) float64 {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	rate := 0.0
	for _, e := range sorted {
		if e.AppliesAt(ref) {
			rate = e.Rate
		}
	}
	return rate
}

// SchedulePoint is one (effective instant, monthly amount) pair of a
// subscription schedule, instant canonicalized.
type SchedulePoint struct {
	At      string
	Monthly float64
}

// FromChargePrice converts a raw charge price schedule, sorted by instant.
func FromChargePrice(cp cache.ChargePrice) []SchedulePoint {
	points := make([]SchedulePoint, 0, len(cp.Points))
	for _, pt := range cp.Points {
		points = append(points, SchedulePoint{At: timeutil.Key(pt.Timestamp), Monthly: pt.Price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].At < points[j].At })
	return points
}

// ResolveSubscription returns the monthly amount effective at the reference
// instant: the last point whose instant is <= ref. Points must be in
// ascending instant order, as FromChargePrice produces them. Points after ref
// never contribute. No qualifying point resolves to zero.
func ResolveSubscription(points []SchedulePoint, ref string) float64 {
	amount := 0.0
	for _, pt := range points {
		if pt.At > ref {
			break
		}
		amount = pt.Monthly
	}
	return amount
}
