package audit

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/cache"
)

// Run validates every settlement across the given number of workers and
// returns results in input order. Workers share the validator's read-only
// indexes; no locking is needed because nothing is written after Build.
func (v *Validator) Run(settlements []cache.Settlement, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	if workers > len(settlements) && len(settlements) > 0 {
		workers = len(settlements)
	}

	results := make([]Result, len(settlements))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = v.Validate(i, settlements[i])
			}
		}()
	}

	for i := range settlements {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	log.Debug().Int("settlements", len(settlements)).Int("workers", workers).Msg("validation pass complete")
	return results
}

// Summary aggregates a batch of results.
type Summary struct {
	RunID string

	Total   int
	WithObs int
	Skipped int
	Passed  int
	Failed  int

	AllConsistent bool

	MarginAbsDeltaSum float64
	MarginAbsDeltaMax float64

	SpotRecalcTotal  float64
	SpotPeriods      int
	SpotMissingHours int

	ObsMatched    int
	ObsMismatched int
	ObsMissing    int

	// PrimaryOverlaps counts settlements whose period start had more than one
	// primary product period active. Surfaced pending a data-quality answer.
	PrimaryOverlaps int

	IssueCounts map[IssueType]int
}

// Summarize folds per-settlement results into batch statistics.
func Summarize(runID string, results []Result) Summary {
	s := Summary{
		RunID:         runID,
		Total:         len(results),
		AllConsistent: true,
		IssueCounts:   make(map[IssueType]int),
	}

	for i := range results {
		r := &results[i]

		switch r.Status {
		case StatusSkipped:
			s.Skipped++
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		}
		if r.HasObs {
			s.WithObs++
		}
		if len(r.Consistency) > 0 {
			s.AllConsistent = false
		}
		if r.HasObs && r.MarginDelta != nil {
			d := abs(*r.MarginDelta)
			s.MarginAbsDeltaSum += d
			if d > s.MarginAbsDeltaMax {
				s.MarginAbsDeltaMax = d
			}
		}
		if r.HasObs && r.RecalcSpot != nil {
			s.SpotRecalcTotal += *r.RecalcSpot
			s.SpotPeriods++
			s.SpotMissingHours += r.SpotMissingHours
		}
		if r.HasObs {
			s.ObsMatched += r.ObsMatched
			s.ObsMismatched += r.ObsMismatched
			s.ObsMissing += r.ObsMissing
		}
		if r.PrimariesActive > 1 {
			s.PrimaryOverlaps++
		}
		for _, it := range r.Issues {
			s.IssueCounts[it]++
		}
	}
	return s
}
