// Package audit re-derives settlement monetary values from raw inputs and
// compares them against the recorded figures. It never computes or mutates
// settlements; it only grades them. Validation of one settlement is a pure
// function of the settlement and the shared read-only indexes, which is what
// makes the batch safely parallel.
package audit

import "fmt"

// Status is the terminal per-settlement outcome.
type Status int

const (
	// StatusSkipped means no observation coverage: tiers 2 and 3 cannot run
	// and the auditor refuses to claim pass or fail.
	StatusSkipped Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IssueType classifies a per-settlement finding. Findings are non-fatal,
// independently recorded, and co-occur freely.
type IssueType string

const (
	IssueConsistency  IssueType = "consistency"
	IssueObservation  IssueType = "obs"
	IssueMargin       IssueType = "margin"
	IssueAddon        IssueType = "addon"
	IssueSubscription IssueType = "subscription"
)

// ConsistencyError records a tier-1 violation with both values and the delta.
type ConsistencyError struct {
	ChargeID  string
	LineTotal float64
	HourlySum float64
	Delta     float64
}

func (e ConsistencyError) String() string {
	return fmt.Sprintf("%s: total=%.2f sum(hourly)=%.2f Δ=%.4f", e.ChargeID, e.LineTotal, e.HourlySum, e.Delta)
}

// Result is the full outcome for one settlement.
type Result struct {
	Index       int
	PeriodStart string // canonical key
	PeriodEnd   string
	TotalKwh    float64

	HasObs   bool
	ObsCount int

	// DistTotal and ProductTotal split the recorded tariff line amounts by
	// charge kind, for reporting only.
	DistTotal    float64
	ProductTotal float64

	Product          string // primary product name, "" when none attached
	PricingModel     string
	PrimariesActive  int // simultaneously active primaries at period start
	Addons           []string

	Consistency []ConsistencyError

	ObsMatched    int
	ObsMismatched int
	ObsMissing    int
	ObsExamples   []string // at most three mismatch examples

	RecalcSpot       *float64 // nil when spot recomputation did not apply
	SpotMissingHours int

	RecalcMargin *float64
	MarginRef    float64
	MarginDelta  *float64

	AddonFindings []string
	SubFindings   []string

	Status Status
	Issues []IssueType
}

// HasIssue reports whether the result carries a finding of the given type.
func (r *Result) HasIssue(t IssueType) bool {
	for _, it := range r.Issues {
		if it == t {
			return true
		}
	}
	return false
}
