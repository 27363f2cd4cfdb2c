package audit

import (
	"fmt"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/classify"
	"github.com/gridscope/settleaudit/internal/config"
	"github.com/gridscope/settleaudit/internal/index"
	"github.com/gridscope/settleaudit/internal/rates"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

const maxMismatchExamples = 3

// Validator grades settlements against the shared read-only indexes.
type Validator struct {
	idx    *index.Set
	addons map[string]bool
	tol    config.Tolerances
}

// New builds a validator. The index set must not be mutated afterwards.
func New(idx *index.Set, cfg config.Config) *Validator {
	return &Validator{idx: idx, addons: cfg.AddonSet(), tol: cfg.Tolerances}
}

// Validate grades one settlement. Pure: no shared state is written, so any
// number of Validate calls may run concurrently against the same Validator.
func (v *Validator) Validate(i int, s cache.Settlement) Result {
	psKey := timeutil.Key(s.PeriodStart)
	peKey := timeutil.Key(s.PeriodEnd)

	periodObs := v.idx.ObservationsIn(psKey, peKey)

	r := Result{
		Index:       i,
		PeriodStart: psKey,
		PeriodEnd:   peKey,
		TotalKwh:    s.TotalEnergyKwh,
		HasObs:      len(periodObs) > 0,
		ObsCount:    len(periodObs),
		MarginRef:   s.MarginAmountDkk,
	}

	for _, line := range s.TariffLines {
		if line.IsProductCharge() {
			r.ProductTotal += line.AmountDkk
		} else {
			r.DistTotal += line.AmountDkk
		}
	}

	r.Product, r.PrimariesActive = classify.PrimaryAt(v.idx.Periods, v.addons, psKey)
	if p, ok := v.idx.ProductByName[r.Product]; ok {
		r.PricingModel = p.PricingModel
	} else {
		r.PricingModel = "Unknown"
	}
	r.Addons = classify.AddonsAt(v.idx.Periods, v.addons, psKey)

	v.checkConsistency(&r, s)
	if r.HasObs {
		v.matchObservations(&r, s, periodObs)
	}
	v.recompute(&r, s, periodObs)

	r.Issues = v.classifyIssues(&r)
	switch {
	case !r.HasObs:
		// Zero coverage: no pass/fail claim, ever.
		r.Status = StatusSkipped
	case len(r.Issues) == 0:
		r.Status = StatusPassed
	default:
		r.Status = StatusFailed
	}
	return r
}

// checkConsistency is tier 1: each tariff line with hourly detail must sum to
// its own total within tolerance. Checking continues past violations.
func (v *Validator) checkConsistency(r *Result, s cache.Settlement) {
	for _, line := range s.TariffLines {
		if len(line.HourlyDetail) == 0 {
			continue
		}
		sum := 0.0
		for _, h := range line.HourlyDetail {
			sum += h.AmountDkk
		}
		diff := abs(line.AmountDkk - sum)
		if diff > v.tol.Consistency {
			r.Consistency = append(r.Consistency, ConsistencyError{
				ChargeID:  line.PartyChargeTypeID,
				LineTotal: line.AmountDkk,
				HourlySum: sum,
				Delta:     diff,
			})
		}
	}
}

// matchObservations is tier 2: cross-check hourly energy against the metered
// observations. Hourly energy is shared across tariff lines, so the first
// non-subscription line with detail suffices.
func (v *Validator) matchObservations(r *Result, s cache.Settlement, periodObs map[string]float64) {
	for _, line := range s.TariffLines {
		if line.IsSubscription || len(line.HourlyDetail) == 0 {
			continue
		}
		for _, h := range line.HourlyDetail {
			key := timeutil.Key(h.Timestamp)
			obs, ok := periodObs[key]
			if !ok {
				r.ObsMissing++
				continue
			}
			if abs(h.Kwh-obs) < v.tol.Observation {
				r.ObsMatched++
			} else {
				r.ObsMismatched++
				if len(r.ObsExamples) < maxMismatchExamples {
					r.ObsExamples = append(r.ObsExamples,
						fmt.Sprintf("%s: detail=%.3f obs=%.3f", key, h.Kwh, obs))
				}
			}
		}
		return
	}
}

// recompute is tier 3: independent spot, margin, addon, and subscription
// figures from raw inputs only, never from the settlement's own stored
// intermediates.
func (v *Validator) recompute(r *Result, s cache.Settlement, periodObs map[string]float64) {
	obsTotal := 0.0
	for _, kwh := range periodObs {
		obsTotal += kwh
	}

	// Energy base for rate multiplications: observed energy, or the
	// settlement's own recorded total when coverage is absent. The fallback
	// is weaker on purpose; skipped settlements still get informational
	// figures.
	energy := obsTotal
	if !r.HasObs {
		energy = s.TotalEnergyKwh
	}

	// Spot cost applies only with coverage and a spot-plus-margin product.
	if r.HasObs && r.PricingModel == cache.PricingModelSpot {
		total := 0.0
		missing := 0
		for key, kwh := range periodObs {
			price, ok := v.idx.SpotByHour[key]
			if !ok {
				// A missing market hour is reported, not priced at zero.
				missing++
				continue
			}
			total += kwh * price
		}
		r.RecalcSpot = &total
		r.SpotMissingHours = missing
	}

	if r.Product != "" {
		rate := rates.Resolve(v.idx.RatesByProduct[r.Product], r.PeriodStart)
		margin := energy * rate
		r.RecalcMargin = &margin
		delta := margin - s.MarginAmountDkk
		r.MarginDelta = &delta
	}

	for _, name := range r.Addons {
		rate := rates.Resolve(v.idx.RatesByProduct[name], r.PeriodStart)
		line, ok := findTariffLine(s, cache.ProductChargePrefix+name)
		if !ok {
			continue
		}
		calc := energy * rate
		delta := calc - line.AmountDkk
		if abs(delta) > v.tol.Addon {
			r.AddonFindings = append(r.AddonFindings,
				fmt.Sprintf("%s: calc=%.2f ref=%.2f Δ=%+.2f", name, calc, line.AmountDkk, delta))
		}
	}

	v.checkSubscriptions(r, s)
}

// checkSubscriptions verifies distribution subscription lines against the
// charge's monthly amount. The stored amount may be the flat monthly figure
// or prorated by days/30; accept either within the relative tolerance.
func (v *Validator) checkSubscriptions(r *Result, s cache.Settlement) {
	ps, errStart := timeutil.Parse(s.PeriodStart)
	pe, errEnd := timeutil.Parse(s.PeriodEnd)
	if errStart != nil || errEnd != nil {
		return
	}
	days := timeutil.DaysBetween(ps, pe)

	for _, line := range s.TariffLines {
		if !line.IsSubscription || line.IsProductCharge() {
			continue
		}
		monthly := rates.ResolveSubscription(v.idx.SubByCharge[line.PartyChargeTypeID], r.PeriodStart)
		if monthly <= 0 || abs(line.AmountDkk) <= 0.01 {
			continue
		}
		ratio := line.AmountDkk / monthly
		if abs(ratio-1.0) > v.tol.SubscriptionRatio && abs(ratio-days/30.0) > v.tol.SubscriptionRatio {
			r.SubFindings = append(r.SubFindings,
				fmt.Sprintf("%s: amount=%.2f monthly=%.2f days=%.0f", line.PartyChargeTypeID, line.AmountDkk, monthly, days))
		}
	}
}

func (v *Validator) classifyIssues(r *Result) []IssueType {
	var issues []IssueType
	if len(r.Consistency) > 0 {
		issues = append(issues, IssueConsistency)
	}
	if r.ObsMismatched > v.tol.MaxObsMismatches {
		issues = append(issues, IssueObservation)
	}
	if r.MarginDelta != nil && abs(*r.MarginDelta) > v.tol.Margin {
		issues = append(issues, IssueMargin)
	}
	if len(r.AddonFindings) > 0 {
		issues = append(issues, IssueAddon)
	}
	if len(r.SubFindings) > 0 {
		issues = append(issues, IssueSubscription)
	}
	return issues
}

func findTariffLine(s cache.Settlement, chargeID string) (cache.TariffLine, bool) {
	for _, line := range s.TariffLines {
		if line.PartyChargeTypeID == chargeID {
			return line, true
		}
	}
	return cache.TariffLine{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
