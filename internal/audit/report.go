package audit

import (
	"fmt"
	"io"
	"sort"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/index"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

// statusIcon renders the per-settlement outcome marker.
func statusIcon(s Status) string {
	switch s {
	case StatusSkipped:
		return "⏭"
	case StatusPassed:
		return "✅"
	default:
		return "❌"
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// PrintResult writes the one-line status for a settlement, plus finding
// details when verbose.
func PrintResult(w io.Writer, r *Result, verbose bool) {
	marginStr := fmt.Sprintf("Margin=%7.2f", r.MarginRef)
	if r.MarginDelta != nil {
		marginStr += fmt.Sprintf("(Δ%+6.2f)", *r.MarginDelta)
	}

	spotStr := ""
	if r.RecalcSpot != nil {
		spotStr = fmt.Sprintf(" Spot=%7.1f", *r.RecalcSpot)
		if r.SpotMissingHours > 0 {
			spotStr += fmt.Sprintf("(!%dh)", r.SpotMissingHours)
		}
	}

	obsStr := ""
	if r.HasObs {
		total := r.ObsMatched + r.ObsMismatched + r.ObsMissing
		obsStr = fmt.Sprintf(" obs=%d/%d", r.ObsMatched, total)
		if r.ObsMismatched > 0 {
			obsStr += fmt.Sprintf("(‽%d)", r.ObsMismatched)
		}
	}

	issueStr := ""
	if len(r.Issues) > 0 {
		issueStr = "  ["
		for i, it := range r.Issues {
			if i > 0 {
				issueStr += ", "
			}
			issueStr += string(it)
		}
		issueStr += "]"
	}

	fmt.Fprintf(w, "%s [%2d] %s→%s  %6.1fkWh  DH=%8.2f  %s  (%-5s %-18s)%s%s%s\n",
		statusIcon(r.Status), r.Index,
		truncate(r.PeriodStart, 10), truncate(r.PeriodEnd, 10),
		r.TotalKwh, r.DistTotal, marginStr,
		truncate(r.PricingModel, 5), truncate(r.Product, 18),
		spotStr, obsStr, issueStr)

	if !verbose {
		return
	}
	for _, e := range r.Consistency {
		fmt.Fprintf(w, "      ⚠  %s\n", e)
	}
	for _, e := range r.ObsExamples {
		fmt.Fprintf(w, "      ⚠  obs %s\n", e)
	}
	for _, e := range r.AddonFindings {
		fmt.Fprintf(w, "      ⚠  %s\n", e)
	}
	for _, e := range r.SubFindings {
		fmt.Fprintf(w, "      ⚠  sub %s\n", e)
	}
}

// PrintSummary writes the batch summary block.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Run:                %s\n", s.RunID)
	fmt.Fprintf(w, "  Total settlements:  %d\n", s.Total)
	fmt.Fprintf(w, "  With observations:  %d\n", s.WithObs)
	fmt.Fprintf(w, "  Without (skipped):  %d\n", s.Skipped)
	if s.WithObs > 0 {
		fmt.Fprintf(w, "  Validated:          %d/%d\n", s.Passed, s.WithObs)
		if s.AllConsistent {
			fmt.Fprintf(w, "  Internal consistency: ALL OK\n")
		} else {
			fmt.Fprintf(w, "  Internal consistency: SOME FAILED\n")
		}
		fmt.Fprintf(w, "  Margin Σ|Δ|:        %.2f DKK (max=%.2f)\n", s.MarginAbsDeltaSum, s.MarginAbsDeltaMax)
		if s.SpotPeriods > 0 {
			fmt.Fprintf(w, "  Spot total (recalc): %.2f DKK across %d periods\n", s.SpotRecalcTotal, s.SpotPeriods)
			if s.SpotMissingHours > 0 {
				fmt.Fprintf(w, "  ⚠  Missing spot hours: %d\n", s.SpotMissingHours)
			}
		}
		fmt.Fprintf(w, "  Obs matching:       %d ok, %d mismatch, %d missing\n", s.ObsMatched, s.ObsMismatched, s.ObsMissing)
	}
	if s.PrimaryOverlaps > 0 {
		fmt.Fprintf(w, "  ⚠  Overlapping primary product periods: %d settlements\n", s.PrimaryOverlaps)
	}
	if len(s.IssueCounts) > 0 {
		fmt.Fprintf(w, "\n  Issue breakdown:\n")
		type kv struct {
			t IssueType
			n int
		}
		var items []kv
		for t, n := range s.IssueCounts {
			items = append(items, kv{t, n})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].n != items[j].n {
				return items[i].n > items[j].n
			}
			return items[i].t < items[j].t
		})
		for _, it := range items {
			fmt.Fprintf(w, "    %s: %d\n", it.t, it.n)
		}
	}
}

// DeepDump writes the per-hour rate/price/observation analysis for a single
// settlement, tariff line by tariff line.
func DeepDump(w io.Writer, i int, s cache.Settlement, idx *index.Set) {
	psKey := timeutil.Key(s.PeriodStart)
	peKey := timeutil.Key(s.PeriodEnd)
	periodObs := idx.ObservationsIn(psKey, peKey)

	fmt.Fprintf(w, "\n  === Deep analysis: settlement [%d] ===\n", i)
	for _, t := range s.TariffLines {
		kind := "TAR"
		if t.IsSubscription {
			kind = "SUB"
		}
		fmt.Fprintf(w, "\n  %s [%s]  amount=%.4f  kwh=%.1f  avg=%g\n",
			t.PartyChargeTypeID, kind, t.AmountDkk, t.EnergyKwh, t.AvgUnitPrice)
		if t.IsSubscription || len(t.HourlyDetail) == 0 {
			continue
		}

		rateCounts := make(map[float64]int)
		for _, h := range t.HourlyDetail {
			rateCounts[h.RateDkkPerKwh]++
		}
		rateKeys := make([]float64, 0, len(rateCounts))
		for r := range rateCounts {
			rateKeys = append(rateKeys, r)
		}
		sort.Float64s(rateKeys)
		fmt.Fprintf(w, "    Rates:")
		for _, r := range rateKeys {
			fmt.Fprintf(w, " %.6f×%d", r, rateCounts[r])
		}
		fmt.Fprintln(w)

		dumpHour := func(h cache.HourlyDetail) {
			key := timeutil.Key(h.Timestamp)
			obsStr, spotStr := "?", "?"
			if kwh, ok := periodObs[key]; ok {
				obsStr = fmt.Sprintf("%.3f", kwh)
			}
			if sp, ok := idx.SpotByHour[key]; ok {
				spotStr = fmt.Sprintf("%.6f", sp)
			}
			fmt.Fprintf(w, "    %s  kwh=%.3f  rate=%.6f  amount=%.6f  obs=%s  spot=%s\n",
				key, h.Kwh, h.RateDkkPerKwh, h.AmountDkk, obsStr, spotStr)
		}

		hd := t.HourlyDetail
		if len(hd) <= 6 {
			for _, h := range hd {
				dumpHour(h)
			}
			continue
		}
		for _, h := range hd[:3] {
			dumpHour(h)
		}
		fmt.Fprintf(w, "    ... (%d more hours)\n", len(hd)-6)
		for _, h := range hd[len(hd)-3:] {
			dumpHour(h)
		}
	}
}
