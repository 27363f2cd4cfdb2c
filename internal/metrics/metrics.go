// Package metrics exposes audit outcome counters for the read-only serve
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridscope/settleaudit/internal/audit"
)

// Registry holds the prometheus collectors for one audit process.
type Registry struct {
	SettlementsAudited *prometheus.CounterVec
	IssuesFound        *prometheus.CounterVec
	ObsComparisons     *prometheus.CounterVec

	MarginAbsDeltaSum prometheus.Gauge
	SpotRecalcTotal   prometheus.Gauge
	SpotMissingHours  prometheus.Gauge
	PrimaryOverlaps   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		SettlementsAudited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settleaudit_settlements_total",
				Help: "Settlements audited by terminal status",
			},
			[]string{"status"},
		),
		IssuesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settleaudit_issues_total",
				Help: "Per-settlement findings by issue type",
			},
			[]string{"type"},
		),
		ObsComparisons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settleaudit_observation_comparisons_total",
				Help: "Hourly observation comparisons by outcome",
			},
			[]string{"outcome"},
		),
		MarginAbsDeltaSum: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settleaudit_margin_abs_delta_dkk",
			Help: "Sum of absolute margin deltas across the last batch, DKK",
		}),
		SpotRecalcTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settleaudit_spot_recalc_total_dkk",
			Help: "Recomputed spot cost across the last batch, DKK",
		}),
		SpotMissingHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settleaudit_spot_missing_hours",
			Help: "Hours lacking a market price during the last batch",
		}),
		PrimaryOverlaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settleaudit_primary_overlap_settlements",
			Help: "Settlements with more than one active primary product period",
		}),
	}

	reg.MustRegister(
		m.SettlementsAudited, m.IssuesFound, m.ObsComparisons,
		m.MarginAbsDeltaSum, m.SpotRecalcTotal, m.SpotMissingHours, m.PrimaryOverlaps,
	)
	return m
}

// ObserveSummary records a completed batch.
func (m *Registry) ObserveSummary(s audit.Summary) {
	m.SettlementsAudited.WithLabelValues("skipped").Add(float64(s.Skipped))
	m.SettlementsAudited.WithLabelValues("passed").Add(float64(s.Passed))
	m.SettlementsAudited.WithLabelValues("failed").Add(float64(s.Failed))

	for t, n := range s.IssueCounts {
		m.IssuesFound.WithLabelValues(string(t)).Add(float64(n))
	}

	m.ObsComparisons.WithLabelValues("matched").Add(float64(s.ObsMatched))
	m.ObsComparisons.WithLabelValues("mismatched").Add(float64(s.ObsMismatched))
	m.ObsComparisons.WithLabelValues("missing").Add(float64(s.ObsMissing))

	m.MarginAbsDeltaSum.Set(s.MarginAbsDeltaSum)
	m.SpotRecalcTotal.Set(s.SpotRecalcTotal)
	m.SpotMissingHours.Set(float64(s.SpotMissingHours))
	m.PrimaryOverlaps.Set(float64(s.PrimaryOverlaps))
}
