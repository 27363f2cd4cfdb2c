package audit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/config"
	"github.com/gridscope/settleaudit/internal/index"
)

func floatPtr(v float64) *float64 { return &v }

// fixture builds a one-day January 2024 scenario: a spot-plus-margin primary
// product with a 0.02 DKK/kWh ranged margin rate, one addon, 24 observations
// of 1.0 kWh, and spot prices of 500 DKK/MWh (0.50 DKK/kWh) for every hour.
func fixture(t *testing.T) *index.Set {
	t.Helper()

	doc := &cache.Document{
		Products: []cache.Product{
			{
				Name:         "Spot Basis",
				PricingModel: "SpotAddon",
				Rates: []cache.Rate{
					{StartDate: "2024-01-01T00:00:00Z", EndDate: "2024-04-01T00:00:00Z", RateDkkPerKwh: 0.02},
				},
			},
			{
				Name:         "Grøn strøm",
				PricingModel: "Flat",
				Rates: []cache.Rate{
					{StartDate: "2023-01-01T00:00:00Z", RateDkkPerKwh: 0.01},
				},
			},
		},
		Prices: []cache.ChargePrice{{
			Type:     "Abonnement",
			ChargeID: "NT-ABO",
			Points:   []cache.PricePoint{{Timestamp: "2023-01-01T00:00:00Z", Price: 30.0}},
		}},
		Customers: []cache.Customer{{MeteringPoints: []cache.MeteringPoint{{
			ProductPeriods: []cache.ProductPeriod{
				{Start: "2023-01-01T00:00:00Z", ProductName: "Spot Basis"},
				{Start: "2023-01-01T00:00:00Z", ProductName: "Grøn strøm"},
			},
		}}}},
	}

	var series cache.TimeSeries
	var spot cache.SpotDocument
	for h := 0; h < 24; h++ {
		ts := fmt.Sprintf("2024-01-01T%02d:00:00Z", h)
		series.Observations = append(series.Observations, cache.Observation{Timestamp: ts, Kwh: 1.0})
		spot.Prices = append(spot.Prices, cache.SpotPrice{HourUTC: ts, SpotPriceDkk: floatPtr(500.0)})
	}
	doc.TimeSeries = []cache.TimeSeries{series}

	return index.Build(doc, &spot)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AddonProducts = []string{"Grøn strøm"}
	return cfg
}

// daySettlement is a settlement for [2024-01-01, 2024-01-02) whose hourly
// detail matches the fixture observations.
func daySettlement() cache.Settlement {
	var detail []cache.HourlyDetail
	for h := 0; h < 24; h++ {
		detail = append(detail, cache.HourlyDetail{
			Timestamp:     fmt.Sprintf("2024-01-01T%02d:00:00Z", h),
			Kwh:           1.0,
			RateDkkPerKwh: 0.02,
			AmountDkk:     0.02,
		})
	}
	return cache.Settlement{
		PeriodStart:     "2024-01-01T00:00:00Z",
		PeriodEnd:       "2024-01-02T00:00:00Z",
		TotalEnergyKwh:  24.0,
		MarginAmountDkk: 0.48,
		TariffLines: []cache.TariffLine{{
			PartyChargeTypeID: "PRODUCT:Spot Basis",
			AmountDkk:         0.48,
			EnergyKwh:         24.0,
			HourlyDetail:      detail,
		}},
	}
}

func TestValidate_EndToEndPass(t *testing.T) {
	v := New(fixture(t), testConfig())
	r := v.Validate(0, daySettlement())

	assert.Equal(t, StatusPassed, r.Status)
	assert.Equal(t, "Spot Basis", r.Product)
	assert.Equal(t, "SpotAddon", r.PricingModel)
	assert.True(t, r.HasObs)
	assert.Equal(t, 24, r.ObsCount)
	assert.Equal(t, 24, r.ObsMatched)

	// 24 kWh × 0.50 DKK/kWh spot and 24 kWh × 0.02 DKK/kWh margin.
	require.NotNil(t, r.RecalcSpot)
	assert.InDelta(t, 12.00, *r.RecalcSpot, 1e-9)
	require.NotNil(t, r.RecalcMargin)
	assert.InDelta(t, 0.48, *r.RecalcMargin, 1e-9)
	assert.Zero(t, r.SpotMissingHours)
}

func TestValidate_MarginToleranceBoundary(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	s.MarginAmountDkk = 0.48 + 0.99 // within the 1.0 margin tolerance
	r := v.Validate(0, s)
	assert.Equal(t, StatusPassed, r.Status)

	s.MarginAmountDkk = 0.48 + 1.01 // outside
	r = v.Validate(0, s)
	assert.Equal(t, StatusFailed, r.Status)
	assert.True(t, r.HasIssue(IssueMargin))
}

func TestValidate_Tier1ToleranceBoundary(t *testing.T) {
	v := New(fixture(t), testConfig())

	// Hourly sum exactly matches the line amount: no issue.
	r := v.Validate(0, daySettlement())
	assert.Empty(t, r.Consistency)

	// Off by 0.005: within the 0.01 tolerance.
	s := daySettlement()
	s.TariffLines[0].AmountDkk += 0.005
	r = v.Validate(0, s)
	assert.Empty(t, r.Consistency)

	// Off by 0.02: tier-1 violation, with both values and the delta recorded.
	s = daySettlement()
	s.TariffLines[0].AmountDkk += 0.02
	r = v.Validate(0, s)
	require.Len(t, r.Consistency, 1)
	assert.InDelta(t, 0.02, r.Consistency[0].Delta, 1e-9)
	assert.True(t, r.HasIssue(IssueConsistency))
	assert.Equal(t, StatusFailed, r.Status)
}

func TestValidate_Tier2Counts(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	// One observation off by 0.01 kWh (exceeds the 0.005 tolerance), one
	// detail hour with no observation at all.
	s.TariffLines[0].HourlyDetail[3].Kwh = 1.01
	s.TariffLines[0].HourlyDetail[5].Timestamp = "2024-01-05T00:00:00Z"

	r := v.Validate(0, s)
	assert.Equal(t, 22, r.ObsMatched)
	assert.Equal(t, 1, r.ObsMismatched)
	assert.Equal(t, 1, r.ObsMissing)
	require.Len(t, r.ObsExamples, 1)

	// One mismatch is inside the DST allowance of two.
	assert.False(t, r.HasIssue(IssueObservation))
	assert.Equal(t, StatusPassed, r.Status)
}

func TestValidate_Tier2MismatchThreshold(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	for _, i := range []int{2, 4, 6} {
		s.TariffLines[0].HourlyDetail[i].Kwh = 2.0
	}
	r := v.Validate(0, s)
	assert.Equal(t, 3, r.ObsMismatched)
	assert.True(t, r.HasIssue(IssueObservation), "three mismatches exceed the allowance of two")
	assert.Len(t, r.ObsExamples, 3, "at most three examples kept")
	assert.Equal(t, StatusFailed, r.Status)
}

func TestValidate_SubscriptionLinesSkippedInTier2(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	// A subscription line with bogus hourly detail must not be the one the
	// observation matcher picks.
	sub := cache.TariffLine{
		PartyChargeTypeID: "NT-ABO",
		IsSubscription:    true,
		AmountDkk:         30.0,
		HourlyDetail:      []cache.HourlyDetail{{Timestamp: "2024-01-01T00:00:00Z", Kwh: 99.0}},
	}
	s.TariffLines = append([]cache.TariffLine{sub}, s.TariffLines...)

	r := v.Validate(0, s)
	assert.Equal(t, 24, r.ObsMatched)
	assert.Zero(t, r.ObsMismatched)
}

func TestValidate_NoObservationsSkips(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	s.PeriodStart = "2025-01-01T00:00:00Z"
	s.PeriodEnd = "2025-02-01T00:00:00Z"
	// Even a glaring margin discrepancy must not turn a skip into a fail.
	s.MarginAmountDkk = 5000.0

	r := v.Validate(0, s)
	assert.False(t, r.HasObs)
	assert.Equal(t, StatusSkipped, r.Status)
	assert.NotEqual(t, StatusFailed, r.Status)
	assert.Nil(t, r.RecalcSpot, "no spot recomputation without coverage")
	assert.Zero(t, r.ObsMatched+r.ObsMismatched+r.ObsMissing, "tier 2 does not run")

	// The margin fallback is still computed for information, but the period
	// start lies outside the ranged rate window, so the rate resolves to zero.
	require.NotNil(t, r.RecalcMargin)
	assert.InDelta(t, 0.0, *r.RecalcMargin, 1e-9)
}

func TestValidate_MarginFallbackUsesRecordedEnergy(t *testing.T) {
	v := New(fixture(t), testConfig())

	s := daySettlement()
	s.PeriodStart = "2024-02-01T00:00:00Z" // inside rate window, outside obs coverage
	s.PeriodEnd = "2024-03-01T00:00:00Z"
	s.TotalEnergyKwh = 100.0

	r := v.Validate(0, s)
	assert.False(t, r.HasObs)
	require.NotNil(t, r.RecalcMargin)
	assert.InDelta(t, 2.0, *r.RecalcMargin, 1e-9, "100 kWh × 0.02 from the settlement's own total")
}

func TestValidate_AddonThresholdStrictlyGreater(t *testing.T) {
	v := New(fixture(t), testConfig())

	// Addon rate 0.01 × 24 kWh = 0.24 computed.
	addonLine := func(amount float64) cache.Settlement {
		s := daySettlement()
		s.TariffLines = append(s.TariffLines, cache.TariffLine{
			PartyChargeTypeID: "PRODUCT:Grøn strøm",
			AmountDkk:         amount,
		})
		return s
	}

	// Delta of exactly 0.50 does not flag.
	r := v.Validate(0, addonLine(0.24+0.50))
	assert.Empty(t, r.AddonFindings)
	assert.False(t, r.HasIssue(IssueAddon))

	// 0.51 flags.
	r = v.Validate(0, addonLine(0.24+0.51))
	require.Len(t, r.AddonFindings, 1)
	assert.True(t, r.HasIssue(IssueAddon))
}

func TestValidate_SubscriptionProration(t *testing.T) {
	v := New(fixture(t), testConfig())

	subSettlement := func(amount float64) cache.Settlement {
		s := daySettlement()
		s.PeriodStart = "2024-01-01T00:00:00Z"
		s.PeriodEnd = "2024-01-16T00:00:00Z" // 15 days
		s.TariffLines = append(s.TariffLines, cache.TariffLine{
			PartyChargeTypeID: "NT-ABO",
			IsSubscription:    true,
			AmountDkk:         amount,
		})
		return s
	}

	// Monthly rate is 30. Flat monthly amount accepted.
	r := v.Validate(0, subSettlement(30.0))
	assert.Empty(t, r.SubFindings)

	// Prorated by days/30: 15/30 × 30 = 15 accepted.
	r = v.Validate(0, subSettlement(15.0))
	assert.Empty(t, r.SubFindings)

	// Neither flat nor prorated: flagged.
	r = v.Validate(0, subSettlement(22.0))
	require.Len(t, r.SubFindings, 1)
	assert.True(t, r.HasIssue(IssueSubscription))
}

func TestValidate_MissingSpotHoursReportedNotZeroed(t *testing.T) {
	doc := &cache.Document{
		Products: []cache.Product{{
			Name:         "Spot Basis",
			PricingModel: "SpotAddon",
			Rates:        []cache.Rate{{StartDate: "2024-01-01T00:00:00Z", EndDate: "2024-04-01T00:00:00Z", RateDkkPerKwh: 0.02}},
		}},
		Customers: []cache.Customer{{MeteringPoints: []cache.MeteringPoint{{
			ProductPeriods: []cache.ProductPeriod{{Start: "2023-01-01T00:00:00Z", ProductName: "Spot Basis"}},
		}}}},
	}
	var series cache.TimeSeries
	var spot cache.SpotDocument
	for h := 0; h < 24; h++ {
		ts := fmt.Sprintf("2024-01-01T%02d:00:00Z", h)
		series.Observations = append(series.Observations, cache.Observation{Timestamp: ts, Kwh: 1.0})
		if h >= 20 {
			continue // four market hours absent
		}
		spot.Prices = append(spot.Prices, cache.SpotPrice{HourUTC: ts, SpotPriceDkk: floatPtr(500.0)})
	}
	doc.TimeSeries = []cache.TimeSeries{series}

	v := New(index.Build(doc, &spot), testConfig())
	r := v.Validate(0, daySettlement())

	require.NotNil(t, r.RecalcSpot)
	assert.InDelta(t, 10.0, *r.RecalcSpot, 1e-9, "20 priced hours × 0.50")
	assert.Equal(t, 4, r.SpotMissingHours)
}

func TestValidate_NonSpotProductGetsNoSpotRecalc(t *testing.T) {
	idx := fixture(t)
	cfg := testConfig()
	// Reclassify: make the primary a flat product by renaming the period.
	for i := range idx.Periods {
		if idx.Periods[i].ProductName == "Spot Basis" {
			idx.Periods[i].ProductName = "Grøn strøm"
		}
	}
	cfg.AddonProducts = nil // Grøn strøm now primary, model "Flat"

	v := New(idx, cfg)
	r := v.Validate(0, daySettlement())
	assert.Nil(t, r.RecalcSpot)
}
