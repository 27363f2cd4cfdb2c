// Package index builds the read-only in-memory lookups the validator works
// from. A Set is built once, before any validation runs, and never mutated
// afterwards, so settlements can be validated in parallel against a shared
// Set without locking.
package index

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/rates"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

// OpenEndSentinel stands in for the end of a product period that is still
// attached. Far enough out to exceed every settlement key.
const OpenEndSentinel = "2099-12-31T23:59:59"

// Period is a product attachment interval with canonicalized keys. Active
// means Start <= instant < End.
type Period struct {
	Start       string
	End         string
	ProductName string
}

// Set holds every lookup the validator needs, keyed by canonical timestamp
// keys where applicable. Read-only after Build.
type Set struct {
	// SpotByHour maps hour key to price in DKK per kWh (already divided by
	// 1000 from the cache's per-MWh figures).
	SpotByHour map[string]float64
	// NullSpotHours counts cache entries skipped for having no price.
	NullSpotHours int

	// ObsByHour maps hour key to independently metered kWh.
	ObsByHour map[string]float64

	ProductByName  map[string]cache.Product
	RatesByProduct map[string][]rates.Entry
	SubByCharge    map[string][]rates.SchedulePoint

	// Periods is every product period, sorted by start key ascending.
	Periods []Period
}

// Build constructs the lookup set from the two input documents. spot may be
// nil, in which case no hour has a price and spot recomputation never applies.
func Build(doc *cache.Document, spot *cache.SpotDocument) *Set {
	s := &Set{
		SpotByHour:     make(map[string]float64),
		ObsByHour:      make(map[string]float64),
		ProductByName:  make(map[string]cache.Product),
		RatesByProduct: make(map[string][]rates.Entry),
		SubByCharge:    make(map[string][]rates.SchedulePoint),
	}

	if spot != nil {
		for _, p := range spot.Prices {
			if p.SpotPriceDkk == nil {
				s.NullSpotHours++
				continue
			}
			s.SpotByHour[timeutil.Key(p.HourUTC)] = *p.SpotPriceDkk / 1000.0
		}
	}

	for _, series := range doc.TimeSeries {
		for _, o := range series.Observations {
			s.ObsByHour[timeutil.Key(o.Timestamp)] = o.Kwh
		}
	}

	for _, p := range doc.Products {
		s.ProductByName[p.Name] = p
		s.RatesByProduct[p.Name] = rates.FromProduct(p)
	}

	for _, cp := range doc.Prices {
		if cp.Type == cache.SubscriptionType {
			s.SubByCharge[cp.ChargeID] = rates.FromChargePrice(cp)
		}
	}

	for _, c := range doc.Customers {
		for _, mp := range c.MeteringPoints {
			for _, pp := range mp.ProductPeriods {
				end := OpenEndSentinel
				if pp.End != "" {
					end = timeutil.Key(pp.End)
				}
				s.Periods = append(s.Periods, Period{
					Start:       timeutil.Key(pp.Start),
					End:         end,
					ProductName: pp.ProductName,
				})
			}
		}
	}
	sort.SliceStable(s.Periods, func(i, j int) bool { return s.Periods[i].Start < s.Periods[j].Start })

	log.Debug().
		Int("spot_hours", len(s.SpotByHour)).
		Int("null_spot_hours", s.NullSpotHours).
		Int("observations", len(s.ObsByHour)).
		Int("products", len(s.ProductByName)).
		Int("subscription_charges", len(s.SubByCharge)).
		Int("product_periods", len(s.Periods)).
		Msg("lookup indexes built")

	return s
}

// ObservationsIn returns the observations falling within [startKey, endKey).
func (s *Set) ObservationsIn(startKey, endKey string) map[string]float64 {
	in := make(map[string]float64)
	for k, kwh := range s.ObsByHour {
		if startKey <= k && k < endKey {
			in[k] = kwh
		}
	}
	return in
}

// ObservationRange returns the first and last observation keys, or empty
// strings when no observations exist.
func (s *Set) ObservationRange() (first, last string) {
	for k := range s.ObsByHour {
		if first == "" || k < first {
			first = k
		}
		if k > last {
			last = k
		}
	}
	return first, last
}
