// Package cache models the two read-only input documents the auditor works
// from: the migration cache extracted from the legacy billing system and the
// spot price cache fetched from the market data service. Both are loaded once
// at startup and never mutated.
package cache

// Document is the migration cache: settlements, products with their rate
// schedules, charge price schedules, metered time series, and the customer
// hierarchy carrying product periods.
type Document struct {
	ExtractedAt    string       `json:"extractedAt"`
	AccountNumbers []string     `json:"accountNumbers"`
	SupplierGln    string       `json:"supplierGln"`
	SupplierName   string       `json:"supplierName"`
	Settlements    []Settlement `json:"settlements"`
	Products       []Product    `json:"products"`
	Prices         []ChargePrice `json:"prices"`
	TimeSeries     []TimeSeries `json:"timeSeries"`
	Customers      []Customer   `json:"customers"`
}

// Settlement is one billed period for one metering point. Immutable input;
// the auditor never writes settlements back.
type Settlement struct {
	Gsrn           string       `json:"gsrn"`
	PeriodStart    string       `json:"periodStart"`
	PeriodEnd      string       `json:"periodEnd"`
	BillingLogNum  string       `json:"billingLogNum"`
	HistKeyNumber  string       `json:"histKeyNumber"`
	TotalEnergyKwh float64      `json:"totalEnergyKwh"`
	TotalAmountDkk float64      `json:"totalAmountDkk"`
	MarginAmountDkk float64     `json:"marginAmountDkk"`
	TariffLines    []TariffLine `json:"tariffLines"`
	HourlyLines    []HourlyLine `json:"hourlyLines,omitempty"`
}

// TariffLine is one charge component of a settlement. PartyChargeTypeId is
// tagged: product charges carry the "PRODUCT:" prefix, everything else is a
// distribution charge.
type TariffLine struct {
	PartyChargeTypeID string         `json:"partyChargeTypeId"`
	Description       string         `json:"description"`
	AmountDkk         float64        `json:"amountDkk"`
	EnergyKwh         float64        `json:"energyKwh"`
	AvgUnitPrice      float64        `json:"avgUnitPrice"`
	IsSubscription    bool           `json:"isSubscription"`
	HourlyDetail      []HourlyDetail `json:"hourlyDetail,omitempty"`
	RateProvenance    *RateProvenance `json:"rateProvenance,omitempty"`
}

// ProductChargePrefix tags tariff lines that belong to a product rather than
// a distribution charge.
const ProductChargePrefix = "PRODUCT:"

// IsProductCharge reports whether the line is a product charge.
func (t TariffLine) IsProductCharge() bool {
	return len(t.PartyChargeTypeID) >= len(ProductChargePrefix) &&
		t.PartyChargeTypeID[:len(ProductChargePrefix)] == ProductChargePrefix
}

// HourlyDetail is the per-hour breakdown backing a tariff line total.
type HourlyDetail struct {
	Timestamp     string  `json:"timestamp"`
	Kwh           float64 `json:"kwh"`
	RateDkkPerKwh float64 `json:"rateDkkPerKwh"`
	AmountDkk     float64 `json:"amountDkk"`
}

// HourlyLine is the per-hour settlement pricing row used by the provenance
// report. Not consulted by the validator, which recomputes from raw inputs.
type HourlyLine struct {
	Timestamp              string  `json:"timestamp"`
	Kwh                    float64 `json:"kwh"`
	SpotPriceDkkPerKwh     float64 `json:"spotPriceDkkPerKwh"`
	CalculatedPriceDkkPerKwh float64 `json:"calculatedPriceDkkPerKwh"`
}

// RateProvenance records which source rate row priced a tariff line.
type RateProvenance struct {
	RateStartDate      string    `json:"rateStartDate"`
	IsHourly           bool      `json:"isHourly"`
	FlatRate           float64   `json:"flatRate"`
	HourlyRates        []float64 `json:"hourlyRates,omitempty"`
	CandidateRateCount int       `json:"candidateRateCount"`
	SelectionRule      string    `json:"selectionRule"`
}

// Product is a pricing plan. The rate schedule mixes ranged entries (EndDate
// set) and open-ended step entries (EndDate empty); resolution semantics live
// in the rates package.
type Product struct {
	Name         string `json:"name"`
	PricingModel string `json:"pricingModel"`
	Rates        []Rate `json:"rates"`
}

// PricingModelSpot marks products billed as market spot price plus margin.
// Only these get an independent spot cost recomputation.
const PricingModelSpot = "SpotAddon"

// Rate is one rate schedule entry. EndDate == "" means open-ended.
type Rate struct {
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate,omitempty"`
	RateDkkPerKwh float64 `json:"rateDkkPerKwh"`
}

// ChargePrice is a price schedule for a charge. Type "Abonnement" entries are
// monthly subscription amounts.
type ChargePrice struct {
	Type     string       `json:"type"`
	ChargeID string       `json:"chargeId"`
	Points   []PricePoint `json:"points"`
}

// SubscriptionType is the charge price type carrying monthly subscription
// amounts.
const SubscriptionType = "Abonnement"

// PricePoint is one (effective instant, price) pair.
type PricePoint struct {
	Timestamp string  `json:"timestamp"`
	Price     float64 `json:"price"`
}

// TimeSeries is an independently metered observation series.
type TimeSeries struct {
	Observations []Observation `json:"observations"`
}

// Observation is one metered hour; ground truth for tiers 2 and 3.
type Observation struct {
	Timestamp string  `json:"timestamp"`
	Kwh       float64 `json:"kwh"`
}

// Customer carries the metering point hierarchy.
type Customer struct {
	Name           string          `json:"name"`
	MeteringPoints []MeteringPoint `json:"meteringPoints"`
}

// MeteringPoint holds the product periods attaching products over time.
type MeteringPoint struct {
	Gsrn           string          `json:"gsrn,omitempty"`
	ProductPeriods []ProductPeriod `json:"productPeriods"`
}

// ProductPeriod attaches a product to a metering point for [Start, End).
// End == "" means still attached.
type ProductPeriod struct {
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	ProductName string `json:"productName"`
}

// SpotDocument is the spot price cache written by the fetch subcommand.
type SpotDocument struct {
	Area      string      `json:"area"`
	FromDate  string      `json:"fromDate"`
	ToDate    string      `json:"toDate"`
	FetchedAt string      `json:"fetchedAt,omitempty"`
	Count     int         `json:"count"`
	Stats     *SpotStats  `json:"stats,omitempty"`
	Prices    []SpotPrice `json:"prices"`
}

// SpotPrice is one market hour. SpotPriceDkk is per MWh and nullable; null
// hours are skipped (and counted) at index build.
type SpotPrice struct {
	HourUTC      string   `json:"hourUtc"`
	HourDk       string   `json:"hourDk,omitempty"`
	Area         string   `json:"area,omitempty"`
	SpotPriceDkk *float64 `json:"spotPriceDkk"`
	SpotPriceEur *float64 `json:"spotPriceEur,omitempty"`
}

// SpotStats summarizes a spot cache for quick inspection.
type SpotStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	First string  `json:"first"`
	Last  string  `json:"last"`
}
