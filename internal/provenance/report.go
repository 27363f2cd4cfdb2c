// Package provenance renders a self-contained HTML report that traces each
// settlement's figures back to the migration cache rows they came from. The
// page embeds its data as JSON and needs no server to view.
package provenance

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

// Report is the lean data set behind the HTML page.
type Report struct {
	RunID       string             `json:"runId"`
	ExtractedAt string             `json:"extractedAt"`
	Customer    string             `json:"customer"`
	SupplierGln string             `json:"supplierGln"`
	Supplier    string             `json:"supplierName"`
	Settlements []ReportSettlement `json:"settlements"`
}

// ReportSettlement is one settlement, trimmed to what the page shows.
type ReportSettlement struct {
	Gsrn    string         `json:"gsrn"`
	Start   string         `json:"start"`
	End     string         `json:"end"`
	HistKey string         `json:"key"`
	Kwh     float64        `json:"kwh"`
	Margin  float64        `json:"margin"`
	Total   float64        `json:"total"`
	Tariffs []ReportTariff `json:"tariffs"`
	Hours   []ReportHour   `json:"hours"`
}

// ReportHour is one per-hour pricing row.
type ReportHour struct {
	Timestamp  string  `json:"ts"`
	Kwh        float64 `json:"kwh"`
	Spot       float64 `json:"spot"`
	Calculated float64 `json:"calc"`
}

// ReportTariff is one tariff line with optional rate provenance.
type ReportTariff struct {
	ID     string                `json:"id"`
	Desc   string                `json:"desc"`
	Amount float64               `json:"amount"`
	Energy float64               `json:"energy"`
	Avg    float64               `json:"avg"`
	Prov   *cache.RateProvenance `json:"prov,omitempty"`
}

// Build assembles the report data from a migration cache, settlements sorted
// by period start.
func Build(runID string, doc *cache.Document) *Report {
	r := &Report{
		RunID:       runID,
		ExtractedAt: doc.ExtractedAt,
		SupplierGln: doc.SupplierGln,
		Supplier:    doc.SupplierName,
	}
	if len(doc.Customers) > 0 {
		r.Customer = doc.Customers[0].Name
	}

	for _, s := range doc.Settlements {
		rs := ReportSettlement{
			Gsrn:    s.Gsrn,
			Start:   timeutil.Key(s.PeriodStart),
			End:     timeutil.Key(s.PeriodEnd),
			HistKey: s.HistKeyNumber,
			Kwh:     s.TotalEnergyKwh,
			Margin:  s.MarginAmountDkk,
			Total:   s.TotalAmountDkk,
		}
		for _, h := range s.HourlyLines {
			rs.Hours = append(rs.Hours, ReportHour{
				Timestamp:  timeutil.Key(h.Timestamp),
				Kwh:        h.Kwh,
				Spot:       h.SpotPriceDkkPerKwh,
				Calculated: h.CalculatedPriceDkkPerKwh,
			})
		}
		for _, t := range s.TariffLines {
			rs.Tariffs = append(rs.Tariffs, ReportTariff{
				ID:     t.PartyChargeTypeID,
				Desc:   t.Description,
				Amount: t.AmountDkk,
				Energy: t.EnergyKwh,
				Avg:    t.AvgUnitPrice,
				Prov:   t.RateProvenance,
			})
		}
		r.Settlements = append(r.Settlements, rs)
	}

	sort.SliceStable(r.Settlements, func(i, j int) bool {
		return r.Settlements[i].Start < r.Settlements[j].Start
	})
	return r
}

// Render writes the self-contained HTML page.
func Render(w io.Writer, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}
	return pageTemplate.Execute(w, map[string]interface{}{
		"RunID": r.RunID,
		"Data":  template.JS(data),
	})
}

// WriteFile renders the report to path, creating parent directories.
func WriteFile(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := Render(f, r); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("settlements", len(r.Settlements)).Msg("provenance report written")
	return nil
}
