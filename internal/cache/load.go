package cache

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/timeutil"
)

// Load reads and validates a migration cache. Any structural or timestamp
// problem is fatal for the run: the auditor refuses to grade settlements it
// cannot fully parse.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read migration cache: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse migration cache %s: %w", path, err)
	}

	for i, s := range doc.Settlements {
		if _, err := timeutil.Parse(s.PeriodStart); err != nil {
			return nil, fmt.Errorf("settlement %d: bad periodStart: %w", i, err)
		}
		if _, err := timeutil.Parse(s.PeriodEnd); err != nil {
			return nil, fmt.Errorf("settlement %d: bad periodEnd: %w", i, err)
		}
	}

	log.Info().
		Str("path", path).
		Int("settlements", len(doc.Settlements)).
		Int("products", len(doc.Products)).
		Int("time_series", len(doc.TimeSeries)).
		Msg("migration cache loaded")

	return &doc, nil
}

// LoadSpot reads and validates a spot price cache.
func LoadSpot(path string) (*SpotDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spot cache: %w", err)
	}

	var doc SpotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse spot cache %s: %w", path, err)
	}

	for i, p := range doc.Prices {
		if _, err := timeutil.Parse(p.HourUTC); err != nil {
			return nil, fmt.Errorf("spot price %d: bad hourUtc: %w", i, err)
		}
	}

	log.Info().
		Str("path", path).
		Str("area", doc.Area).
		Int("prices", len(doc.Prices)).
		Msg("spot cache loaded")

	return &doc, nil
}

// WriteSpot writes a spot cache atomically via a temp file rename, so an
// interrupted fetch never truncates an existing cache.
func WriteSpot(path string, doc *SpotDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spot cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write spot cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace spot cache: %w", err)
	}
	return nil
}
