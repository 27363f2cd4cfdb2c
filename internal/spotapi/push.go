package spotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gridscope/settleaudit/internal/cache"
)

// PushBatchSize is the number of price points per upload call, kept modest to
// stay under the downstream API's request limits.
const PushBatchSize = 2000

// PricePoint is one per-kWh price sent downstream.
type PricePoint struct {
	Timestamp      string  `json:"timestamp"`
	PriceDkkPerKwh float64 `json:"priceDkkPerKwh"`
}

type pushRequest struct {
	PriceArea string       `json:"priceArea"`
	Points    []PricePoint `json:"points"`
}

type pushResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// PushStats summarizes an upload.
type PushStats struct {
	Points   int
	Skipped  int // null-price hours left behind
	Inserted int
	Updated  int
}

// Pusher uploads cached prices to the downstream API.
type Pusher struct {
	baseURL string
	http    *http.Client
}

// NewPusher builds an uploader for the given API base URL.
func NewPusher(baseURL string) *Pusher {
	return &Pusher{baseURL: baseURL, http: &http.Client{Timeout: 60 * time.Second}}
}

// ConvertPoints turns cache entries into per-kWh points: the cache stores
// DKK per MWh, the downstream API takes DKK per kWh, so every price is
// divided by 1000 and rounded to 8 decimals. Null-price hours are skipped
// and counted.
func ConvertPoints(doc *cache.SpotDocument) ([]PricePoint, int) {
	var points []PricePoint
	skipped := 0
	for _, p := range doc.Prices {
		if p.SpotPriceDkk == nil {
			skipped++
			continue
		}
		points = append(points, PricePoint{
			Timestamp:      p.HourUTC,
			PriceDkkPerKwh: math.Round(*p.SpotPriceDkk/1000.0*1e8) / 1e8,
		})
	}
	return points, skipped
}

// Push converts and uploads the whole cache in batches. A failed batch aborts
// the upload with an error; already-pushed batches stay pushed (the endpoint
// upserts).
func (p *Pusher) Push(ctx context.Context, doc *cache.SpotDocument, area string) (PushStats, error) {
	if area == "" {
		area = doc.Area
	}
	points, skipped := ConvertPoints(doc)
	stats := PushStats{Points: len(points), Skipped: skipped}

	log.Info().Str("area", area).Int("points", len(points)).Int("skipped", skipped).Msg("pushing spot prices")

	for i := 0; i < len(points); i += PushBatchSize {
		end := i + PushBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[i:end]

		inserted, updated, err := p.pushBatch(ctx, area, batch)
		if err != nil {
			return stats, fmt.Errorf("batch %d: %w", i/PushBatchSize+1, err)
		}
		stats.Inserted += inserted
		stats.Updated += updated

		log.Debug().
			Str("from", batch[0].Timestamp).Str("to", batch[len(batch)-1].Timestamp).
			Int("inserted", inserted).Int("updated", updated).
			Msg("batch pushed")
	}
	return stats, nil
}

func (p *Pusher) pushBatch(ctx context.Context, area string, batch []PricePoint) (int, int, error) {
	body, err := json.Marshal(pushRequest{PriceArea: area, Points: batch})
	if err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/spot-prices", bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return 0, 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(msg))
	}

	var result pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("decode push response: %w", err)
	}
	return result.Inserted, result.Updated, nil
}
