package spotapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/settleaudit/internal/cache"
)

func TestConvertPoints(t *testing.T) {
	doc := &cache.SpotDocument{Prices: []cache.SpotPrice{
		{HourUTC: "2024-01-01T00:00:00Z", SpotPriceDkk: floatPtr(512.123456789)},
		{HourUTC: "2024-01-01T01:00:00Z", SpotPriceDkk: nil},
		{HourUTC: "2024-01-01T02:00:00Z", SpotPriceDkk: floatPtr(-50.0)},
	}}

	points, skipped := ConvertPoints(doc)
	assert.Equal(t, 1, skipped)
	require.Len(t, points, 2)
	// Per-MWh figures convert to per-kWh, rounded to 8 decimals.
	assert.Equal(t, 0.51212346, points[0].PriceDkkPerKwh)
	assert.Equal(t, -0.05, points[1].PriceDkkPerKwh)
}

func TestPush_BatchesAndSums(t *testing.T) {
	var gotAreas []string
	var gotSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/spot-prices", r.URL.Path)
		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotAreas = append(gotAreas, req.PriceArea)
		gotSizes = append(gotSizes, len(req.Points))
		json.NewEncoder(w).Encode(pushResponse{Inserted: len(req.Points), Updated: 0})
	}))
	defer srv.Close()

	doc := &cache.SpotDocument{Area: "DK1"}
	for i := 0; i < PushBatchSize+10; i++ {
		doc.Prices = append(doc.Prices, cache.SpotPrice{HourUTC: "2024-01-01T00:00:00Z", SpotPriceDkk: floatPtr(100.0)})
	}

	stats, err := NewPusher(srv.URL).Push(context.Background(), doc, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"DK1", "DK1"}, gotAreas, "area defaults from the cache document")
	assert.Equal(t, []int{PushBatchSize, 10}, gotSizes)
	assert.Equal(t, PushBatchSize+10, stats.Inserted)
	assert.Zero(t, stats.Skipped)
}

func TestPush_FailedBatchAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	doc := &cache.SpotDocument{Area: "DK2", Prices: []cache.SpotPrice{
		{HourUTC: "2024-01-01T00:00:00Z", SpotPriceDkk: floatPtr(100.0)},
	}}

	_, err := NewPusher(srv.URL).Push(context.Background(), doc, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
