package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeFile(t, "cache.json", `{
		"settlements": [{
			"periodStart": "2024-01-01T00:00:00Z",
			"periodEnd": "2024-02-01T00:00:00+00:00",
			"totalEnergyKwh": 100.5,
			"marginAmountDkk": 2.0,
			"tariffLines": [{"partyChargeTypeId": "PRODUCT:Spot Basis", "amountDkk": 2.0, "isSubscription": false}]
		}],
		"products": [{"name": "Spot Basis", "pricingModel": "SpotAddon", "rates": []}],
		"timeSeries": [{"observations": [{"timestamp": "2024-01-01T00:00:00Z", "kwh": 1.0}]}]
	}`)

	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Settlements, 1)
	assert.True(t, doc.Settlements[0].TariffLines[0].IsProductCharge())
	assert.Equal(t, "SpotAddon", doc.Products[0].PricingModel)
}

func TestLoad_MalformedJSONIsFatal(t *testing.T) {
	path := writeFile(t, "bad.json", `{"settlements": [`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadPeriodTimestampIsFatal(t *testing.T) {
	path := writeFile(t, "bad-ts.json", `{
		"settlements": [{"periodStart": "yesterday", "periodEnd": "2024-02-01T00:00:00Z"}]
	}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "periodStart")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadSpot_NullPricesAllowed(t *testing.T) {
	path := writeFile(t, "spot.json", `{
		"area": "DK1",
		"prices": [
			{"hourUtc": "2024-01-01T00:00:00Z", "spotPriceDkk": 500.0},
			{"hourUtc": "2024-01-01T01:00:00Z", "spotPriceDkk": null}
		]
	}`)

	doc, err := LoadSpot(path)
	require.NoError(t, err)
	require.Len(t, doc.Prices, 2)
	require.NotNil(t, doc.Prices[0].SpotPriceDkk)
	assert.Equal(t, 500.0, *doc.Prices[0].SpotPriceDkk)
	assert.Nil(t, doc.Prices[1].SpotPriceDkk)
}

func TestWriteSpot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spot.json")
	price := 350.25
	doc := &SpotDocument{
		Area:   "DK2",
		Count:  1,
		Prices: []SpotPrice{{HourUTC: "2024-01-01T00:00:00Z", SpotPriceDkk: &price}},
	}
	require.NoError(t, WriteSpot(path, doc))

	got, err := LoadSpot(path)
	require.NoError(t, err)
	assert.Equal(t, "DK2", got.Area)
	require.Len(t, got.Prices, 1)
	assert.Equal(t, price, *got.Prices[0].SpotPriceDkk)
}
