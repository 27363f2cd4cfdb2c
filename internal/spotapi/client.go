// Package spotapi talks to the market data service: batched download of
// historical spot prices into the local JSON cache, and upload of converted
// per-kWh price points to the downstream billing API. Both directions sit
// behind a token-bucket rate limiter and a circuit breaker so a wobbly
// service degrades the run instead of hammering the API.
package spotapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/gridscope/settleaudit/internal/cache"
	"github.com/gridscope/settleaudit/internal/timeutil"
)

// BatchSize is the page size for historical fetches.
const BatchSize = 10000

// ClientConfig configures the fetch client.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RPS            float64
	Burst          int
}

// DefaultClientConfig paces requests politely for a public dataset API.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: 30 * time.Second,
		RPS:            2.0,
		Burst:          1,
	}
}

// Client fetches spot price records.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	warm    *Cache // optional
}

// NewClient builds a fetch client. warm may be nil to skip the Redis layer.
func NewClient(cfg ClientConfig, warm *Cache) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "spotapi",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		warm: warm,
	}
}

// batchResponse mirrors the dataset API page shape.
type batchResponse struct {
	Total   int           `json:"total"`
	Records []batchRecord `json:"records"`
}

type batchRecord struct {
	HourUTC      string   `json:"HourUTC"`
	HourDK       string   `json:"HourDK"`
	PriceArea    string   `json:"PriceArea"`
	SpotPriceDKK *float64 `json:"SpotPriceDKK"`
	SpotPriceEUR *float64 `json:"SpotPriceEUR"`
}

func (c *Client) fetchBatch(ctx context.Context, area, from, to string, offset int) (*batchResponse, error) {
	key := fmt.Sprintf("batch:%s:%s:%s:%d", area, from, to, offset)
	if c.warm != nil {
		if cached, ok := c.warm.Get(ctx, key); ok {
			var resp batchResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	filter, _ := json.Marshal(map[string][]string{"PriceArea": {area}})
	params := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(BatchSize)},
		"start":  {from},
		"end":    {to},
		"filter": {string(filter)},
		"sort":   {"HourUTC ASC"},
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch batch at offset %d: %w", offset, err)
	}

	raw := body.([]byte)
	var page batchResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode batch at offset %d: %w", offset, err)
	}

	if c.warm != nil {
		c.warm.Set(ctx, key, raw)
	}
	return &page, nil
}

// FetchAll downloads the [from, to] range for a price area and merges new
// hours into doc. Existing hours are kept as-is, so re-running against a
// populated cache only adds what is missing. Returns the number of newly
// added hours.
func (c *Client) FetchAll(ctx context.Context, area, from, to string, doc *cache.SpotDocument) (int, error) {
	existing := make(map[string]bool, len(doc.Prices))
	for _, p := range doc.Prices {
		existing[timeutil.Key(p.HourUTC)] = true
	}

	offset := 0
	added := 0
	total := -1

	log.Info().Str("area", area).Str("from", from).Str("to", to).Msg("fetching spot prices")

	for {
		page, err := c.fetchBatch(ctx, area, from, to, offset)
		if err != nil {
			return added, err
		}
		if total < 0 {
			total = page.Total
			log.Info().Int("total", total).Msg("records available")
		}
		if len(page.Records) == 0 {
			break
		}

		for _, r := range page.Records {
			key := timeutil.Key(r.HourUTC)
			if existing[key] {
				continue
			}
			doc.Prices = append(doc.Prices, cache.SpotPrice{
				HourUTC:      r.HourUTC,
				HourDk:       r.HourDK,
				Area:         r.PriceArea,
				SpotPriceDkk: r.SpotPriceDKK,
				SpotPriceEur: r.SpotPriceEUR,
			})
			existing[key] = true
			added++
		}

		offset += len(page.Records)
		log.Debug().Int("fetched", offset).Int("total", total).Int("new", added).Msg("batch merged")

		if len(page.Records) < BatchSize {
			break
		}
	}

	finalizeDoc(doc, area, from, to)
	return added, nil
}

// finalizeDoc sorts the merged prices and restamps the document metadata and
// summary stats.
func finalizeDoc(doc *cache.SpotDocument, area, from, to string) {
	sort.SliceStable(doc.Prices, func(i, j int) bool {
		return timeutil.Key(doc.Prices[i].HourUTC) < timeutil.Key(doc.Prices[j].HourUTC)
	})
	doc.Area = area
	doc.FromDate = from
	doc.ToDate = to
	doc.FetchedAt = time.Now().UTC().Format(time.RFC3339)
	doc.Count = len(doc.Prices)

	doc.Stats = nil
	var priced []float64
	for _, p := range doc.Prices {
		if p.SpotPriceDkk != nil {
			priced = append(priced, *p.SpotPriceDkk)
		}
	}
	if len(priced) == 0 {
		return
	}

	stats := &cache.SpotStats{
		Min:   priced[0],
		Max:   priced[0],
		First: doc.Prices[0].HourUTC,
		Last:  doc.Prices[len(doc.Prices)-1].HourUTC,
	}
	sum := 0.0
	for _, v := range priced {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Avg = sum / float64(len(priced))
	doc.Stats = stats
}
