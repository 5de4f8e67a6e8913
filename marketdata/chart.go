package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goatlabs/goat/logger"
)

const defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// ChartClient fetches daily close series from a public chart API and caches
// them, since long-term series move slowly and the upstream rate-limits.
type ChartClient struct {
	baseURL string
	httpc   *http.Client
	log     logger.Logger
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]chartEntry
}

type chartEntry struct {
	closes  []float64
	fetched time.Time
}

func NewChartClient(log logger.Logger) *ChartClient {
	return &ChartClient{
		baseURL: defaultChartURL,
		httpc:   &http.Client{Timeout: 20 * time.Second},
		log:     log,
		ttl:     48 * time.Hour,
		cache:   make(map[string]chartEntry),
	}
}

// Closes returns up to a year of daily closes for the pair, e.g. "BTC/USD"
// is requested as the "BTC-USD" chart symbol.
func (c *ChartClient) Closes(ctx context.Context, pair string) ([]float64, error) {
	symbol := strings.ReplaceAll(pair, "/", "-")

	c.mu.Lock()
	if e, ok := c.cache[symbol]; ok && time.Since(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.closes, nil
	}
	c.mu.Unlock()

	closes, err := c.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[symbol] = chartEntry{closes: closes, fetched: time.Now()}
	c.mu.Unlock()

	c.log.Info("historical_data_fetched",
		logger.String("symbol", symbol),
		logger.Int("closes", len(closes)),
	)
	return closes, nil
}

func (c *ChartClient) fetch(ctx context.Context, symbol string) ([]float64, error) {
	u := fmt.Sprintf("%s/%s?range=1y&interval=1d", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "goat/1.0")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart %s: http %d", symbol, resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}

	raw := payload.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v != nil {
			closes = append(closes, *v)
		}
	}
	return closes, nil
}
