package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/metrics"
	"github.com/goatlabs/goat/types"
)

// RESTClient talks to a Roostoo-compatible exchange API.
type RESTClient struct {
	baseURL string
	httpc   *http.Client
	log     logger.Logger
}

func NewRESTClient(cfg *config.Config, log logger.Logger) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(cfg.Exchange.BaseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

func timestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (c *RESTClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *RESTClient) postForm(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *RESTClient) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: http %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Pairs lists the tradeable pairs advertised by the exchange.
func (c *RESTClient) Pairs(ctx context.Context) ([]string, error) {
	var info struct {
		TradePairs map[string]json.RawMessage `json:"TradePairs"`
	}
	if err := c.get(ctx, "/v3/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(info.TradePairs))
	for p := range info.TradePairs {
		pairs = append(pairs, p)
	}
	return pairs, nil
}

type tickerResponse struct {
	Success bool   `json:"Success"`
	ErrMsg  string `json:"ErrMsg"`
	Data    map[string]struct {
		LastPrice float64 `json:"LastPrice"`
	} `json:"Data"`
}

// Quotes returns the last-traded price for every pair in one ticker call.
func (c *RESTClient) Quotes(ctx context.Context) ([]types.Quote, error) {
	params := url.Values{"timestamp": {timestamp()}}
	var tk tickerResponse
	if err := c.get(ctx, "/v3/ticker", params, &tk); err != nil {
		return nil, err
	}
	if !tk.Success {
		return nil, fmt.Errorf("ticker: %s", tk.ErrMsg)
	}
	quotes := make([]types.Quote, 0, len(tk.Data))
	for pair, d := range tk.Data {
		coin, _, ok := strings.Cut(pair, "/")
		if !ok || d.LastPrice <= 0 {
			continue
		}
		quotes = append(quotes, types.Quote{Coin: coin, Pair: pair, Price: d.LastPrice})
	}
	return quotes, nil
}

// Wallet is one asset's balance on the exchange.
type Wallet struct {
	Free float64 `json:"Free"`
	Lock float64 `json:"Lock"`
}

// Balance returns the spot wallet, queried once at startup for the initial
// cash figure.
func (c *RESTClient) Balance(ctx context.Context) (map[string]Wallet, error) {
	params := url.Values{"timestamp": {timestamp()}}
	var resp struct {
		Success    bool              `json:"Success"`
		ErrMsg     string            `json:"ErrMsg"`
		SpotWallet map[string]Wallet `json:"SpotWallet"`
	}
	if err := c.get(ctx, "/v3/balance", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.ErrMsg != "" {
		return nil, fmt.Errorf("balance: %s", resp.ErrMsg)
	}
	return resp.SpotWallet, nil
}

// Place submits a market order. The ledger has already committed the trade;
// callers treat an error here as a venue problem, not a rollback trigger.
func (c *RESTClient) Place(ctx context.Context, o types.Order) error {
	params := url.Values{
		"timestamp": {timestamp()},
		"pair":      {o.Pair},
		"side":      {string(o.Side)},
		"quantity":  {strconv.FormatFloat(o.Qty, 'f', -1, 64)},
		"type":      {"MARKET"},
	}
	var resp struct {
		Success bool   `json:"Success"`
		ErrMsg  string `json:"ErrMsg"`
	}
	if err := c.postForm(ctx, "/v3/place_order", params, &resp); err != nil {
		metrics.OrdersPlaced.WithLabelValues(string(o.Side), "error").Inc()
		return err
	}
	if !resp.Success {
		metrics.OrdersPlaced.WithLabelValues(string(o.Side), "rejected").Inc()
		return fmt.Errorf("place order %s %s: %s", o.Side, o.Pair, resp.ErrMsg)
	}
	metrics.OrdersPlaced.WithLabelValues(string(o.Side), "filled").Inc()
	c.log.Info("order_placed",
		logger.String("pair", o.Pair),
		logger.String("side", string(o.Side)),
		logger.Float64("qty", o.Qty),
	)
	return nil
}
