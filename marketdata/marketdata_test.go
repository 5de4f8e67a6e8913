package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*RESTClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Exchange.BaseURL = srv.URL
	return NewRESTClient(cfg, logger.Nop()), srv
}

func TestQuotesParsesTicker(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/ticker" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"Success":true,"Data":{
			"BTC/USD":{"LastPrice":50000.5},
			"ETH/USD":{"LastPrice":3000},
			"BAD":{"LastPrice":1},
			"XRP/USD":{"LastPrice":0}}}`))
	}))

	quotes, err := c.Quotes(context.Background())
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 valid quotes, got %d", len(quotes))
	}
	byCoin := map[string]types.Quote{}
	for _, q := range quotes {
		byCoin[q.Coin] = q
	}
	if byCoin["BTC"].Price != 50000.5 || byCoin["BTC"].Pair != "BTC/USD" {
		t.Fatalf("unexpected BTC quote: %+v", byCoin["BTC"])
	}
}

func TestQuotesSurfacesAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Success":false,"ErrMsg":"maintenance"}`))
	}))
	if _, err := c.Quotes(context.Background()); err == nil || !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("expected maintenance error, got %v", err)
	}
}

func TestPairsListsExchangeInfo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/exchangeInfo" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"TradePairs":{"BTC/USD":{},"ETH/USD":{}}}`))
	}))

	pairs, err := c.Pairs(context.Background())
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %v", pairs)
	}
}

func TestBalanceReadsSpotWallet(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/balance" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"Success":true,"SpotWallet":{"USD":{"Free":10000}}}`))
	}))

	wallet, err := c.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if wallet["USD"].Free != 10000 {
		t.Fatalf("unexpected wallet: %+v", wallet)
	}
}

func TestPlaceSubmitsMarketOrder(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v3/place_order" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("pair") != "BTC/USD" || r.PostForm.Get("side") != "BUY" {
			t.Fatalf("unexpected form: %v", r.PostForm)
		}
		if r.PostForm.Get("type") != "MARKET" {
			t.Fatalf("expected market order, got %s", r.PostForm.Get("type"))
		}
		w.Write([]byte(`{"Success":true}`))
	}))

	err := c.Place(context.Background(), types.Order{
		Coin: "BTC", Pair: "BTC/USD", Side: types.Buy, Qty: 0.5, Price: 50000,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
}

func TestPlaceRejectionIsAnError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Success":false,"ErrMsg":"insufficient balance"}`))
	}))
	err := c.Place(context.Background(), types.Order{Coin: "BTC", Pair: "BTC/USD", Side: types.Buy, Qty: 1})
	if err == nil || !strings.Contains(err.Error(), "insufficient balance") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestChartClientParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, "/BTC-USD") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[100,null,101.5,102]}]}}]}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewChartClient(logger.Nop())
	c.baseURL = srv.URL

	for i := 0; i < 2; i++ {
		closes, err := c.Closes(context.Background(), "BTC/USD")
		if err != nil {
			t.Fatalf("closes: %v", err)
		}
		if len(closes) != 3 || closes[1] != 101.5 {
			t.Fatalf("unexpected closes: %v", closes)
		}
	}
	if calls != 1 {
		t.Fatalf("expected cached second read, upstream saw %d calls", calls)
	}
}

func TestWSFeedCachesTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"Pair":"BTC/USD","LastPrice":50000}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"Pair":"BTC/USD","LastPrice":50100}`))
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	feed := NewWSFeed("ws"+strings.TrimPrefix(srv.URL, "http"), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		quotes, err := feed.Quotes(ctx)
		if err == nil && len(quotes) == 1 && quotes[0].Price >= 50000 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("feed never cached a tick")
}

func TestWSFeedEmptyCacheIsAnError(t *testing.T) {
	feed := NewWSFeed("ws://localhost:0", logger.Nop())
	if _, err := feed.Quotes(context.Background()); err == nil {
		t.Fatal("expected error from cold cache")
	}
}
