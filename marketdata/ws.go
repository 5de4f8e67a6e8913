package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/types"
)

// WSFeed keeps a last-price cache fed by a websocket ticker stream and
// reconnects with backoff when the connection drops. Quotes are served from
// the cache, so a momentary disconnect degrades freshness, not availability.
type WSFeed struct {
	url string
	log logger.Logger

	dialTimeout time.Duration
	readTimeout time.Duration

	mu   sync.RWMutex
	last map[string]float64
}

type tickMessage struct {
	Pair      string  `json:"Pair"`
	LastPrice float64 `json:"LastPrice"`
}

func NewWSFeed(url string, log logger.Logger) *WSFeed {
	return &WSFeed{
		url:         url,
		log:         log,
		dialTimeout: 10 * time.Second,
		readTimeout: 60 * time.Second,
		last:        make(map[string]float64),
	}
}

// Run drives the connect/read loop until the context is cancelled.
func (f *WSFeed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := f.consume(ctx); err != nil && ctx.Err() == nil {
			f.log.Warn("feed_disconnected",
				logger.Err(err),
				logger.String("retry_in", backoff.String()),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (f *WSFeed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.log.Info("feed_connected", logger.String("url", f.url))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var tick tickMessage
		if err := json.Unmarshal(msg, &tick); err != nil || tick.Pair == "" || tick.LastPrice <= 0 {
			continue
		}
		f.mu.Lock()
		f.last[tick.Pair] = tick.LastPrice
		f.mu.Unlock()
	}
}

// Quotes snapshots the cache. An empty cache means the feed has not warmed
// up yet and the caller should fall back to the REST source.
func (f *WSFeed) Quotes(_ context.Context) ([]types.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.last) == 0 {
		return nil, errors.New("feed cache empty")
	}
	quotes := make([]types.Quote, 0, len(f.last))
	for pair, price := range f.last {
		coin, _, ok := strings.Cut(pair, "/")
		if !ok {
			continue
		}
		quotes = append(quotes, types.Quote{Coin: coin, Pair: pair, Price: price})
	}
	return quotes, nil
}
