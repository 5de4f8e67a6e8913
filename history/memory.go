package history

import (
	"time"

	"github.com/goatlabs/goat/types"
)

// MemoryStore keeps bounded per-coin history in memory. It backs tests and
// store-less runs with the same retention rules as the SQLite store.
type MemoryStore struct {
	maxPrices int
	maxTrades int
	prices    map[string][]float64
	trades    map[string][]types.Trade
}

func NewMemoryStore(maxPrices, maxTrades int) *MemoryStore {
	if maxPrices <= 0 {
		maxPrices = 10_000
	}
	if maxTrades <= 0 {
		maxTrades = 1_000
	}
	return &MemoryStore{
		maxPrices: maxPrices,
		maxTrades: maxTrades,
		prices:    make(map[string][]float64),
		trades:    make(map[string][]types.Trade),
	}
}

func (m *MemoryStore) AppendPrice(coin string, _ time.Time, price float64) error {
	buf := append(m.prices[coin], price)
	if len(buf) > m.maxPrices {
		buf = buf[len(buf)-m.maxPrices:]
	}
	m.prices[coin] = buf
	return nil
}

func (m *MemoryStore) Prices(coin string, limit int) ([]float64, error) {
	buf := m.prices[coin]
	if limit > 0 && len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	out := make([]float64, len(buf))
	copy(out, buf)
	return out, nil
}

func (m *MemoryStore) AppendTrade(coin string, trade types.Trade) error {
	buf := append(m.trades[coin], trade)
	if len(buf) > m.maxTrades {
		buf = buf[len(buf)-m.maxTrades:]
	}
	m.trades[coin] = buf
	return nil
}

func (m *MemoryStore) Trades(coin string, limit int) ([]types.Trade, error) {
	buf := m.trades[coin]
	if limit > 0 && len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	out := make([]types.Trade, len(buf))
	copy(out, buf)
	return out, nil
}
