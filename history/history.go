// Package history provides the append-only per-asset price and trade log the
// scorer and risk sizer query. Callers must tolerate empty or short history;
// stores return what they have, never an error for "not enough data".
package history

import (
	"time"

	"github.com/goatlabs/goat/types"
)

type Store interface {
	AppendPrice(coin string, ts time.Time, price float64) error
	// Prices returns up to limit most recent prices, oldest first.
	// limit <= 0 means all retained records.
	Prices(coin string, limit int) ([]float64, error)

	AppendTrade(coin string, trade types.Trade) error
	// Trades returns up to limit most recent trades, oldest first.
	Trades(coin string, limit int) ([]types.Trade, error)
}
