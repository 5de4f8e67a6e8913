package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Signal is the engine's per-cycle decision for an asset.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// PositionStatus tracks whether an asset currently has an open long position.
type PositionStatus string

const (
	Cash    PositionStatus = "CASH"
	Holding PositionStatus = "HOLDING"
)

// Quote is a single last-traded price observation for an asset pair.
type Quote struct {
	Coin  string // base symbol, e.g. "BTC"
	Pair  string // quoted pair, e.g. "BTC/USD"
	Price float64
}

type Order struct {
	Coin  string
	Pair  string
	Side  Side
	Qty   float64
	Price float64
	// meta
	Comment string
}

// Trade is an immutable snapshot of one executed trade.
type Trade struct {
	ID          string
	Timestamp   time.Time
	Action      Side
	Coin        string
	Pair        string
	Price       float64
	Quantity    float64
	Commission  float64
	CashBalance float64
	// ProfitPct is set on sells that close against a recorded entry price.
	ProfitPct *float64
}
