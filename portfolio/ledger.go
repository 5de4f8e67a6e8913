// Package portfolio tracks cash, holdings and realized performance. All
// rejections are normal control flow: the ledger reports them and mutates
// nothing.
package portfolio

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/metrics"
	"github.com/goatlabs/goat/types"
)

// RejectReason explains why a trade did not execute.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectInsufficientCash RejectReason = "insufficient_cash"
	RejectMaxOpenTrades    RejectReason = "max_open_trades"
	RejectRiskCap          RejectReason = "risk_cap"
	RejectInsufficientQty  RejectReason = "insufficient_qty"
)

type Ledger struct {
	cfg *config.Config
	log logger.Logger

	cash     float64
	holdings map[string]float64
	// entries holds the FIFO entry-price queue per asset: append on buy,
	// pop-front on sell.
	entries map[string][]float64

	tradeCount       int
	profitableTrades int
	valuations       []float64
	trades           []types.Trade
}

func NewLedger(cfg *config.Config, log logger.Logger, startingCash float64) *Ledger {
	return &Ledger{
		cfg:      cfg,
		log:      log,
		cash:     startingCash,
		holdings: make(map[string]float64),
		entries:  make(map[string][]float64),
	}
}

// ExecuteBuy commits a buy if cash covers cost plus commission, the open
// position count is below the maximum and the resulting exposure stays under
// the portfolio risk cap.
func (l *Ledger) ExecuteBuy(coin, pair string, price, qty, portfolioValue, positionValue float64) (types.Trade, RejectReason) {
	cost := qty * price
	commission := cost * l.cfg.Trading.BuyCommission
	total := cost + commission

	if l.cash < total {
		return l.reject(coin, RejectInsufficientCash)
	}
	if l.OpenPositions() >= l.cfg.Trading.MaxOpenTrades {
		return l.reject(coin, RejectMaxOpenTrades)
	}
	if positionValue+cost > portfolioValue*l.cfg.Trading.MaxPortfolioRisk {
		return l.reject(coin, RejectRiskCap)
	}

	l.cash -= total
	l.holdings[coin] += qty
	l.entries[coin] = append(l.entries[coin], price)

	trade := types.Trade{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Action:      types.Buy,
		Coin:        coin,
		Pair:        pair,
		Price:       price,
		Quantity:    qty,
		Commission:  commission,
		CashBalance: l.cash,
	}
	l.trades = append(l.trades, trade)
	metrics.TradesExecuted.WithLabelValues(string(types.Buy)).Inc()
	metrics.OpenPositions.Set(float64(l.OpenPositions()))

	l.log.Info("buy_executed",
		logger.String("coin", coin),
		logger.Float64("price", price),
		logger.Float64("qty", qty),
		logger.Float64("commission", commission),
		logger.Float64("cash", l.cash),
	)
	return trade, RejectNone
}

// ExecuteSell liquidates the asset's entire holding when at least qty is
// held. The realized profit percentage is computed against the oldest
// queued entry price including the original buy commission.
func (l *Ledger) ExecuteSell(coin, pair string, price, qty float64) (types.Trade, RejectReason) {
	held := l.holdings[coin]
	if held < qty || held <= 0 {
		return l.reject(coin, RejectInsufficientQty)
	}

	saleAmount := held * price
	commission := saleAmount * l.cfg.Trading.SellCommission
	netProceeds := saleAmount - commission

	l.holdings[coin] = 0
	l.cash += netProceeds
	l.tradeCount++

	trade := types.Trade{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Action:      types.Sell,
		Coin:        coin,
		Pair:        pair,
		Price:       price,
		Quantity:    held,
		Commission:  commission,
		CashBalance: l.cash,
	}

	if queue := l.entries[coin]; len(queue) > 0 {
		entryPrice := queue[0]
		l.entries[coin] = queue[1:]

		buyCost := held * entryPrice * (1 + l.cfg.Trading.BuyCommission)
		if buyCost > 0 {
			profitPct := (netProceeds/buyCost - 1) * 100
			trade.ProfitPct = &profitPct
			if netProceeds-buyCost > 0 {
				l.profitableTrades++
			}
		}
	}

	l.trades = append(l.trades, trade)
	metrics.TradesExecuted.WithLabelValues(string(types.Sell)).Inc()
	metrics.OpenPositions.Set(float64(l.OpenPositions()))

	fields := []logger.Field{
		logger.String("coin", coin),
		logger.Float64("price", price),
		logger.Float64("qty", held),
		logger.Float64("net_proceeds", netProceeds),
		logger.Float64("cash", l.cash),
	}
	if trade.ProfitPct != nil {
		fields = append(fields, logger.Float64("profit_pct", *trade.ProfitPct))
	}
	l.log.Info("sell_executed", fields...)
	return trade, RejectNone
}

func (l *Ledger) reject(coin string, reason RejectReason) (types.Trade, RejectReason) {
	metrics.TradesRejected.WithLabelValues(string(reason)).Inc()
	l.log.Info("trade_rejected",
		logger.String("coin", coin),
		logger.String("reason", string(reason)),
	)
	return types.Trade{}, reason
}

// Value marks the portfolio to market and appends the result to the
// valuation series used for the Sharpe ratio.
func (l *Ledger) Value(prices map[string]float64) float64 {
	value := l.cash
	for coin, qty := range l.holdings {
		value += qty * prices[coin]
	}
	l.valuations = append(l.valuations, value)
	metrics.PortfolioValue.Set(value)
	return value
}

// PositionValue is the mark-to-market value of open holdings only.
func (l *Ledger) PositionValue(prices map[string]float64) float64 {
	value := 0.0
	for coin, qty := range l.holdings {
		if qty > 0 {
			value += qty * prices[coin]
		}
	}
	return value
}

// SharpeRatio is the mean excess per-period return over its standard
// deviation across the valuation series; 0 with fewer than two valuations
// or zero return deviation.
func (l *Ledger) SharpeRatio() float64 {
	if len(l.valuations) < 2 {
		return 0
	}
	excess := make([]float64, 0, len(l.valuations)-1)
	for i := 1; i < len(l.valuations); i++ {
		prev := l.valuations[i-1]
		if prev == 0 {
			continue
		}
		ret := (l.valuations[i] - prev) / prev
		excess = append(excess, ret-l.cfg.Risk.RiskFreeRate)
	}
	if len(excess) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range excess {
		mean += r
	}
	mean /= float64(len(excess))
	variance := 0.0
	for _, r := range excess {
		d := r - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(excess)))
	if std == 0 {
		return 0
	}
	return mean / std
}

// OpenPositions counts assets with a non-zero holding.
func (l *Ledger) OpenPositions() int {
	n := 0
	for _, qty := range l.holdings {
		if qty > 0 {
			n++
		}
	}
	return n
}

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) Holding(coin string) float64 { return l.holdings[coin] }

// Holdings returns a copy of the current holdings map.
func (l *Ledger) Holdings() map[string]float64 {
	out := make(map[string]float64, len(l.holdings))
	for coin, qty := range l.holdings {
		out[coin] = qty
	}
	return out
}

// Trades returns the recorded trade history.
func (l *Ledger) Trades() []types.Trade {
	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) TradeCount() int { return l.tradeCount }

// WinRate is the share of closed trades with positive realized profit;
// 0 before any trade closes.
func (l *Ledger) WinRate() float64 {
	if l.tradeCount == 0 {
		return 0
	}
	return float64(l.profitableTrades) / float64(l.tradeCount)
}
