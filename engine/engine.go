// Package engine runs the trading loop: quote, score, signal, size, commit,
// place. The ledger commit is the point of truth; order placement happens
// after commit and a placement failure is logged, never rolled back.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/executor"
	"github.com/goatlabs/goat/history"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/marketdata"
	"github.com/goatlabs/goat/metrics"
	"github.com/goatlabs/goat/portfolio"
	"github.com/goatlabs/goat/risk"
	"github.com/goatlabs/goat/scorer"
	"github.com/goatlabs/goat/strategy"
	"github.com/goatlabs/goat/types"
)

type Engine struct {
	cfg      *config.Config
	log      logger.Logger
	source   marketdata.Source
	store    history.Store
	scorer   *scorer.Scorer
	ensemble *strategy.Ensemble
	ledger   *portfolio.Ledger
	placer   executor.OrderPlacer

	// mu serializes Cycle and Liquidate. None of the state below them is
	// synchronized, and schedulers fire jobs in their own goroutines.
	mu sync.Mutex

	// pairs and lastPrices remember the most recent quote per coin so that
	// liquidation can settle assets absent from the final ticker snapshot.
	pairs      map[string]string
	lastPrices map[string]float64
}

func New(
	cfg *config.Config,
	log logger.Logger,
	source marketdata.Source,
	store history.Store,
	sc *scorer.Scorer,
	ensemble *strategy.Ensemble,
	ledger *portfolio.Ledger,
	placer executor.OrderPlacer,
) *Engine {
	return &Engine{
		cfg:        cfg,
		log:        log,
		source:     source,
		store:      store,
		scorer:     sc,
		ensemble:   ensemble,
		ledger:     ledger,
		placer:     placer,
		pairs:      make(map[string]string),
		lastPrices: make(map[string]float64),
	}
}

// Cycle executes one full trading pass over the current market snapshot.
// Overlapping calls run one at a time.
func (e *Engine) Cycle(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	quotes, err := e.source.Quotes(ctx)
	if err != nil {
		return err
	}
	for _, q := range quotes {
		e.pairs[q.Coin] = q.Pair
		e.lastPrices[q.Coin] = q.Price
	}

	selected := e.scorer.Select(ctx, quotes)
	totalScore := 0.0
	for _, sc := range selected {
		totalScore += sc.Score
	}

	for _, sc := range selected {
		q := sc.Quote
		if err := e.store.AppendPrice(q.Coin, time.Now(), q.Price); err != nil {
			e.log.Warn("price_record_failed", logger.String("coin", q.Coin), logger.Err(err))
		}

		e.ensemble.Observe(q.Coin, q.Price)
		signal := e.ensemble.Evaluate(q.Coin, q.Price)

		switch signal {
		case types.SignalBuy:
			e.executeBuy(ctx, q, sc.Score, totalScore)
		case types.SignalSell:
			e.executeSell(ctx, q, sc.Score, totalScore)
		}
	}

	value := e.ledger.Value(e.lastPrices)
	sharpe := e.ledger.SharpeRatio()
	metrics.SharpeRatio.Set(sharpe)

	e.log.Info("cycle_complete",
		logger.Int("assets", len(selected)),
		logger.Float64("portfolio_value", value),
		logger.Int("open_positions", e.ledger.OpenPositions()),
		logger.Float64("sharpe", sharpe),
	)
	return nil
}

func (e *Engine) executeBuy(ctx context.Context, q types.Quote, score, totalScore float64) {
	positionValue := e.ledger.PositionValue(e.lastPrices)
	portfolioValue := e.ledger.Cash() + positionValue

	qty := risk.TradeAmount(q.Price, portfolioValue, score, totalScore, positionValue, e.cfg)
	if qty == 0 {
		e.log.Info("buy_skipped_below_min_qty", logger.String("coin", q.Coin))
		return
	}

	trade, reason := e.ledger.ExecuteBuy(q.Coin, q.Pair, q.Price, qty, portfolioValue, positionValue)
	if reason != portfolio.RejectNone {
		return
	}
	e.recordTrade(trade)
	e.place(ctx, types.Order{
		Coin:    q.Coin,
		Pair:    q.Pair,
		Side:    types.Buy,
		Qty:     trade.Quantity,
		Price:   trade.Price,
		Comment: string(e.ensemble.Registry().Get(q.Coin).Active),
	})
}

// executeSell sizes with the same score weight as a buy; the ledger then
// liquidates the entire holding when at least that much is held.
func (e *Engine) executeSell(ctx context.Context, q types.Quote, score, totalScore float64) {
	positionValue := e.ledger.PositionValue(e.lastPrices)
	portfolioValue := e.ledger.Cash() + positionValue
	qty := risk.TradeAmount(q.Price, portfolioValue, score, totalScore, positionValue, e.cfg)

	trade, reason := e.ledger.ExecuteSell(q.Coin, q.Pair, q.Price, qty)
	if reason != portfolio.RejectNone {
		return
	}
	e.recordTrade(trade)
	if trade.ProfitPct != nil {
		e.ensemble.RecordRealizedProfit(q.Coin, *trade.ProfitPct)
	}
	e.place(ctx, types.Order{
		Coin:    q.Coin,
		Pair:    q.Pair,
		Side:    types.Sell,
		Qty:     trade.Quantity,
		Price:   trade.Price,
		Comment: string(e.ensemble.Registry().Get(q.Coin).Active),
	})
}

func (e *Engine) recordTrade(trade types.Trade) {
	if err := e.store.AppendTrade(trade.Coin, trade); err != nil {
		e.log.Warn("trade_record_failed", logger.String("coin", trade.Coin), logger.Err(err))
	}
}

// place forwards the committed order to the venue. Failures are surfaced in
// the log only; the ledger state already reflects the trade.
func (e *Engine) place(ctx context.Context, o types.Order) {
	if err := e.placer.Place(ctx, o); err != nil {
		e.log.Error("order_placement_failed",
			logger.String("pair", o.Pair),
			logger.String("side", string(o.Side)),
			logger.Float64("qty", o.Qty),
			logger.Err(err),
		)
	}
}

// Liquidate force-sells every open holding at the best recently observed
// price and returns the final portfolio value and Sharpe ratio.
func (e *Engine) Liquidate(ctx context.Context) (finalValue, sharpe float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quotes, err := e.source.Quotes(ctx); err == nil {
		for _, q := range quotes {
			e.pairs[q.Coin] = q.Pair
			e.lastPrices[q.Coin] = q.Price
		}
	}

	for coin, qty := range e.ledger.Holdings() {
		if qty <= 0 {
			continue
		}
		price := e.settlementPrice(coin)
		if price <= 0 {
			e.log.Error("liquidation_price_unavailable", logger.String("coin", coin))
			continue
		}
		pair := e.pairs[coin]
		if pair == "" {
			pair = coin + "/USD"
		}

		trade, reason := e.ledger.ExecuteSell(coin, pair, price, qty)
		if reason != portfolio.RejectNone {
			continue
		}
		e.lastPrices[coin] = price
		e.recordTrade(trade)
		if trade.ProfitPct != nil {
			e.ensemble.RecordRealizedProfit(coin, *trade.ProfitPct)
		}
		e.place(ctx, types.Order{
			Coin:    coin,
			Pair:    pair,
			Side:    types.Sell,
			Qty:     trade.Quantity,
			Price:   price,
			Comment: "liquidation",
		})
	}

	finalValue = e.ledger.Value(e.lastPrices)
	sharpe = e.ledger.SharpeRatio()
	metrics.SharpeRatio.Set(sharpe)

	e.log.Info("liquidation_complete",
		logger.Float64("final_value", finalValue),
		logger.Float64("sharpe", sharpe),
		logger.Int("trades", e.ledger.TradeCount()),
		logger.Float64("win_rate", e.ledger.WinRate()),
	)
	return finalValue, sharpe
}

// settlementPrice is the highest price seen over roughly the last minute of
// recorded history, never below the freshest quote.
func (e *Engine) settlementPrice(coin string) float64 {
	samples := 1
	if e.cfg.Exchange.FetchIntervalSec > 0 {
		if n := 60 / e.cfg.Exchange.FetchIntervalSec; n > samples {
			samples = n
		}
	}
	best := e.lastPrices[coin]
	if recent, err := e.store.Prices(coin, samples); err == nil {
		for _, p := range recent {
			if p > best {
				best = p
			}
		}
	}
	return best
}
