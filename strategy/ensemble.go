package strategy

import (
	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/indicator"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/metrics"
	"github.com/goatlabs/goat/risk"
	"github.com/goatlabs/goat/types"
)

// Ensemble runs every strategy against the asset's state each cycle, feeds
// all hypothetical outcomes back into the selector (off-policy learning),
// and returns the active strategy's signal as the actionable decision.
type Ensemble struct {
	cfg      *config.Config
	log      logger.Logger
	registry *Registry
	selector *Selector
	calc     *indicator.Calculator
}

func NewEnsemble(cfg *config.Config, log logger.Logger, registry *Registry, selector *Selector, calc *indicator.Calculator) *Ensemble {
	return &Ensemble{
		cfg:      cfg,
		log:      log,
		registry: registry,
		selector: selector,
		calc:     calc,
	}
}

// Observe folds a fresh price into the asset's running mean and rolling
// buffer. Must be called once per cycle before Evaluate.
func (e *Ensemble) Observe(coin string, price float64) {
	e.registry.Get(coin).observe(price)
}

func (e *Ensemble) Registry() *Registry { return e.registry }

// Evaluate produces the asset's signal for this cycle. A BUY transition
// atomically marks the position HOLDING, records the commission-adjusted
// entry price and anchors stop-loss/take-profit before the signal is
// returned; a SELL transition clears all position fields.
func (e *Ensemble) Evaluate(coin string, price float64) types.Signal {
	st := e.registry.Get(coin)
	snap, _ := e.calc.Compute(st.prices)

	active := e.selector.Select(coin)
	st.Active = active

	signals := make(map[Name]types.Signal, len(Names))
	for _, name := range Names {
		signals[name] = evaluate(name, st, price, snap, e.cfg)
	}

	// Every strategy's hypothetical signal updates its score, not just the
	// active one.
	for _, name := range Names {
		switch sig := signals[name]; sig {
		case types.SignalSell:
			if st.Status == types.Holding && st.EntryPrice > 0 {
				profitPct := (price/st.EntryPrice - 1) * 100
				e.selector.Reward(coin, name, sig, profitPct)
			}
		case types.SignalBuy:
			e.selector.Reward(coin, name, sig, 0)
		}
	}
	e.selector.Decay(coin)

	actionable := signals[active]
	metrics.SignalsGenerated.WithLabelValues(string(active), string(actionable)).Inc()

	switch {
	case actionable == types.SignalBuy && st.Status == types.Cash:
		e.enterPosition(st, price)
	case actionable == types.SignalSell && st.Status == types.Holding:
		e.exitPosition(st)
	}

	e.log.Info("signal",
		logger.String("coin", coin),
		logger.Float64("price", price),
		logger.String("strategy", string(active)),
		logger.String("signal", string(actionable)),
	)
	return actionable
}

func (e *Ensemble) enterPosition(st *State, price float64) {
	entry := price * (1 + e.cfg.Trading.BuyCommission)
	slPct, tpPct := risk.Levels(st.prices, e.cfg)

	st.Status = types.Holding
	st.EntryPrice = entry
	st.StopLoss = entry * (1 - slPct)
	st.TakeProfit = entry * (1 + tpPct)

	e.log.Info("risk_levels_set",
		logger.String("coin", st.Coin),
		logger.Float64("entry", entry),
		logger.Float64("stop_loss", st.StopLoss),
		logger.Float64("take_profit", st.TakeProfit),
	)
}

func (e *Ensemble) exitPosition(st *State) {
	st.Status = types.Cash
	st.EntryPrice = 0
	st.StopLoss = 0
	st.TakeProfit = 0
}

// RecordRealizedProfit feeds a ledger-realized sell back into the active
// strategy's score after the trade commits.
func (e *Ensemble) RecordRealizedProfit(coin string, profitPct float64) {
	st := e.registry.Get(coin)
	e.selector.Reward(coin, st.Active, types.SignalSell, profitPct)
}
