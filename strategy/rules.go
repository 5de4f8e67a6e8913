package strategy

import (
	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/indicator"
	"github.com/goatlabs/goat/types"
)

// Name identifies one of the competing signal strategies.
type Name string

const (
	MeanReversion  Name = "mean_reversion"
	MACDCrossover  Name = "macd_crossover"
	RSIStochastic  Name = "rsi_stochastic"
	BollingerBands Name = "bollinger_bands"
	Combined       Name = "combined"
)

// Names lists every strategy in a fixed order; selection ties break toward
// the earlier entry so runs are deterministic under a fixed seed.
var Names = []Name{MeanReversion, MACDCrossover, RSIStochastic, BollingerBands, Combined}

// sellMargin is the minimum gain over the entry price before mean reversion
// takes profit on its own signal.
const sellMargin = 0.003

// A rule is a pure decision: it never mutates state. Position transitions
// are applied by the ensemble for the active strategy only.
type rule func(st *State, price float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal

var rules = map[Name]rule{
	MeanReversion:  meanReversionRule,
	MACDCrossover:  macdCrossoverRule,
	RSIStochastic:  rsiStochasticRule,
	BollingerBands: bollingerBandsRule,
	Combined:       combinedRule,
}

// needsIndicators reports whether a strategy is gated on indicator
// availability. Mean reversion only uses the running mean.
func needsIndicators(name Name) bool { return name != MeanReversion }

// exitCheck enforces stop-loss and take-profit ahead of any entry/exit
// logic while a position is open.
func exitCheck(st *State, price float64) (types.Signal, bool) {
	if st.Status != types.Holding {
		return types.SignalHold, false
	}
	if st.StopLoss > 0 && price <= st.StopLoss {
		return types.SignalSell, true
	}
	if st.TakeProfit > 0 && price >= st.TakeProfit {
		return types.SignalSell, true
	}
	return types.SignalHold, false
}

// evaluate runs the shared protocol for one strategy: warm-up gate, exit
// precheck, indicator gate, then the strategy-specific rule.
func evaluate(name Name, st *State, price float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal {
	if st.Observations <= cfg.Trading.LookbackPeriod {
		return types.SignalHold
	}
	if sig, ok := exitCheck(st, price); ok {
		return sig
	}
	if needsIndicators(name) && snap == nil {
		return types.SignalHold
	}
	return rules[name](st, price, snap, cfg)
}

func meanReversionRule(st *State, price float64, _ *indicator.Snapshot, _ *config.Config) types.Signal {
	switch {
	case st.Status == types.Cash && price < st.PriceMean:
		return types.SignalBuy
	case st.Status == types.Holding && price > st.PriceMean && price > st.EntryPrice*(1+sellMargin):
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

func macdCrossoverRule(st *State, _ float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal {
	switch {
	case st.Status == types.Cash && snap.MACD > snap.MACDSignal && snap.RSI < cfg.Indicators.RSIOverbought:
		return types.SignalBuy
	case st.Status == types.Holding && snap.MACD < snap.MACDSignal && snap.RSI > cfg.Indicators.RSIOversold:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

func rsiStochasticRule(st *State, _ float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal {
	switch {
	case st.Status == types.Cash && snap.RSI < cfg.Indicators.RSIOversold &&
		snap.StochK < 20 && snap.StochK > snap.StochD:
		return types.SignalBuy
	case st.Status == types.Holding && snap.RSI > cfg.Indicators.RSIOverbought &&
		snap.StochK > 80 && snap.StochK < snap.StochD:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

func bollingerBandsRule(st *State, price float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal {
	switch {
	case st.Status == types.Cash && price < snap.BBLower && snap.RSI < cfg.Indicators.RSIOversold:
		return types.SignalBuy
	case st.Status == types.Holding && price > snap.BBUpper && snap.RSI > cfg.Indicators.RSIOverbought:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// combinedRule takes a majority vote of the MACD, RSI/stochastic and
// Bollinger rules: two of three must agree.
func combinedRule(st *State, price float64, snap *indicator.Snapshot, cfg *config.Config) types.Signal {
	votes := []types.Signal{
		macdCrossoverRule(st, price, snap, cfg),
		rsiStochasticRule(st, price, snap, cfg),
		bollingerBandsRule(st, price, snap, cfg),
	}
	buys, sells := 0, 0
	for _, v := range votes {
		switch v {
		case types.SignalBuy:
			buys++
		case types.SignalSell:
			sells++
		}
	}
	switch {
	case st.Status == types.Cash && buys >= 2:
		return types.SignalBuy
	case st.Status == types.Holding && sells >= 2:
		return types.SignalSell
	default:
		return types.SignalHold
	}
}
