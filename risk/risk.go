// Package risk derives stop/take offsets from realized volatility and turns
// a desired risk allocation into a concrete order quantity under the global
// portfolio risk cap.
package risk

import (
	"math"

	"github.com/goatlabs/goat/config"
)

// Levels computes dynamic stop-loss and take-profit percentages from the
// asset's buffered price history. Fewer than 10 samples yields the
// configured defaults.
func Levels(prices []float64, cfg *config.Config) (stopLossPct, takeProfitPct float64) {
	if len(prices) < 10 {
		return cfg.Risk.DefaultStopLossPct, cfg.Risk.DefaultTakeProfitPct
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	vol := stdDev(returns)
	if len(returns) == 0 {
		vol = 0.01
	}

	stopLossPct = math.Min(math.Max(1.5*vol, 0.01), 0.05)

	// Take-profit must at least cover the round-trip commissions plus a
	// small margin.
	minTakeProfit := cfg.Trading.BuyCommission + cfg.Trading.SellCommission + 0.001
	takeProfitPct = math.Max(2.5*stopLossPct, minTakeProfit)
	return stopLossPct, takeProfitPct
}

// TradeAmount sizes an order: the asset's score-weighted share of the fixed
// position-size fraction of portfolio value, capped by the headroom left
// under the max-portfolio-risk cap, converted to a quantity. Quantities are
// floored to the configured precision; anything below the minimum order size
// returns 0 so the cost never exceeds the available risk budget.
func TradeAmount(price, portfolioValue, score, totalScore, positionValue float64, cfg *config.Config) float64 {
	if price <= 0 {
		return 0
	}
	weight := 1.0
	if totalScore > 0 {
		weight = score / totalScore
	}
	riskAmount := portfolioValue * cfg.Trading.PositionSizePct * weight
	availableRisk := math.Max(0, portfolioValue*cfg.Trading.MaxPortfolioRisk-positionValue)
	riskAmount = math.Min(riskAmount, availableRisk)

	qty := riskAmount / price
	pow := math.Pow(10, float64(cfg.Trading.QuantityPrecision))
	qty = math.Floor(qty*pow) / pow
	if qty < cfg.Trading.MinQty {
		return 0
	}
	return qty
}

// stdDev is the population standard deviation, matching how volatility and
// Sharpe inputs are computed everywhere else in the engine.
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}
