package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goat_signals_generated_total",
			Help: "Signals emitted per strategy and signal type.",
		},
		[]string{"strategy", "signal"},
	)

	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goat_trades_executed_total",
			Help: "Trades committed to the ledger, by side.",
		},
		[]string{"side"},
	)

	TradesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goat_trades_rejected_total",
			Help: "Trades rejected by ledger invariants, by reason.",
		},
		[]string{"reason"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goat_orders_placed_total",
			Help: "Orders forwarded to the external placement sink.",
		},
		[]string{"side", "outcome"},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "goat_open_positions",
			Help: "Current number of open positions.",
		},
	)

	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "goat_portfolio_value",
			Help: "Cash plus marked-to-market holdings.",
		},
	)

	SharpeRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "goat_sharpe_ratio",
			Help: "Sharpe ratio over the valuation series.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsGenerated,
		TradesExecuted,
		TradesRejected,
		OrdersPlaced,
		OpenPositions,
		PortfolioValue,
		SharpeRatio,
	)
}
