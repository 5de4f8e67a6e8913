// Package indicator computes the fixed window of technical indicators the
// strategies consume, from a rolling close-price series.
package indicator

import (
	talib "github.com/markcheno/go-talib"

	"github.com/goatlabs/goat/config"
)

// Snapshot is one cycle's indicator values for a single asset.
type Snapshot struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	StochK     float64
	StochD     float64
}

type Calculator struct {
	cfg *config.Config
	min int
}

func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{cfg: cfg, min: cfg.MaxLookback() + 1}
}

// MinSamples is the shortest price series Compute accepts.
func (c *Calculator) MinSamples() int { return c.min }

// Compute returns the indicator snapshot for the supplied close series, or
// (nil, false) when the series is shorter than the minimum required span.
// Stochastic uses the close series for high and low as well; only last
// prices are available, not OHLC bars.
func (c *Calculator) Compute(prices []float64) (*Snapshot, bool) {
	if len(prices) < c.min {
		return nil, false
	}
	ind := c.cfg.Indicators

	rsi := talib.Rsi(prices, ind.RSIPeriod)
	macd, macdSignal, _ := talib.Macd(prices, ind.MACDFast, ind.MACDSlow, ind.MACDSignal)
	upper, middle, lower := talib.BBands(prices, ind.BBPeriod, ind.BBStdDev, ind.BBStdDev, talib.SMA)
	stochK, stochD := talib.Stoch(prices, prices, prices, ind.StochK, ind.StochD, talib.SMA, ind.StochSlowD, talib.SMA)

	last := len(prices) - 1
	return &Snapshot{
		RSI:        rsi[last],
		MACD:       macd[last],
		MACDSignal: macdSignal[last],
		BBUpper:    upper[last],
		BBMiddle:   middle[last],
		BBLower:    lower[last],
		StochK:     stochK[last],
		StochD:     stochD[last],
	}, true
}
