package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the trading engine. Defaults reproduce the
// parameters the engine was tuned with; a YAML file and a handful of
// environment variables can override them.
type Config struct {
	Exchange struct {
		BaseURL          string `yaml:"base_url"`
		WSURL            string `yaml:"ws_url"`
		FetchIntervalSec int    `yaml:"fetch_interval_sec"`
		// LiveOrders forwards committed orders to the exchange instead of
		// the logging paper placer.
		LiveOrders bool `yaml:"live_orders"`
	} `yaml:"exchange"`

	Trading struct {
		BuyCommission     float64 `yaml:"buy_commission"`
		SellCommission    float64 `yaml:"sell_commission"`
		PositionSizePct   float64 `yaml:"position_size_pct"`
		MaxPortfolioRisk  float64 `yaml:"max_portfolio_risk"`
		MaxOpenTrades     int     `yaml:"max_open_trades"`
		LookbackPeriod    int     `yaml:"lookback_period"`
		MinQty            float64 `yaml:"min_qty"`
		QuantityPrecision int     `yaml:"quantity_precision"`
	} `yaml:"trading"`

	Indicators struct {
		RSIPeriod     int     `yaml:"rsi_period"`
		RSIOverbought float64 `yaml:"rsi_overbought"`
		RSIOversold   float64 `yaml:"rsi_oversold"`
		MACDFast      int     `yaml:"macd_fast"`
		MACDSlow      int     `yaml:"macd_slow"`
		MACDSignal    int     `yaml:"macd_signal"`
		BBPeriod      int     `yaml:"bb_period"`
		BBStdDev      float64 `yaml:"bb_std_dev"`
		StochK        int     `yaml:"stoch_k"`
		StochD        int     `yaml:"stoch_d"`
		StochSlowD    int     `yaml:"stoch_slow_d"`
	} `yaml:"indicators"`

	Selector struct {
		Epsilon   float64 `yaml:"epsilon"`
		Decay     float64 `yaml:"decay"`
		BuyReward float64 `yaml:"buy_reward"`
	} `yaml:"selector"`

	Risk struct {
		DefaultStopLossPct   float64 `yaml:"default_stop_loss_pct"`
		DefaultTakeProfitPct float64 `yaml:"default_take_profit_pct"`
		RiskFreeRate         float64 `yaml:"risk_free_rate"`
	} `yaml:"risk"`

	Scoring struct {
		MinScore       float64 `yaml:"min_score"`
		MinProfitScore float64 `yaml:"min_profit_score"`
		RecentWindow   int     `yaml:"recent_window"`
	} `yaml:"scoring"`

	Database struct {
		SQLitePath      string `yaml:"sqlite_path"`
		MaxPriceRecords int    `yaml:"max_price_records"`
		MaxTradeRecords int    `yaml:"max_trade_records"`
	} `yaml:"database"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Seed int64 `yaml:"seed"`
}

// Default returns a fully-populated configuration.
func Default() *Config {
	cfg := &Config{}

	cfg.Exchange.BaseURL = "https://mock-api.roostoo.com"
	cfg.Exchange.FetchIntervalSec = 20

	cfg.Trading.BuyCommission = 0.001
	cfg.Trading.SellCommission = 0.001
	cfg.Trading.PositionSizePct = 0.05
	cfg.Trading.MaxPortfolioRisk = 0.5
	cfg.Trading.MaxOpenTrades = 5
	cfg.Trading.LookbackPeriod = 20
	cfg.Trading.MinQty = 0.001
	cfg.Trading.QuantityPrecision = 4

	cfg.Indicators.RSIPeriod = 10
	cfg.Indicators.RSIOverbought = 70
	cfg.Indicators.RSIOversold = 30
	cfg.Indicators.MACDFast = 8
	cfg.Indicators.MACDSlow = 21
	cfg.Indicators.MACDSignal = 9
	cfg.Indicators.BBPeriod = 15
	cfg.Indicators.BBStdDev = 2
	cfg.Indicators.StochK = 10
	cfg.Indicators.StochD = 3
	cfg.Indicators.StochSlowD = 3

	cfg.Selector.Epsilon = 0.3
	cfg.Selector.Decay = 0.99
	cfg.Selector.BuyReward = 0.1

	cfg.Risk.DefaultStopLossPct = 0.01
	cfg.Risk.DefaultTakeProfitPct = 0.03
	cfg.Risk.RiskFreeRate = 0.001

	cfg.Scoring.MinScore = 0.1
	cfg.Scoring.MinProfitScore = 10.0
	cfg.Scoring.RecentWindow = 100

	cfg.Database.SQLitePath = "data/goat.db"
	cfg.Database.MaxPriceRecords = 10_000
	cfg.Database.MaxTradeRecords = 1_000

	cfg.Metrics.Addr = ":9108"

	return cfg
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("GOAT_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("GOAT_WS_URL"); v != "" {
		cfg.Exchange.WSURL = v
	}
	if v := os.Getenv("GOAT_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("GOAT_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("GOAT_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}

	return cfg, nil
}

// MaxLookback is the longest indicator lookback; the per-asset price buffer
// holds MaxLookback+10 samples and indicators need MaxLookback+1.
func (c *Config) MaxLookback() int {
	max := c.Indicators.RSIPeriod
	for _, p := range []int{c.Indicators.MACDSlow, c.Indicators.BBPeriod, c.Indicators.StochK} {
		if p > max {
			max = p
		}
	}
	return max
}

// Validate checks that all numeric fields are within sensible bounds.
// It returns the first encountered error, allowing the caller to surface a
// clear configuration problem before any trading starts.
func (c *Config) Validate() error {
	if c.Exchange.FetchIntervalSec <= 0 {
		return errors.New("exchange.fetch_interval_sec must be positive")
	}
	if c.Trading.BuyCommission < 0 || c.Trading.SellCommission < 0 {
		return errors.New("commissions cannot be negative")
	}
	if c.Trading.PositionSizePct <= 0 || c.Trading.PositionSizePct > 1 {
		return fmt.Errorf("trading.position_size_pct (%f) must be >0 and <=1", c.Trading.PositionSizePct)
	}
	if c.Trading.MaxPortfolioRisk <= 0 || c.Trading.MaxPortfolioRisk > 1 {
		return fmt.Errorf("trading.max_portfolio_risk (%f) must be >0 and <=1", c.Trading.MaxPortfolioRisk)
	}
	if c.Trading.MaxOpenTrades <= 0 {
		return errors.New("trading.max_open_trades must be positive")
	}
	if c.Trading.LookbackPeriod <= 0 {
		return errors.New("trading.lookback_period must be positive")
	}
	if c.Trading.MinQty < 0 {
		return errors.New("trading.min_qty cannot be negative")
	}
	if c.Trading.QuantityPrecision < 0 {
		return errors.New("trading.quantity_precision cannot be negative")
	}
	if c.Indicators.RSIOverbought == c.Indicators.RSIOversold {
		return errors.New("rsi_overbought and rsi_oversold cannot be equal")
	}
	for name, p := range map[string]int{
		"rsi_period":  c.Indicators.RSIPeriod,
		"macd_fast":   c.Indicators.MACDFast,
		"macd_slow":   c.Indicators.MACDSlow,
		"macd_signal": c.Indicators.MACDSignal,
		"bb_period":   c.Indicators.BBPeriod,
		"stoch_k":     c.Indicators.StochK,
		"stoch_d":     c.Indicators.StochD,
	} {
		if p <= 0 {
			return fmt.Errorf("indicators.%s must be positive", name)
		}
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return errors.New("indicators.macd_fast must be below macd_slow")
	}
	if c.Selector.Epsilon < 0 || c.Selector.Epsilon > 1 {
		return fmt.Errorf("selector.epsilon (%f) must be between 0 and 1", c.Selector.Epsilon)
	}
	if c.Selector.Decay <= 0 || c.Selector.Decay >= 1 {
		return fmt.Errorf("selector.decay (%f) must be in (0,1)", c.Selector.Decay)
	}
	if c.Risk.DefaultStopLossPct <= 0 || c.Risk.DefaultStopLossPct > 0.2 {
		return fmt.Errorf("risk.default_stop_loss_pct (%f) out of range", c.Risk.DefaultStopLossPct)
	}
	if c.Risk.DefaultTakeProfitPct <= 0 || c.Risk.DefaultTakeProfitPct > 5 {
		return fmt.Errorf("risk.default_take_profit_pct (%f) out of range", c.Risk.DefaultTakeProfitPct)
	}
	if c.Scoring.RecentWindow <= 0 {
		return errors.New("scoring.recent_window must be positive")
	}
	return nil
}
