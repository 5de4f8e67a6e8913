package risk

import (
	"math"
	"math/rand"
	"testing"

	"github.com/goatlabs/goat/config"
)

func TestLevelsDefaultsOnShortHistory(t *testing.T) {
	cfg := config.Default()
	sl, tp := Levels([]float64{100, 101, 99, 102, 98}, cfg)
	if sl != cfg.Risk.DefaultStopLossPct || tp != cfg.Risk.DefaultTakeProfitPct {
		t.Fatalf("expected defaults (%v, %v), got (%v, %v)",
			cfg.Risk.DefaultStopLossPct, cfg.Risk.DefaultTakeProfitPct, sl, tp)
	}
}

func TestLevelsBounds(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		prices := make([]float64, 40)
		prices[0] = 100
		for i := 1; i < len(prices); i++ {
			// Random walk with per-run volatility between calm and wild.
			step := (rng.Float64() - 0.5) * float64(run+1) * 0.4
			prices[i] = math.Max(1, prices[i-1]+step)
		}
		sl, tp := Levels(prices, cfg)
		if sl < 0.01 || sl > 0.05 {
			t.Fatalf("run %d: stop-loss %v outside [0.01, 0.05]", run, sl)
		}
		if tp < 2.5*sl {
			t.Fatalf("run %d: take-profit %v below 2.5x stop-loss %v", run, tp, sl)
		}
	}
}

func TestLevelsTakeProfitCoversCommissions(t *testing.T) {
	cfg := config.Default()
	// Near-constant prices force volatility to ~0, so the stop floors at 1%
	// and take-profit must still cover round-trip commissions.
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	sl, tp := Levels(prices, cfg)
	if sl != 0.01 {
		t.Fatalf("expected floored stop-loss 0.01, got %v", sl)
	}
	minTP := cfg.Trading.BuyCommission + cfg.Trading.SellCommission + 0.001
	if tp < minTP {
		t.Fatalf("take-profit %v does not cover commissions %v", tp, minTP)
	}
}

func TestTradeAmountWeightsByScore(t *testing.T) {
	cfg := config.Default()
	// Full weight: 10000 * 0.05 / 100 = 5
	qty := TradeAmount(100, 10_000, 10, 10, 0, cfg)
	if qty != 5 {
		t.Fatalf("expected qty 5, got %v", qty)
	}
	// Half the total score halves the allocation.
	qty = TradeAmount(100, 10_000, 5, 10, 0, cfg)
	if qty != 2.5 {
		t.Fatalf("expected qty 2.5, got %v", qty)
	}
}

func TestTradeAmountNeverExceedsAvailableRisk(t *testing.T) {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		price := 1 + rng.Float64()*500
		pv := 1_000 + rng.Float64()*50_000
		score := rng.Float64() * 40
		total := score + rng.Float64()*100
		posValue := rng.Float64() * pv

		qty := TradeAmount(price, pv, score, total, posValue, cfg)
		available := math.Max(0, pv*cfg.Trading.MaxPortfolioRisk-posValue)
		if cost := qty * price; cost > available+1e-9 {
			t.Fatalf("cost %v exceeds available risk %v (qty=%v price=%v)", cost, available, qty, price)
		}
	}
}

func TestTradeAmountBelowMinQtyIsZero(t *testing.T) {
	cfg := config.Default()
	// Headroom exhausted: any bump to the minimum size would overspend.
	qty := TradeAmount(100, 10_000, 10, 10, 10_000*cfg.Trading.MaxPortfolioRisk, cfg)
	if qty != 0 {
		t.Fatalf("expected 0 when no risk headroom remains, got %v", qty)
	}
}

func TestTradeAmountPrecision(t *testing.T) {
	cfg := config.Default()
	qty := TradeAmount(3, 10_000, 10, 10, 0, cfg)
	// 500/3 = 166.666..., floored at 4 decimals.
	if qty != 166.6666 {
		t.Fatalf("expected 166.6666, got %v", qty)
	}
}
