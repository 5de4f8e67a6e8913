package scorer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/history"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/types"
)

type stubCandles struct {
	closes []float64
	err    error
}

func (s *stubCandles) Closes(_ context.Context, _ string) ([]float64, error) {
	return s.closes, s.err
}

func newScorer(t *testing.T, candles CandleSource) (*Scorer, *history.MemoryStore) {
	t.Helper()
	cfg := config.Default()
	store := history.NewMemoryStore(1000, 100)
	return New(cfg, logger.Nop(), store, candles), store
}

func feedPrices(t *testing.T, store *history.MemoryStore, coin string, prices []float64) {
	t.Helper()
	ts := time.Now()
	for i, p := range prices {
		if err := store.AppendPrice(coin, ts.Add(time.Duration(i)*time.Second), p); err != nil {
			t.Fatalf("append price: %v", err)
		}
	}
}

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func TestScoreUsesVolatilityFallbackOnShortHistory(t *testing.T) {
	s, store := newScorer(t, nil)
	feedPrices(t, store, "BTC", []float64{100, 101, 99, 102, 98})

	// Fewer than 10 prices, no trades, no candle source:
	// 0.1 + 0.2 + 0.1.
	approx(t, s.Score(context.Background(), "BTC", "BTC/USD"), 0.4, 1e-9, "score")
}

func TestScoreShortTermVolatilityComponent(t *testing.T) {
	s, store := newScorer(t, nil)
	prices := []float64{100, 100, 100, 100, 100, 110, 110, 110, 110, 110}
	feedPrices(t, store, "BTC", prices)

	// stdev 5 around mean 105, scaled by 50, plus the no-trades and
	// no-long-term defaults.
	want := 5.0/105.0*50 + 0.2 + 0.1
	approx(t, s.Score(context.Background(), "BTC", "BTC/USD"), want, 1e-9, "score")
}

func TestScoreTradeProfitability(t *testing.T) {
	s, store := newScorer(t, nil)
	for _, p := range []float64{2, -1} {
		profit := p
		err := store.AppendTrade("ETH", types.Trade{Action: types.Sell, Coin: "ETH", ProfitPct: &profit})
		if err != nil {
			t.Fatalf("append trade: %v", err)
		}
	}

	// avg profit 0.5 scaled by 10, win rate 0.5 scaled by 20, plus the
	// short-history and no-long-term defaults.
	want := 0.5*10 + 0.5*20 + 0.1 + 0.1
	approx(t, s.Score(context.Background(), "ETH", "ETH/USD"), want, 1e-9, "score")
}

func TestScoreWinRateDefaultsWithoutProfitRecords(t *testing.T) {
	s, store := newScorer(t, nil)
	err := store.AppendTrade("ETH", types.Trade{Action: types.Buy, Coin: "ETH"})
	if err != nil {
		t.Fatalf("append trade: %v", err)
	}

	// Buy-only history carries no profit records; win rate defaults to 0.5.
	want := 0.0*10 + 0.5*20 + 0.1 + 0.1
	approx(t, s.Score(context.Background(), "ETH", "ETH/USD"), want, 1e-9, "score")
}

func TestScoreLongTermFromCandleSource(t *testing.T) {
	closes := make([]float64, 252)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1.001
	}
	s, _ := newScorer(t, &stubCandles{closes: closes})

	annReturn := (math.Pow(1.001, 252) - 1) * 100
	want := 0.1 + 0.2 + annReturn*0.5 + 10 // steady growth keeps vol ~0, MA50 above MA200
	approx(t, s.Score(context.Background(), "SOL", "SOL/USD"), want, 1e-6, "score")
}

func TestScoreCandleFailureFallsBack(t *testing.T) {
	s, _ := newScorer(t, &stubCandles{err: errors.New("rate limited")})
	approx(t, s.Score(context.Background(), "SOL", "SOL/USD"), 0.4, 1e-9, "score")
}

func TestHistoricalMetricsShortSeries(t *testing.T) {
	annReturn, annVol, maSignal := historicalMetrics([]float64{100, 101, 102})
	if annReturn != 0 || annVol != 0 || maSignal != 0 {
		t.Fatalf("short series metrics = %v %v %v, want zeros", annReturn, annVol, maSignal)
	}
}

func TestScoreFloor(t *testing.T) {
	s, store := newScorer(t, &stubCandles{closes: make([]float64, 0)})
	// Losing trades drag the raw score negative; the floor holds it at 0.1.
	for i := 0; i < 4; i++ {
		profit := -5.0
		if err := store.AppendTrade("DOGE", types.Trade{Action: types.Sell, Coin: "DOGE", ProfitPct: &profit}); err != nil {
			t.Fatalf("append trade: %v", err)
		}
	}
	approx(t, s.Score(context.Background(), "DOGE", "DOGE/USD"), 0.1, 1e-9, "score")
}

func TestThresholdDefaultsToMinProfitScore(t *testing.T) {
	s, _ := newScorer(t, nil)
	approx(t, s.Threshold(), 10.0, 1e-9, "threshold")
}

func TestThresholdPercentileInterpolation(t *testing.T) {
	s, _ := newScorer(t, nil)
	s.recent = []float64{1, 2, 3, 4}
	// rank 2.25 interpolates between the third and fourth values.
	approx(t, s.Threshold(), 3.25, 1e-9, "threshold")
}

func TestRecentWindowBounded(t *testing.T) {
	s, _ := newScorer(t, nil)
	s.cfg.Scoring.RecentWindow = 3
	for i := 0; i < 10; i++ {
		s.Score(context.Background(), "BTC", "BTC/USD")
	}
	if len(s.recent) != 3 {
		t.Fatalf("recent window = %d, want 3", len(s.recent))
	}
}

func TestSelectGatesOnThreshold(t *testing.T) {
	s, store := newScorer(t, nil)
	// Strongly profitable history lifts ETH past the minimum profit score;
	// BTC stays near the defaults.
	for i := 0; i < 3; i++ {
		profit := 3.0
		if err := store.AppendTrade("ETH", types.Trade{Action: types.Sell, Coin: "ETH", ProfitPct: &profit}); err != nil {
			t.Fatalf("append trade: %v", err)
		}
	}
	quotes := []types.Quote{
		{Coin: "BTC", Pair: "BTC/USD", Price: 50000},
		{Coin: "ETH", Pair: "ETH/USD", Price: 3000},
	}

	selected := s.Select(context.Background(), quotes)
	if len(selected) != 1 {
		t.Fatalf("selected %d assets, want 1", len(selected))
	}
	if selected[0].Quote.Coin != "ETH" {
		t.Fatalf("selected %s, want ETH", selected[0].Quote.Coin)
	}
	// 3*10 + 1.0*20 + 0.1 + 0.1
	approx(t, selected[0].Score, 50.2, 1e-9, "score")
}

func TestSelectFallsBackToBestAsset(t *testing.T) {
	s, _ := newScorer(t, nil)
	quotes := []types.Quote{
		{Coin: "BTC", Pair: "BTC/USD", Price: 50000},
		{Coin: "ETH", Pair: "ETH/USD", Price: 3000},
	}

	selected := s.Select(context.Background(), quotes)
	if len(selected) != 1 {
		t.Fatalf("selected %d assets, want 1 fallback", len(selected))
	}
}
