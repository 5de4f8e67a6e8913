// Package scorer ranks candidate assets by blending short-term volatility,
// historical trade profitability and long-term market statistics, and gates
// trading behind a dynamically adjusted percentile threshold.
package scorer

import (
	"context"
	"math"
	"sort"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/history"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/types"
)

// CandleSource supplies a long-term close series for an asset pair.
// Implementations may fail or rate-limit; the scorer falls back to local
// history or a flat default.
type CandleSource interface {
	Closes(ctx context.Context, pair string) ([]float64, error)
}

// Scored pairs a quote with its score for one selection cycle.
type Scored struct {
	Quote types.Quote
	Score float64
}

type Scorer struct {
	cfg     *config.Config
	log     logger.Logger
	store   history.Store
	candles CandleSource // optional
	recent  []float64
}

func New(cfg *config.Config, log logger.Logger, store history.Store, candles CandleSource) *Scorer {
	return &Scorer{cfg: cfg, log: log, store: store, candles: candles}
}

// Score computes the asset's blended score and folds it into the rolling
// window behind the dynamic threshold.
func (s *Scorer) Score(ctx context.Context, coin, pair string) float64 {
	score := 0.0

	prices, _ := s.store.Prices(coin, 0)
	if len(prices) >= 10 {
		if m := mean(prices); m != 0 {
			score += stdDev(prices) / m * 50
		}
	} else {
		score += 0.1
	}

	trades, _ := s.store.Trades(coin, 0)
	if len(trades) > 0 {
		var profits []float64
		for _, tr := range trades {
			if tr.ProfitPct != nil {
				profits = append(profits, *tr.ProfitPct)
			}
		}
		avgProfit := 0.0
		winRate := 0.5
		if len(profits) > 0 {
			avgProfit = mean(profits)
			wins := 0
			for _, p := range profits {
				if p > 0 {
					wins++
				}
			}
			winRate = float64(wins) / float64(len(profits))
		}
		score += avgProfit*10 + winRate*20
	} else {
		score += 0.2
	}

	score += s.longTermComponent(ctx, coin, pair, prices)

	score = math.Max(score, s.cfg.Scoring.MinScore)

	s.recent = append(s.recent, score)
	if len(s.recent) > s.cfg.Scoring.RecentWindow {
		s.recent = s.recent[len(s.recent)-s.cfg.Scoring.RecentWindow:]
	}
	return score
}

// longTermComponent blends annualized return, annualized volatility and the
// MA50/MA200 trend signal. Local price history wins when long enough;
// otherwise the external candle source is consulted.
func (s *Scorer) longTermComponent(ctx context.Context, coin, pair string, local []float64) float64 {
	closes := local
	if len(closes) < 50 {
		if s.candles == nil {
			return 0.1
		}
		external, err := s.candles.Closes(ctx, pair)
		if err != nil || len(external) == 0 {
			if err != nil {
				s.log.Warn("historical_data_unavailable",
					logger.String("coin", coin),
					logger.Err(err),
				)
			}
			return 0.1
		}
		closes = external
	}
	annReturn, annVol, maSignal := historicalMetrics(closes)
	return annReturn*0.5 + annVol*0.2 + maSignal*10
}

// historicalMetrics returns (annualized return %, annualized volatility %,
// trend signal). Series shorter than 50 points yield zeros.
func historicalMetrics(closes []float64) (annReturn, annVol, maSignal float64) {
	if len(closes) < 50 {
		return 0, 0, 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	if len(returns) == 0 {
		return 0, 0, 0
	}
	annReturn = (math.Pow(1+mean(returns), 252) - 1) * 100
	annVol = stdDev(returns) * math.Sqrt(252) * 100

	ma50 := mean(closes[len(closes)-50:])
	window := 200
	if window > len(closes) {
		window = len(closes)
	}
	ma200 := mean(closes[len(closes)-window:])
	if ma50 > ma200 {
		maSignal = 1
	}
	return annReturn, annVol, maSignal
}

// Threshold is the dynamic selection bar: the 75th percentile of recent
// scores, or the minimum profit score before any history accumulates.
func (s *Scorer) Threshold() float64 {
	if len(s.recent) == 0 {
		return s.cfg.Scoring.MinProfitScore
	}
	return percentile(s.recent, 75)
}

// Select scores every quoted asset and returns those clearing
// max(minimum profit score, dynamic threshold), best first. When nothing
// clears the bar the single best asset is returned so the engine never runs
// with zero candidates.
func (s *Scorer) Select(ctx context.Context, quotes []types.Quote) []Scored {
	if len(quotes) == 0 {
		return nil
	}
	scored := make([]Scored, 0, len(quotes))
	for _, q := range quotes {
		scored = append(scored, Scored{Quote: q, Score: s.Score(ctx, q.Coin, q.Pair)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	bar := math.Max(s.cfg.Scoring.MinProfitScore, s.Threshold())
	selected := make([]Scored, 0, len(scored))
	for _, sc := range scored {
		if sc.Score >= bar {
			selected = append(selected, sc)
		}
	}
	if len(selected) == 0 {
		selected = scored[:1]
	}

	s.log.Info("assets_selected",
		logger.Int("candidates", len(scored)),
		logger.Int("selected", len(selected)),
		logger.Float64("threshold", bar),
	)
	return selected
}

// percentile computes the q-th percentile with linear interpolation between
// closest ranks.
func percentile(xs []float64, q float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}
