package strategy

import (
	"math/rand"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/types"
)

// Selector maintains a performance score and trade count per (asset,
// strategy) and picks the active strategy with epsilon-greedy exploration
// over the average realized score. The random source is injected so tests
// can fix the seed.
type Selector struct {
	cfg   *config.Config
	rng   *rand.Rand
	perf  map[string]map[Name]float64
	count map[string]map[Name]int
}

func NewSelector(cfg *config.Config, rng *rand.Rand) *Selector {
	return &Selector{
		cfg:   cfg,
		rng:   rng,
		perf:  make(map[string]map[Name]float64),
		count: make(map[string]map[Name]int),
	}
}

func (s *Selector) ensure(coin string) {
	if _, ok := s.perf[coin]; ok {
		return
	}
	perf := make(map[Name]float64, len(Names))
	count := make(map[Name]int, len(Names))
	for _, name := range Names {
		perf[name] = 0.1 // small positive seed
		count[name] = 1  // avoids division by zero
	}
	s.perf[coin] = perf
	s.count[coin] = count
}

// Select picks the strategy for this cycle: uniformly at random with
// probability epsilon, otherwise the one with the best performance per
// trade. Ties resolve to the earliest entry in Names.
func (s *Selector) Select(coin string) Name {
	s.ensure(coin)
	if s.rng.Float64() < s.cfg.Selector.Epsilon {
		return Names[s.rng.Intn(len(Names))]
	}
	best := Names[0]
	bestAvg := s.Average(coin, best)
	for _, name := range Names[1:] {
		if avg := s.Average(coin, name); avg > bestAvg {
			best, bestAvg = name, avg
		}
	}
	return best
}

// Reward applies the off-policy update for one strategy's signal: a SELL
// with a realized (non-zero) profit adds the profit percentage, a BUY adds
// the small constant reward; both count as a trade.
func (s *Selector) Reward(coin string, name Name, sig types.Signal, profitPct float64) {
	s.ensure(coin)
	switch {
	case sig == types.SignalSell && profitPct != 0:
		s.perf[coin][name] += profitPct
		s.count[coin][name]++
	case sig == types.SignalBuy:
		s.perf[coin][name] += s.cfg.Selector.BuyReward
		s.count[coin][name]++
	}
}

// Decay fades all of the asset's scores by the configured factor. Called
// once per evaluation cycle so stale performance loses influence even when
// no strategy trades.
func (s *Selector) Decay(coin string) {
	s.ensure(coin)
	for _, name := range Names {
		s.perf[coin][name] *= s.cfg.Selector.Decay
	}
}

// Average is the exploitation criterion: cumulative performance divided by
// trade count.
func (s *Selector) Average(coin string, name Name) float64 {
	s.ensure(coin)
	n := s.count[coin][name]
	if n == 0 {
		n = 1
	}
	return s.perf[coin][name] / float64(n)
}

// Score exposes the raw cumulative performance, mainly for inspection and
// tests.
func (s *Selector) Score(coin string, name Name) float64 {
	s.ensure(coin)
	return s.perf[coin][name]
}
