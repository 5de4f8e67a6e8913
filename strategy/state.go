package strategy

import (
	"math/rand"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/types"
)

// State is the per-asset mutable record: rolling price buffer, running mean,
// position bookkeeping and the currently active strategy. One exists per
// observed asset for the process lifetime.
type State struct {
	Coin         string
	Observations int
	PriceMean    float64
	Status       types.PositionStatus
	// EntryPrice, StopLoss and TakeProfit are 0 while flat.
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Active     Name

	prices []float64
	max    int
}

func (s *State) observe(price float64) {
	if s.PriceMean == 0 {
		s.PriceMean = price
	} else {
		s.PriceMean = (s.PriceMean*float64(s.Observations) + price) / float64(s.Observations+1)
	}
	s.Observations++

	s.prices = append(s.prices, price)
	if len(s.prices) > s.max {
		s.prices = s.prices[len(s.prices)-s.max:]
	}
}

// Prices returns a copy of the buffered price window, oldest first.
func (s *State) Prices() []float64 {
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}

// Registry owns one State per asset, created lazily on first access. The
// initial active strategy is drawn from the injected random source so runs
// are reproducible under a fixed seed.
type Registry struct {
	cfg    *config.Config
	rng    *rand.Rand
	states map[string]*State
}

func NewRegistry(cfg *config.Config, rng *rand.Rand) *Registry {
	return &Registry{
		cfg:    cfg,
		rng:    rng,
		states: make(map[string]*State),
	}
}

func (r *Registry) Get(coin string) *State {
	if st, ok := r.states[coin]; ok {
		return st
	}
	st := &State{
		Coin:   coin,
		Status: types.Cash,
		Active: Names[r.rng.Intn(len(Names))],
		max:    r.cfg.MaxLookback() + 10,
	}
	r.states[coin] = st
	return st
}
