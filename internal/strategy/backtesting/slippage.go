package backtesting

import (
	"math/rand"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// SlippageModel worsens simulated fill prices by a uniform random fraction.
// The random source is seeded by the caller, so two backtests with the same
// seed and inputs produce identical trades.
type SlippageModel struct {
	rng         *rand.Rand
	maxFraction float64
}

// NewSlippageModel creates a slippage model drawing from [0, maxFraction).
func NewSlippageModel(seed int64, maxFraction float64) *SlippageModel {
	if maxFraction < 0 {
		maxFraction = 0
	}
	return &SlippageModel{rng: rand.New(rand.NewSource(seed)), maxFraction: maxFraction}
}

// Fill returns the simulated fill price. Slippage always moves the price
// against the trader: entries fill away from the position, exits fill back
// toward it.
func (s *SlippageModel) Fill(price float64, side domain.Side, entry bool) float64 {
	if s == nil || s.maxFraction == 0 {
		return price
	}
	fraction := s.rng.Float64() * s.maxFraction
	direction := side.Sign()
	if !entry {
		direction = -direction
	}
	return price * (1 + direction*fraction)
}
