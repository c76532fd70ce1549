package indicators

import (
	"math"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// bollingerCalc computes Bollinger Bands: a middle SMA with upper and lower
// bands at multiplier times the rolling standard deviation. Since the
// deviation is never negative, upper >= middle >= lower holds at every bar.
type bollingerCalc struct {
	period     int
	multiplier float64
	window     []float64
	sum        float64
	sumSquares float64
}

func newBollingerCalc(period int, multiplier float64) *bollingerCalc {
	return &bollingerCalc{
		period:     period,
		multiplier: multiplier,
		window:     make([]float64, 0, period),
	}
}

func (c *bollingerCalc) update(bar domain.PriceBar) {
	v := bar.Close
	c.window = append(c.window, v)
	c.sum += v
	c.sumSquares += v * v
	if len(c.window) > c.period {
		old := c.window[0]
		c.sum -= old
		c.sumSquares -= old * old
		c.window = c.window[1:]
	}
}

func (c *bollingerCalc) values() map[string]float64 {
	if len(c.window) < c.period {
		return nil
	}

	n := float64(c.period)
	mean := c.sum / n
	variance := c.sumSquares/n - mean*mean
	if variance < 0 {
		// Rounding in the running sums can push a flat window fractionally
		// below zero.
		variance = 0
	}
	deviation := math.Sqrt(variance)

	return map[string]float64{
		ComponentMiddle: mean,
		ComponentUpper:  mean + c.multiplier*deviation,
		ComponentLower:  mean - c.multiplier*deviation,
	}
}
