package indicators

import "github.com/sihu-dev/forge-labs-sub006/internal/domain"

// rsiCalc computes the Relative Strength Index using Wilder's smoothed
// average gain/loss ratio. A flat window (no gains, no losses) resolves to
// the neutral value 50 rather than dividing by zero.
type rsiCalc struct {
	period    int
	prevClose float64
	hasPrev   bool
	changes   int
	avgGain   float64
	avgLoss   float64
}

func newRSICalc(period int) *rsiCalc {
	return &rsiCalc{period: period}
}

func (c *rsiCalc) update(bar domain.PriceBar) {
	if !c.hasPrev {
		c.prevClose = bar.Close
		c.hasPrev = true
		return
	}

	change := bar.Close - c.prevClose
	c.prevClose = bar.Close
	c.changes++

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if c.changes <= c.period {
		// Initial averages accumulate plain means over the first period.
		c.avgGain += gain / float64(c.period)
		c.avgLoss += loss / float64(c.period)
		return
	}

	// Wilder's smoothing for every change after the seed window.
	c.avgGain = (c.avgGain*float64(c.period-1) + gain) / float64(c.period)
	c.avgLoss = (c.avgLoss*float64(c.period-1) + loss) / float64(c.period)
}

func (c *rsiCalc) values() map[string]float64 {
	if c.changes < c.period {
		return nil
	}

	var rsi float64
	switch {
	case c.avgLoss == 0 && c.avgGain == 0:
		rsi = 50 // Neutral if no change
	case c.avgLoss == 0:
		rsi = 100 // Max RSI if only gains
	default:
		rs := c.avgGain / c.avgLoss
		rsi = 100 - (100 / (1 + rs))
	}

	// Ensure RSI stays within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return map[string]float64{ComponentValue: rsi}
}
