package indicators

import "github.com/sihu-dev/forge-labs-sub006/internal/domain"

// macdCalc computes the MACD line (fast EMA minus slow EMA), its signal-line
// EMA and the histogram between the two.
type macdCalc struct {
	fast   *emaCalc
	slow   *emaCalc
	signal *emaCalc

	macd      float64
	macdOK    bool
	signalVal float64
	signalOK  bool
}

func newMACDCalc(fastPeriod, slowPeriod, signalPeriod int) *macdCalc {
	return &macdCalc{
		fast:   newEMACalc(fastPeriod),
		slow:   newEMACalc(slowPeriod),
		signal: newEMACalc(signalPeriod),
	}
}

func (c *macdCalc) update(bar domain.PriceBar) {
	fastVal, fastOK := c.fast.push(bar.Close)
	slowVal, slowOK := c.slow.push(bar.Close)
	if !fastOK || !slowOK {
		return
	}

	c.macd = fastVal - slowVal
	c.macdOK = true

	// The signal line is an EMA over the MACD line itself, so it only sees
	// values once the slow EMA is defined.
	c.signalVal, c.signalOK = c.signal.push(c.macd)
}

func (c *macdCalc) values() map[string]float64 {
	if !c.macdOK {
		return nil
	}
	out := map[string]float64{ComponentValue: c.macd}
	if c.signalOK {
		out[ComponentSignal] = c.signalVal
		out[ComponentHistogram] = c.macd - c.signalVal
	}
	return out
}
