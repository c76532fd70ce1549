package indicators

import "github.com/sihu-dev/forge-labs-sub006/internal/domain"

// smaCalc maintains a rolling arithmetic mean over the last N closes.
type smaCalc struct {
	period int
	window []float64
	sum    float64
}

func newSMACalc(period int) *smaCalc {
	return &smaCalc{period: period, window: make([]float64, 0, period)}
}

// push feeds one value and returns the current mean, if defined.
func (c *smaCalc) push(v float64) (float64, bool) {
	c.window = append(c.window, v)
	c.sum += v
	if len(c.window) > c.period {
		c.sum -= c.window[0]
		c.window = c.window[1:]
	}
	if len(c.window) < c.period {
		return 0, false
	}
	return c.sum / float64(c.period), true
}

func (c *smaCalc) update(bar domain.PriceBar) {
	c.push(bar.Close)
}

func (c *smaCalc) values() map[string]float64 {
	if len(c.window) < c.period {
		return nil
	}
	return map[string]float64{ComponentValue: c.sum / float64(c.period)}
}

// emaCalc computes an exponential moving average with smoothing factor
// 2/(N+1), seeded by the simple average of the first N inputs.
type emaCalc struct {
	period int
	seed   []float64
	ema    float64
	ready  bool
}

func newEMACalc(period int) *emaCalc {
	return &emaCalc{period: period, seed: make([]float64, 0, period)}
}

// push feeds one value and returns the current EMA, if defined.
func (c *emaCalc) push(v float64) (float64, bool) {
	if !c.ready {
		c.seed = append(c.seed, v)
		if len(c.seed) < c.period {
			return 0, false
		}
		var sum float64
		for _, s := range c.seed {
			sum += s
		}
		c.ema = sum / float64(c.period)
		c.ready = true
		return c.ema, true
	}

	multiplier := 2.0 / float64(c.period+1)
	c.ema = (v-c.ema)*multiplier + c.ema
	return c.ema, true
}

func (c *emaCalc) update(bar domain.PriceBar) {
	c.push(bar.Close)
}

func (c *emaCalc) values() map[string]float64 {
	if !c.ready {
		return nil
	}
	return map[string]float64{ComponentValue: c.ema}
}
