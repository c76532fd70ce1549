package indicators

import (
	"math"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// atrCalc computes the Average True Range with Wilder's smoothing. The seed
// is the plain average of the first N true ranges; every true range is
// non-negative, so ATR >= 0 at every bar.
type atrCalc struct {
	period    int
	prevClose float64
	hasPrev   bool
	seen      int
	atr       float64
}

func newATRCalc(period int) *atrCalc {
	return &atrCalc{period: period}
}

func (c *atrCalc) update(bar domain.PriceBar) {
	if !c.hasPrev {
		c.prevClose = bar.Close
		c.hasPrev = true
		return
	}

	// True Range is the greatest of:
	// 1. Current High - Current Low
	// 2. |Current High - Previous Close|
	// 3. |Current Low - Previous Close|
	tr1 := bar.High - bar.Low
	tr2 := math.Abs(bar.High - c.prevClose)
	tr3 := math.Abs(bar.Low - c.prevClose)
	tr := math.Max(tr1, math.Max(tr2, tr3))
	c.prevClose = bar.Close

	c.seen++
	if c.seen <= c.period {
		c.atr += tr / float64(c.period)
		return
	}
	c.atr = (c.atr*float64(c.period-1) + tr) / float64(c.period)
}

func (c *atrCalc) values() map[string]float64 {
	if c.seen < c.period {
		return nil
	}
	return map[string]float64{ComponentValue: c.atr}
}
