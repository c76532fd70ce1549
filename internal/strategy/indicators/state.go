package indicators

import (
	"fmt"
	"sort"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// State is the caller-owned incremental indicator cache for one
// (symbol, timeframe) series. Each Append advances every named indicator by
// exactly one bar, so live monitoring and backtest loops pay O(indicators)
// per bar instead of recomputing whole windows. State is not safe for
// concurrent use; each series has a single logical owner.
type State struct {
	specs   map[string]domain.IndicatorSpec
	calcs   map[string]calculator
	lastBar domain.PriceBar
	bars    int
}

// NewState builds an incremental state for the named indicator specs.
func NewState(specs map[string]domain.IndicatorSpec) (*State, error) {
	st := &State{
		specs: make(map[string]domain.IndicatorSpec, len(specs)),
		calcs: make(map[string]calculator, len(specs)),
	}
	// Deterministic validation order keeps error messages stable.
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := specs[name]
		if err := ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("indicator %q: %w", name, err)
		}
		st.specs[name] = spec
		st.calcs[name] = newCalculator(spec)
	}
	return st, nil
}

// Append consumes the next bar in time order.
func (st *State) Append(bar domain.PriceBar) {
	for _, calc := range st.calcs {
		calc.update(bar)
	}
	st.lastBar = bar
	st.bars++
}

// BarCount returns the number of bars consumed so far.
func (st *State) BarCount() int { return st.bars }

// Value returns the latest value of one indicator component. Use
// ComponentValue for single-output indicators.
func (st *State) Value(name, component string) (float64, bool) {
	calc, ok := st.calcs[name]
	if !ok {
		return 0, false
	}
	v, ok := calc.values()[component]
	return v, ok
}

// Ready reports whether every component of every named indicator has left
// its warm-up period.
func (st *State) Ready() bool {
	for name, spec := range st.specs {
		vals := st.calcs[name].values()
		for _, component := range componentNames(spec.Kind) {
			if _, ok := vals[component]; !ok {
				return false
			}
		}
	}
	return true
}

// Context snapshots the latest bar fields and indicator values into the flat
// field map consumed by condition evaluation. Single-output indicators are
// published under their plain name; multi-output ones under
// "name.component" (MACD's main line additionally under its plain name).
func (st *State) Context() map[string]float64 {
	if st.bars == 0 {
		return map[string]float64{}
	}

	ctx := map[string]float64{
		"open":   st.lastBar.Open,
		"high":   st.lastBar.High,
		"low":    st.lastBar.Low,
		"close":  st.lastBar.Close,
		"volume": st.lastBar.Volume,
	}
	for name, calc := range st.calcs {
		for component, v := range calc.values() {
			if component == ComponentValue {
				ctx[name] = v
				continue
			}
			ctx[name+"."+component] = v
		}
	}
	return ctx
}
