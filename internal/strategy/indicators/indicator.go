package indicators

import (
	"fmt"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
)

// Component names for multi-output indicators. Single-output indicators
// publish under ComponentValue.
const (
	ComponentValue     = "value"
	ComponentSignal    = "signal"
	ComponentHistogram = "histogram"
	ComponentUpper     = "upper"
	ComponentMiddle    = "middle"
	ComponentLower     = "lower"
)

// Series is one output stream of an indicator, aligned with the input bars.
// Positions before the warm-up offset hold no defined value.
type Series struct {
	values []float64
	warmup int
}

// Len returns the number of positions in the series, defined or not.
func (s Series) Len() int { return len(s.values) }

// Warmup returns the first position holding a defined value.
func (s Series) Warmup() int { return s.warmup }

// At returns the value at position i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	if i < s.warmup || i >= len(s.values) {
		return 0, false
	}
	return s.values[i], true
}

// Last returns the most recent value and whether it is defined.
func (s Series) Last() (float64, bool) {
	return s.At(len(s.values) - 1)
}

// Output holds every component series computed for one indicator spec.
type Output struct {
	Spec   domain.IndicatorSpec
	series map[string]Series
}

// Series returns the component series by name.
func (o Output) Series(component string) (Series, bool) {
	s, ok := o.series[component]
	return s, ok
}

// Value returns the component value at position i and whether it is defined.
func (o Output) Value(component string, i int) (float64, bool) {
	s, ok := o.series[component]
	if !ok {
		return 0, false
	}
	return s.At(i)
}

// ValidateSpec checks an indicator spec for structural errors. A spec that
// fails validation is a programmer error, not a data condition.
func ValidateSpec(spec domain.IndicatorSpec) error {
	switch spec.Kind {
	case domain.IndicatorSMA, domain.IndicatorEMA, domain.IndicatorRSI, domain.IndicatorATR:
		if spec.Period <= 0 {
			return fmt.Errorf("%w: %s period must be positive, got %d", ports.ErrInvalidSpec, spec.Kind, spec.Period)
		}
	case domain.IndicatorBollinger:
		if spec.Period <= 1 {
			return fmt.Errorf("%w: BOLLINGER period must be greater than 1, got %d", ports.ErrInvalidSpec, spec.Period)
		}
		if spec.Multiplier <= 0 {
			return fmt.Errorf("%w: BOLLINGER multiplier must be positive, got %f", ports.ErrInvalidSpec, spec.Multiplier)
		}
	case domain.IndicatorMACD:
		if spec.FastPeriod <= 0 || spec.SlowPeriod <= 0 || spec.SignalPeriod <= 0 {
			return fmt.Errorf("%w: MACD periods must be positive, got fast=%d slow=%d signal=%d",
				ports.ErrInvalidSpec, spec.FastPeriod, spec.SlowPeriod, spec.SignalPeriod)
		}
		if spec.FastPeriod >= spec.SlowPeriod {
			return fmt.Errorf("%w: MACD fast period %d must be less than slow period %d",
				ports.ErrInvalidSpec, spec.FastPeriod, spec.SlowPeriod)
		}
	default:
		return fmt.Errorf("%w: unsupported indicator kind %q", ports.ErrInvalidSpec, spec.Kind)
	}
	return nil
}

// calculator is the incremental core shared by batch computation and the
// live State. Each update consumes exactly one bar; values observes only
// bars seen so far, which structurally rules out lookahead.
type calculator interface {
	// update consumes the next bar in time order.
	update(bar domain.PriceBar)
	// values returns the current value per component; a missing key means
	// the component is still warming up.
	values() map[string]float64
}

// newCalculator builds the incremental calculator for a validated spec.
func newCalculator(spec domain.IndicatorSpec) calculator {
	switch spec.Kind {
	case domain.IndicatorSMA:
		return newSMACalc(spec.Period)
	case domain.IndicatorEMA:
		return newEMACalc(spec.Period)
	case domain.IndicatorRSI:
		return newRSICalc(spec.Period)
	case domain.IndicatorMACD:
		return newMACDCalc(spec.FastPeriod, spec.SlowPeriod, spec.SignalPeriod)
	case domain.IndicatorBollinger:
		return newBollingerCalc(spec.Period, spec.Multiplier)
	case domain.IndicatorATR:
		return newATRCalc(spec.Period)
	default:
		return nil
	}
}

// Compute runs a left-to-right fold over the bars and returns the full
// component series for the spec. Values at positions before spec.Warmup()
// are undefined rather than zero; an input shorter than the warm-up length
// simply yields series with no defined positions.
func Compute(bars []domain.PriceBar, spec domain.IndicatorSpec) (Output, error) {
	if err := ValidateSpec(spec); err != nil {
		return Output{}, err
	}

	calc := newCalculator(spec)
	values := make(map[string][]float64)
	first := make(map[string]int)

	for i, bar := range bars {
		calc.update(bar)
		for name, v := range calc.values() {
			col, ok := values[name]
			if !ok {
				col = make([]float64, len(bars))
				values[name] = col
				first[name] = i
			}
			col[i] = v
		}
	}

	series := make(map[string]Series, len(values))
	for name, col := range values {
		series[name] = Series{values: col, warmup: first[name]}
	}
	// Components that never produced a value still get an all-undefined
	// series so lookups report "warming up" rather than "unknown component".
	for _, name := range componentNames(spec.Kind) {
		if _, ok := series[name]; !ok {
			series[name] = Series{values: make([]float64, len(bars)), warmup: len(bars)}
		}
	}
	return Output{Spec: spec, series: series}, nil
}

// componentNames lists the components an indicator kind publishes.
func componentNames(kind domain.IndicatorKind) []string {
	switch kind {
	case domain.IndicatorMACD:
		return []string{ComponentValue, ComponentSignal, ComponentHistogram}
	case domain.IndicatorBollinger:
		return []string{ComponentUpper, ComponentMiddle, ComponentLower}
	default:
		return []string{ComponentValue}
	}
}
