package domain

// IndicatorKind identifies a technical indicator family.
type IndicatorKind string

const (
	IndicatorSMA       IndicatorKind = "SMA"
	IndicatorEMA       IndicatorKind = "EMA"
	IndicatorRSI       IndicatorKind = "RSI"
	IndicatorMACD      IndicatorKind = "MACD"
	IndicatorBollinger IndicatorKind = "BOLLINGER"
	IndicatorATR       IndicatorKind = "ATR"
)

// IndicatorSpec declares one indicator instance required by a strategy rule.
// Period applies to SMA/EMA/RSI/Bollinger/ATR; Fast/Slow/Signal to MACD;
// Multiplier to Bollinger band width.
type IndicatorSpec struct {
	Kind         IndicatorKind `yaml:"kind"`
	Period       int           `yaml:"period,omitempty"`
	FastPeriod   int           `yaml:"fast_period,omitempty"`
	SlowPeriod   int           `yaml:"slow_period,omitempty"`
	SignalPeriod int           `yaml:"signal_period,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
}

// Warmup returns the minimum number of bars before the indicator produces a
// defined value. Values at earlier offsets are undefined, not zero.
func (s IndicatorSpec) Warmup() int {
	switch s.Kind {
	case IndicatorSMA, IndicatorEMA, IndicatorBollinger:
		return s.Period - 1
	case IndicatorRSI, IndicatorATR:
		// One extra bar for the first change / true range lookback.
		return s.Period
	case IndicatorMACD:
		// Slow EMA must be defined before the signal EMA can seed.
		return s.SlowPeriod + s.SignalPeriod - 2
	default:
		return 0
	}
}
