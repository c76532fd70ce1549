package domain

import "time"

// SignalKind distinguishes entry and exit signals.
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalExit  SignalKind = "exit"
)

// StrategyRule pairs an entry and an exit condition group with the named
// indicators both of them reference.
type StrategyRule struct {
	Name       string                   `yaml:"name"`
	Symbol     string                   `yaml:"symbol"`
	Timeframe  string                   `yaml:"timeframe"`
	Indicators map[string]IndicatorSpec `yaml:"indicators"`
	Entry      ConditionGroup           `yaml:"entry"`
	Exit       ConditionGroup           `yaml:"exit"`
}

// Signal is produced per bar by the signal detector and consumed immediately
// by a driver. It is never mutated after creation.
type Signal struct {
	Kind              SignalKind
	Symbol            string
	Time              time.Time
	Price             float64
	MatchedConditions []string
	Confidence        float64
}
