// Package signals decides, per bar, whether a strategy's entry or exit rule
// set fires. Detection is stateless per call; the rolling indicator state is
// owned by the caller and passed in.
package signals

import (
	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/conditions"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/indicators"
)

// Detect evaluates the rule's entry and exit groups against the indicator
// state as of the given bar and returns at most one signal, or nil.
//
// Entry and exit are evaluated independently; when both fire on the same bar
// the exit wins, so a strategy never re-enters on the bar it exits. Bars
// inside any referenced indicator's warm-up produce no signal, which is an
// expected condition, not an error.
func Detect(bar domain.PriceBar, rule *domain.StrategyRule, state *indicators.State) *domain.Signal {
	if !state.Ready() {
		return nil
	}

	ctx := conditions.Context(state.Context())

	if exit := conditions.EvaluateGroup(rule.Exit, ctx); exit.Satisfied {
		return newSignal(domain.SignalExit, bar, rule.Exit, exit)
	}
	if entry := conditions.EvaluateGroup(rule.Entry, ctx); entry.Satisfied {
		return newSignal(domain.SignalEntry, bar, rule.Entry, entry)
	}
	return nil
}

func newSignal(kind domain.SignalKind, bar domain.PriceBar, group domain.ConditionGroup, res conditions.GroupResult) *domain.Signal {
	return &domain.Signal{
		Kind:              kind,
		Symbol:            bar.Symbol,
		Time:              bar.CloseTime,
		Price:             bar.Close,
		MatchedConditions: res.Matched,
		Confidence:        confidence(group, res),
	}
}

// confidence is the fraction of the group's leaf conditions that matched.
// A short-circuited AND never reaches here satisfied, so the ratio is well
// behaved for both logic modes.
func confidence(group domain.ConditionGroup, res conditions.GroupResult) float64 {
	total := group.Leaves()
	if total == 0 {
		return 0
	}
	c := float64(len(res.Matched)) / float64(total)
	if c > 1 {
		c = 1
	}
	return c
}
