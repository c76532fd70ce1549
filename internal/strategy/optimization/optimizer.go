// Package optimization grid-searches strategy rule parameters by running
// independent backtests per combination. Backtests share no mutable state,
// so combinations run concurrently.
package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/analytics"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/backtesting"
)

// ParameterRange defines the sweep for one named parameter.
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// ApplyFunc rewrites the base rule for one parameter combination. It must
// return a new rule and leave the base untouched.
type ApplyFunc func(base domain.StrategyRule, params map[string]float64) (domain.StrategyRule, error)

// ScoreFunc scores one backtest report; higher is better.
type ScoreFunc func(*analytics.PerformanceReport) float64

// Candidate is the outcome of one parameter combination.
type Candidate struct {
	Parameters map[string]float64
	Report     *analytics.PerformanceReport
	Score      float64
}

// Config holds the optimizer inputs.
type Config struct {
	Ranges   []ParameterRange
	Backtest backtesting.Config
	Apply    ApplyFunc
	Score    ScoreFunc
}

// Optimizer sweeps rule parameters over backtests of a fixed bar set.
type Optimizer struct {
	config Config
	logger ports.Logger
}

// NewOptimizer creates an optimizer instance.
func NewOptimizer(config Config, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for optimization", ports.ErrConfigurationError)
	}
	if config.Apply == nil {
		return nil, fmt.Errorf("%w: an apply function is required", ports.ErrConfigurationError)
	}
	if config.Score == nil {
		config.Score = DefaultScore
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Optimize backtests every parameter combination and returns candidates
// sorted by descending score. Combinations whose rule rewrite or backtest
// fails are logged and skipped.
func (o *Optimizer) Optimize(ctx context.Context, base domain.StrategyRule, bars []domain.PriceBar) ([]Candidate, error) {
	combinations := o.combinations()
	resultChan := make(chan Candidate, len(combinations))
	var wg sync.WaitGroup

	for _, params := range combinations {
		wg.Add(1)
		go func(params map[string]float64) {
			defer wg.Done()

			rule, err := o.config.Apply(base, params)
			if err != nil {
				o.logger.Warn(ctx, "Parameter combination rejected", map[string]interface{}{"params": params, "error": err.Error()})
				return
			}

			result, err := backtesting.Run(ctx, &rule, bars, o.config.Backtest, o.logger)
			if err != nil {
				o.logger.Warn(ctx, "Backtest failed during optimization", map[string]interface{}{"params": params, "error": err.Error()})
				return
			}

			resultChan <- Candidate{
				Parameters: params,
				Report:     result.Report,
				Score:      o.config.Score(result.Report),
			}
		}(params)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	candidates := make([]Candidate, 0, len(combinations))
	for candidate := range resultChan {
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// combinations expands the cartesian product of all parameter ranges.
func (o *Optimizer) combinations() []map[string]float64 {
	var out []map[string]float64
	current := make(map[string]float64)

	var generate func(int)
	generate = func(idx int) {
		if idx == len(o.config.Ranges) {
			combination := make(map[string]float64, len(current))
			for k, v := range current {
				combination[k] = v
			}
			out = append(out, combination)
			return
		}

		p := o.config.Ranges[idx]
		// Half-step epsilon guards the upper bound against float drift.
		for value := p.Min; value <= p.Max+p.Step/2; value += p.Step {
			v := value
			if p.IsInt {
				v = math.Round(v)
			}
			current[p.Name] = v
			generate(idx + 1)
		}
	}

	generate(0)
	return out
}

// DefaultScore blends win rate, growth and drawdown into a single figure.
func DefaultScore(report *analytics.PerformanceReport) float64 {
	score := report.WinRate * 0.3
	score += report.TotalReturn * 0.3
	score += (1 + report.MaxDrawdown) * 0.2
	if report.ProfitFactor.Defined {
		score += math.Min(report.ProfitFactor.Value, 5) * 0.04
	}
	if report.Sharpe.Defined {
		score += math.Min(math.Max(report.Sharpe.Value, -5), 5) * 0.02
	}
	return score
}
