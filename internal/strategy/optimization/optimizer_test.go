package optimization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/risk"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/analytics"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/backtesting"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func sweepBars(closes ...float64) []domain.PriceBar {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			CloseTime: start.Add(time.Duration(i+1) * time.Hour),
			Symbol:    "ETHUSDT",
			Timeframe: "1h",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
			IsFinal:   true,
		}
	}
	return bars
}

// applyThreshold builds a fresh rule per combination so the base is never
// shared between goroutines.
func applyThreshold(base domain.StrategyRule, params map[string]float64) (domain.StrategyRule, error) {
	rule := domain.StrategyRule{
		Name:      base.Name,
		Symbol:    base.Symbol,
		Timeframe: base.Timeframe,
		Indicators: map[string]domain.IndicatorSpec{
			"sma": {Kind: domain.IndicatorSMA, Period: 1},
		},
		Entry: domain.ConditionGroup{
			Logic: domain.LogicAND,
			Conditions: []domain.ConditionSpec{
				{Field: "close", Operator: domain.OpGT, Threshold: params["entry"]},
			},
		},
		Exit: domain.ConditionGroup{
			Logic: domain.LogicAND,
			Conditions: []domain.ConditionSpec{
				{Field: "close", Operator: domain.OpLT, Threshold: params["entry"] - 2},
			},
		},
	}
	return rule, nil
}

func sweepConfig() Config {
	return Config{
		Ranges: []ParameterRange{
			{Name: "entry", Min: 8, Max: 12, Step: 2},
		},
		Backtest: backtesting.Config{
			InitialEquity: 1000,
			Sizing:        risk.FixedQuantity{Quantity: 1},
		},
		Apply: applyThreshold,
	}
}

func TestNewOptimizer_Validation(t *testing.T) {
	_, err := NewOptimizer(sweepConfig(), nil)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	cfg := sweepConfig()
	cfg.Apply = nil
	_, err = NewOptimizer(cfg, noopLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestOptimizer_Combinations(t *testing.T) {
	cfg := sweepConfig()
	cfg.Ranges = []ParameterRange{
		{Name: "entry", Min: 8, Max: 12, Step: 2},
		{Name: "period", Min: 1, Max: 3, Step: 1, IsInt: true},
	}
	opt, err := NewOptimizer(cfg, noopLogger{})
	require.NoError(t, err)

	combos := opt.combinations()
	assert.Len(t, combos, 9) // {8,10,12} x {1,2,3}

	seen := make(map[float64]bool)
	for _, c := range combos {
		require.Contains(t, c, "entry")
		require.Contains(t, c, "period")
		seen[c["entry"]] = true
	}
	assert.Equal(t, map[float64]bool{8: true, 10: true, 12: true}, seen)
}

func TestOptimizer_SortsByDescendingScore(t *testing.T) {
	opt, err := NewOptimizer(sweepConfig(), noopLogger{})
	require.NoError(t, err)

	bars := sweepBars(5, 9, 13, 6, 11, 14, 7, 10, 15, 6)
	candidates, err := opt.Optimize(context.Background(), domain.StrategyRule{Name: "sweep", Symbol: "ETHUSDT", Timeframe: "1h"}, bars)
	require.NoError(t, err)

	require.Len(t, candidates, 3)
	for i := 0; i < len(candidates)-1; i++ {
		assert.GreaterOrEqual(t, candidates[i].Score, candidates[i+1].Score)
	}
	for _, c := range candidates {
		require.NotNil(t, c.Report)
	}
}

func TestOptimizer_SkipsFailingCombinations(t *testing.T) {
	cfg := sweepConfig()
	cfg.Apply = func(base domain.StrategyRule, params map[string]float64) (domain.StrategyRule, error) {
		if params["entry"] == 10 {
			return domain.StrategyRule{}, errors.New("unstable parameter region")
		}
		return applyThreshold(base, params)
	}
	opt, err := NewOptimizer(cfg, noopLogger{})
	require.NoError(t, err)

	candidates, err := opt.Optimize(context.Background(), domain.StrategyRule{Name: "sweep", Symbol: "ETHUSDT", Timeframe: "1h"}, sweepBars(5, 9, 13, 6, 11, 14))
	require.NoError(t, err)

	assert.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.NotEqual(t, 10.0, c.Parameters["entry"])
	}
}

func TestDefaultScore(t *testing.T) {
	report := &analytics.PerformanceReport{
		WinRate:      0.6,
		TotalReturn:  0.5,
		MaxDrawdown:  -0.1,
		ProfitFactor: analytics.Ratio{Value: 2, Defined: true},
		Sharpe:       analytics.Ratio{Value: 1, Defined: true},
	}
	// 0.6*0.3 + 0.5*0.3 + 0.9*0.2 + 2*0.04 + 1*0.02
	assert.InDelta(t, 0.61, DefaultScore(report), 1e-9)

	// Undefined ratios contribute nothing.
	bare := &analytics.PerformanceReport{WinRate: 0.6, TotalReturn: 0.5, MaxDrawdown: -0.1}
	assert.InDelta(t, 0.51, DefaultScore(bare), 1e-9)

	// Extreme ratios are capped before weighting.
	capped := &analytics.PerformanceReport{
		ProfitFactor: analytics.Ratio{Value: 50, Defined: true},
		Sharpe:       analytics.Ratio{Value: 50, Defined: true},
	}
	assert.InDelta(t, 0.2+5*0.04+5*0.02, DefaultScore(capped), 1e-9)
}
