package backtesting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/risk"
)

type testLogger struct{}

func (testLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (testLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (testLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (testLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func backtestBars(closes ...float64) []domain.PriceBar {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
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

// thresholdRule enters above the entry threshold and exits below the exit
// threshold. A period-1 SMA keeps warm-up out of the way.
func thresholdRule(entryAbove, exitBelow float64) *domain.StrategyRule {
	return &domain.StrategyRule{
		Name:      "threshold",
		Symbol:    "ETHUSDT",
		Timeframe: "1h",
		Indicators: map[string]domain.IndicatorSpec{
			"sma": {Kind: domain.IndicatorSMA, Period: 1},
		},
		Entry: domain.ConditionGroup{
			Logic: domain.LogicAND,
			Conditions: []domain.ConditionSpec{
				{Field: "close", Operator: domain.OpGT, Threshold: entryAbove},
			},
		},
		Exit: domain.ConditionGroup{
			Logic: domain.LogicAND,
			Conditions: []domain.ConditionSpec{
				{Field: "close", Operator: domain.OpLT, Threshold: exitBelow},
			},
		},
	}
}

func baseConfig() Config {
	return Config{
		InitialEquity: 1000,
		Sizing:        risk.FixedQuantity{Quantity: 1},
	}
}

func TestRun_SignalRoundTrip(t *testing.T) {
	bars := backtestBars(5, 12, 13, 8, 9)
	result, err := Run(context.Background(), thresholdRule(10, 10), bars, baseConfig(), testLogger{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, 12.0, trade.EntryPrice)
	assert.Equal(t, 8.0, trade.ExitPrice)
	assert.InDelta(t, -4.0, trade.PNL, 1e-9)
	assert.Equal(t, domain.CloseReasonSignal, trade.CloseReason)

	assert.Len(t, result.EquityCurve, len(bars))
	assert.InDelta(t, 996.0, result.EquityCurve[len(bars)-1].Equity, 1e-9)
	assert.NotNil(t, result.Report)
}

func TestRun_EndOfDataClose(t *testing.T) {
	bars := backtestBars(5, 12, 13)
	result, err := Run(context.Background(), thresholdRule(10, 10), bars, baseConfig(), testLogger{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, domain.CloseReasonEndOfData, trade.CloseReason)
	assert.InDelta(t, 1.0, trade.PNL, 1e-9)
	assert.InDelta(t, 1001.0, result.EquityCurve[len(bars)-1].Equity, 1e-9)
}

func TestRun_StopLossBeforeSignal(t *testing.T) {
	cfg := baseConfig()
	cfg.StopLossPercent = 0.05

	// Entry at 100; the 90 bar crosses the 95 stop well before any exit
	// signal, so the position closes at the stop price. The stop-out bar is
	// already below the entry threshold so nothing reopens.
	bars := backtestBars(50, 100, 90, 55)
	result, err := Run(context.Background(), thresholdRule(95, 40), bars, cfg, testLogger{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, domain.CloseReasonStopLoss, trade.CloseReason)
	assert.InDelta(t, 95.0, trade.ExitPrice, 1e-9)
	assert.InDelta(t, -5.0, trade.PNL, 1e-9)
}

func TestRun_TakeProfit(t *testing.T) {
	cfg := baseConfig()
	cfg.TakeProfitPercent = 0.05

	// The take-profit bar still satisfies the entry rule, so a second
	// position opens on the same bar and rides to the end of data.
	bars := backtestBars(50, 100, 106, 55)
	result, err := Run(context.Background(), thresholdRule(60, 40), bars, cfg, testLogger{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	trade := result.Trades[0]
	assert.Equal(t, domain.CloseReasonTakeProfit, trade.CloseReason)
	assert.InDelta(t, 105.0, trade.ExitPrice, 1e-9)
}

func TestRun_TrailingStopRatchets(t *testing.T) {
	cfg := baseConfig()
	cfg.TrailingStopPercent = 0.05

	// Entry at 120, the 130 bar ratchets the stop to 123.5, and the fall to
	// 122 crosses it. The entry condition still holds on the stop-out bar,
	// so a second position opens and is closed by the end of data.
	bars := backtestBars(50, 120, 130, 122)
	result, err := Run(context.Background(), thresholdRule(60, 40), bars, cfg, testLogger{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)
	trade := result.Trades[0]
	assert.Equal(t, domain.CloseReasonStopLoss, trade.CloseReason)
	assert.InDelta(t, 123.5, trade.ExitPrice, 1e-9)
	assert.InDelta(t, 3.5, trade.PNL, 1e-9)
	assert.Equal(t, domain.CloseReasonEndOfData, result.Trades[1].CloseReason)
}

func TestRun_RiskLimitsRejectEntries(t *testing.T) {
	cfg := baseConfig()
	cfg.Leverage = 5
	cfg.Risk = domain.RiskConfig{MaxLeverage: 2}

	bars := backtestBars(5, 12, 13, 8, 9)
	result, err := Run(context.Background(), thresholdRule(10, 10), bars, cfg, testLogger{})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.GreaterOrEqual(t, result.RejectedOrders, 1)
}

// Two runs over identical inputs and the same slippage seed must produce
// identical trades and equity curves.
func TestRun_Deterministic(t *testing.T) {
	bars := backtestBars(5, 12, 13, 8, 14, 16, 7, 9, 20, 6)

	runOnce := func() *Result {
		cfg := baseConfig()
		cfg.Slippage = NewSlippageModel(99, 0.0005)
		result, err := Run(context.Background(), thresholdRule(10, 10), bars, cfg, testLogger{})
		require.NoError(t, err)
		return result
	}

	first := runOnce()
	second := runOnce()
	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.EquityCurve, second.EquityCurve)
	assert.Equal(t, first.Report, second.Report)
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, thresholdRule(10, 10), backtestBars(1, 2, 3), baseConfig(), testLogger{})
	assert.Error(t, err)
}

func TestRun_ConfigValidation(t *testing.T) {
	bars := backtestBars(1, 2, 3)
	rule := thresholdRule(10, 10)

	_, err := Run(context.Background(), rule, bars, Config{Sizing: risk.FixedQuantity{Quantity: 1}}, testLogger{})
	assert.Error(t, err, "missing initial equity")

	_, err = Run(context.Background(), rule, bars, Config{InitialEquity: 1000}, testLogger{})
	assert.Error(t, err, "missing sizing method")

	_, err = Run(context.Background(), rule, bars, baseConfig(), nil)
	assert.Error(t, err, "missing logger")

	bad := thresholdRule(10, 10)
	bad.Entry.Logic = "NAND"
	_, err = Run(context.Background(), bad, bars, baseConfig(), testLogger{})
	assert.Error(t, err, "invalid entry group")
}
