// Package backtesting simulates a strategy rule over historical bars,
// exercising signal detection, position sizing, order validation and
// performance analytics end to end. The loop is a strict left-to-right fold:
// a decision at bar i only ever sees bars up to and including i.
package backtesting

import (
	"context"
	"fmt"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/risk"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/analytics"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/conditions"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/indicators"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/signals"
)

// Config holds backtest parameters. Sizing and risk limits are the same
// types the live path uses, so a backtest validates exactly what a live
// driver would.
type Config struct {
	InitialEquity float64
	Side          domain.Side // direction taken on entry signals, Long by default
	Leverage      int

	Sizing risk.SizingMethod
	Risk   domain.RiskConfig

	// ATRIndicator names the rule indicator consulted for volatility-based
	// sizing. Defaults to "atr".
	ATRIndicator string

	StopLossPercent     float64 // 0 disables the fixed stop
	TakeProfitPercent   float64 // 0 disables the target
	TrailingStopPercent float64 // 0 disables trailing

	Slippage *SlippageModel // nil simulates perfect fills

	Analytics analytics.Options
}

// Result bundles the simulated trades, the per-bar equity curve and the
// derived performance report.
type Result struct {
	Trades         []*domain.Trade
	EquityCurve    []domain.EquityPoint
	Report         *analytics.PerformanceReport
	RejectedOrders int
}

// Run simulates the rule over the bars. Bars must be in time order.
func Run(ctx context.Context, rule *domain.StrategyRule, bars []domain.PriceBar, cfg Config, logger ports.Logger) (*Result, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for backtesting", ports.ErrConfigurationError)
	}
	if cfg.InitialEquity <= 0 {
		return nil, fmt.Errorf("%w: initial equity must be positive", ports.ErrConfigurationError)
	}
	if cfg.Sizing == nil {
		return nil, fmt.Errorf("%w: a sizing method is required", ports.ErrConfigurationError)
	}
	if err := conditions.ValidateGroup(rule.Entry); err != nil {
		return nil, fmt.Errorf("entry rule: %w", err)
	}
	if err := conditions.ValidateGroup(rule.Exit); err != nil {
		return nil, fmt.Errorf("exit rule: %w", err)
	}
	side := cfg.Side
	if side == "" {
		side = domain.Long
	}
	leverage := cfg.Leverage
	if leverage < 1 {
		leverage = 1
	}

	state, err := indicators.NewState(rule.Indicators)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	equity := cfg.InitialEquity
	var position *domain.Position
	var dailyLoss float64
	var currentDay string

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrContextCanceled, err)
		}
		state.Append(bar)

		if day := bar.OpenTime.Format("2006-01-02"); day != currentDay {
			currentDay = day
			dailyLoss = 0
		}

		// Manage the open position before looking for new signals.
		if position != nil {
			if cfg.TrailingStopPercent > 0 {
				position.TrailingStopPrice = risk.NextTrailingStop(
					side, position.TrailingStopPrice, bar.Close, bar.Close*cfg.TrailingStopPercent)
			}
			if exitPrice, reason, closed := checkProtectiveStops(position, bar, side); closed {
				equity = closeAt(result, position, exitPrice, bar, cfg, &dailyLoss, equity, reason)
				position = nil
			}
		}

		sig := signals.Detect(bar, rule, state)
		if sig != nil && sig.Kind == domain.SignalExit && position != nil {
			exitPrice := cfg.Slippage.Fill(bar.Close, side, false)
			equity = closeAt(result, position, exitPrice, bar, cfg, &dailyLoss, equity, domain.CloseReasonSignal)
			position = nil
		}

		// Exit takes priority: never re-enter on the bar an exit fired.
		if sig != nil && sig.Kind == domain.SignalEntry && position == nil {
			position = tryOpen(ctx, result, sig, bar, state, cfg, side, leverage, equity, dailyLoss, logger)
		}

		result.EquityCurve = append(result.EquityCurve, domain.EquityPoint{
			Time:   bar.CloseTime,
			Equity: markToMarket(equity, position, bar.Close, side),
		})
	}

	// A position still open at the end of data is closed at the last price.
	if position != nil && len(bars) > 0 {
		last := bars[len(bars)-1]
		exitPrice := cfg.Slippage.Fill(last.Close, side, false)
		equity = closeAt(result, position, exitPrice, last, cfg, &dailyLoss, equity, domain.CloseReasonEndOfData)
		result.EquityCurve[len(result.EquityCurve)-1].Equity = equity
	}

	result.Report = analytics.Evaluate(result.Trades, result.EquityCurve, cfg.Analytics)
	return result, nil
}

// checkProtectiveStops tests the bar range against the position's stop,
// trailing stop and target. Stops are checked before targets so an ambiguous
// bar resolves pessimistically.
func checkProtectiveStops(position *domain.Position, bar domain.PriceBar, side domain.Side) (float64, domain.CloseReason, bool) {
	adverse := bar.Low
	favorable := bar.High
	if side == domain.Short {
		adverse, favorable = bar.High, bar.Low
	}

	stop := position.StopLoss
	if position.TrailingStopPrice != 0 {
		if stop == 0 || side.Sign()*(position.TrailingStopPrice-stop) > 0 {
			stop = position.TrailingStopPrice
		}
	}
	if stop != 0 && side.Sign()*(adverse-stop) <= 0 {
		return stop, domain.CloseReasonStopLoss, true
	}
	if position.TakeProfit != 0 && side.Sign()*(favorable-position.TakeProfit) >= 0 {
		return position.TakeProfit, domain.CloseReasonTakeProfit, true
	}
	return 0, "", false
}

func tryOpen(ctx context.Context, result *Result, sig *domain.Signal, bar domain.PriceBar, state *indicators.State,
	cfg Config, side domain.Side, leverage int, equity, dailyLoss float64, logger ports.Logger) *domain.Position {

	entryPrice := cfg.Slippage.Fill(bar.Close, side, true)
	var stopLoss, takeProfit float64
	if cfg.StopLossPercent > 0 {
		stopLoss = risk.PercentStop(entryPrice, side, cfg.StopLossPercent)
	}
	if cfg.TakeProfitPercent > 0 {
		takeProfit = risk.PercentTarget(entryPrice, side, cfg.TakeProfitPercent)
	}

	atrName := cfg.ATRIndicator
	if atrName == "" {
		atrName = "atr"
	}
	atr, _ := state.Value(atrName, indicators.ComponentValue)
	sized, err := cfg.Sizing.Size(risk.SizeInput{
		Equity:        equity,
		CurrentPrice:  entryPrice,
		EntryPrice:    entryPrice,
		StopLossPrice: stopLoss,
		ATR:           atr,
	})
	if err != nil {
		logger.Warn(ctx, "Sizing failed, entry skipped", map[string]interface{}{"time": bar.OpenTime, "error": err.Error()})
		result.RejectedOrders++
		return nil
	}
	if sized.Quantity <= 0 {
		// Kelly and friends may legitimately size to zero: do not trade.
		return nil
	}

	validation := risk.ValidateOrder(
		domain.OrderRequest{
			Symbol:     sig.Symbol,
			Side:       side,
			Quantity:   sized.Quantity,
			EntryPrice: entryPrice,
			StopLoss:   stopLoss,
			Leverage:   leverage,
		},
		cfg.Risk,
		domain.AccountSnapshot{
			Equity:          equity,
			AvailableMargin: equity,
			DailyLoss:       dailyLoss,
		},
	)
	if !validation.Valid {
		logger.Debug(ctx, "Order rejected by risk validation", map[string]interface{}{
			"time":   bar.OpenTime,
			"errors": validation.Errors,
		})
		result.RejectedOrders++
		return nil
	}

	return &domain.Position{
		Symbol:     sig.Symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   sized.Quantity,
		Leverage:   leverage,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		EntryTime:  bar.OpenTime,
		Status:     domain.StatusOpen,
	}
}

func closeAt(result *Result, position *domain.Position, exitPrice float64, bar domain.PriceBar,
	cfg Config, dailyLoss *float64, equity float64, reason domain.CloseReason) float64 {

	pnl := risk.PNL(position.Side, position.EntryPrice, exitPrice, position.Quantity) * float64(position.Leverage)
	equity += pnl
	if pnl < 0 {
		*dailyLoss += -pnl
	}

	result.Trades = append(result.Trades, &domain.Trade{
		PositionID:  position.ID,
		Symbol:      position.Symbol,
		Side:        position.Side,
		EntryPrice:  position.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    position.Quantity,
		Leverage:    position.Leverage,
		PNL:         pnl,
		EntryTime:   position.EntryTime,
		ExitTime:    bar.CloseTime,
		CloseReason: reason,
	})
	return equity
}

func markToMarket(equity float64, position *domain.Position, price float64, side domain.Side) float64 {
	if position == nil {
		return equity
	}
	return equity + risk.PNL(side, position.EntryPrice, price, position.Quantity)*float64(position.Leverage)
}
