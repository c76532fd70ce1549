package risk

import (
	"fmt"
	"math"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// warnFraction is the share of a limit at which a finding is reported as a
// warning instead of an error.
const warnFraction = 0.8

// ValidateOrder checks a candidate order against the account snapshot and the
// configured risk limits. Findings accumulate: the caller always sees the
// complete picture rather than the first breach. Errors are blocking,
// warnings never are, and Valid is true iff there are no errors.
func ValidateOrder(order domain.OrderRequest, cfg domain.RiskConfig, snap domain.AccountSnapshot) domain.OrderValidation {
	v := domain.OrderValidation{}

	addError := func(format string, args ...interface{}) {
		v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
	}
	addWarning := func(format string, args ...interface{}) {
		v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
	}

	// Structural checks. A malformed order cannot be scored against limits,
	// but the remaining checks still run on whatever fields are usable.
	if order.Quantity <= 0 {
		addError("quantity must be positive, got %f", order.Quantity)
	}
	if order.EntryPrice <= 0 {
		addError("entry price must be positive, got %f", order.EntryPrice)
	}
	if order.Leverage < 1 {
		addError("leverage must be at least 1, got %d", order.Leverage)
	}

	// Leverage limit.
	if cfg.MaxLeverage > 0 && order.Leverage >= 1 {
		switch {
		case order.Leverage > cfg.MaxLeverage:
			addError("leverage %d exceeds maximum allowed %d", order.Leverage, cfg.MaxLeverage)
		case float64(order.Leverage) >= warnFraction*float64(cfg.MaxLeverage):
			addWarning("leverage %d is close to maximum %d", order.Leverage, cfg.MaxLeverage)
		}
	}

	// Open position cap.
	if cfg.MaxOpenPositions > 0 {
		switch {
		case snap.OpenPositionCount >= cfg.MaxOpenPositions:
			addError("open positions %d at maximum allowed %d", snap.OpenPositionCount, cfg.MaxOpenPositions)
		case float64(snap.OpenPositionCount+1) >= warnFraction*float64(cfg.MaxOpenPositions):
			addWarning("open positions %d approaching maximum %d", snap.OpenPositionCount, cfg.MaxOpenPositions)
		}
	}

	// Margin sufficiency for the requested leverage.
	if order.Quantity > 0 && order.EntryPrice > 0 && order.Leverage >= 1 {
		required := RequiredMargin(order.Quantity*order.EntryPrice, order.Leverage)
		switch {
		case required > snap.AvailableMargin:
			addError("required margin %.2f exceeds available margin %.2f", required, snap.AvailableMargin)
		case required >= warnFraction*snap.AvailableMargin:
			addWarning("required margin %.2f uses most of available margin %.2f", required, snap.AvailableMargin)
		}
	}

	// Per-trade risk against equity.
	if cfg.MaxRiskPercentPerTrade > 0 && snap.Equity > 0 && order.Quantity > 0 && order.EntryPrice > 0 {
		if order.StopLoss > 0 {
			riskPercent := math.Abs(order.EntryPrice-order.StopLoss) * order.Quantity / snap.Equity
			switch {
			case riskPercent > cfg.MaxRiskPercentPerTrade:
				addError("trade risk %.2f%% exceeds maximum %.2f%% per trade",
					riskPercent*100, cfg.MaxRiskPercentPerTrade*100)
			case riskPercent >= warnFraction*cfg.MaxRiskPercentPerTrade:
				addWarning("trade risk %.2f%% is close to the %.2f%% per-trade limit",
					riskPercent*100, cfg.MaxRiskPercentPerTrade*100)
			}
		} else {
			addWarning("order has no stop loss; per-trade risk cannot be bounded")
		}
	}

	// Cumulative daily loss.
	if cfg.MaxDailyLossPercent > 0 && snap.Equity > 0 {
		lossPercent := snap.DailyLoss / snap.Equity
		switch {
		case lossPercent >= cfg.MaxDailyLossPercent:
			addError("daily loss %.2f%% has reached the %.2f%% limit",
				lossPercent*100, cfg.MaxDailyLossPercent*100)
		case lossPercent >= warnFraction*cfg.MaxDailyLossPercent:
			addWarning("daily loss %.2f%% approaching the %.2f%% limit",
				lossPercent*100, cfg.MaxDailyLossPercent*100)
		}
	}

	v.Valid = len(v.Errors) == 0
	return v
}
