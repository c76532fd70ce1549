package risk

import (
	"math"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// RequiredMargin returns the margin needed to hold a position of the given
// value at the given leverage. Leverage below 1 is treated as unleveraged.
func RequiredMargin(positionValue float64, leverage int) float64 {
	if leverage < 1 {
		leverage = 1
	}
	return positionValue / float64(leverage)
}

// CurrentLeverage returns the effective leverage of a position against
// account equity. Zero equity yields zero rather than infinity.
func CurrentLeverage(positionValue, equity float64) float64 {
	if equity <= 0 {
		return 0
	}
	return positionValue / equity
}

// LiquidationPrice estimates the price at which a leveraged position is
// liquidated, offsetting entry by entry/leverage adjusted for the
// maintenance-margin rate. Lower leverage moves the level further from entry.
func LiquidationPrice(entryPrice float64, side domain.Side, leverage int, maintenanceMarginRate float64) float64 {
	if leverage < 1 {
		leverage = 1
	}
	offset := entryPrice/float64(leverage) - entryPrice*maintenanceMarginRate
	if offset < 0 {
		offset = 0
	}
	return entryPrice - side.Sign()*offset
}

// PercentStop returns a stop-loss level a fixed percent away from entry,
// against the position's direction.
func PercentStop(entryPrice float64, side domain.Side, percent float64) float64 {
	return entryPrice * (1 - side.Sign()*percent)
}

// PercentTarget returns a take-profit level a fixed percent away from entry,
// in the position's direction.
func PercentTarget(entryPrice float64, side domain.Side, percent float64) float64 {
	return entryPrice * (1 + side.Sign()*percent)
}

// ATRStop returns a stop-loss level one ATR multiple away from entry,
// against the position's direction.
func ATRStop(entryPrice float64, side domain.Side, atr, multiplier float64) float64 {
	return entryPrice - side.Sign()*atr*multiplier
}

// ATRTarget returns a take-profit level one ATR multiple away from entry,
// in the position's direction.
func ATRTarget(entryPrice float64, side domain.Side, atr, multiplier float64) float64 {
	return entryPrice + side.Sign()*atr*multiplier
}

// RRTarget returns the take-profit level for a reward at rMultiple times the
// entry-to-stop risk distance.
func RRTarget(entryPrice, stopPrice float64, side domain.Side, rMultiple float64) float64 {
	return entryPrice + side.Sign()*rMultiple*math.Abs(entryPrice-stopPrice)
}

// NextTrailingStop ratchets a trailing stop toward the current price. The
// returned stop only ever moves in the position's favorable direction: a
// price move that implies a looser stop leaves the current one in place.
// A zero currentStop means the stop has not been set yet.
func NextTrailingStop(side domain.Side, currentStop, price, distance float64) float64 {
	candidate := price - side.Sign()*distance
	if currentStop == 0 {
		return candidate
	}
	if side == domain.Long {
		if candidate > currentStop {
			return candidate
		}
		return currentStop
	}
	if candidate < currentStop {
		return candidate
	}
	return currentStop
}

// PNL returns the side-signed realized profit or loss for a fill.
func PNL(side domain.Side, entryPrice, exitPrice, quantity float64) float64 {
	return side.Sign() * (exitPrice - entryPrice) * quantity
}

// RMultiple expresses realized PnL in units of the original entry-to-stop
// risk. The second return is false when the risk distance is degenerate
// (no stop, or stop at entry), which callers must treat as "undefined"
// rather than zero R.
func RMultiple(pnl, entryPrice, stopPrice, quantity float64) (float64, bool) {
	risked := math.Abs(entryPrice-stopPrice) * quantity
	if risked == 0 {
		return 0, false
	}
	return pnl / risked, true
}
