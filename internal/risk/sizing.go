package risk

import (
	"fmt"
	"math"

	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
)

// SizeInput carries the market and account state a sizing method works from.
// ATR is only consulted by VolatilityAdjusted; StopLossPrice only by the
// risk-distance based methods.
type SizeInput struct {
	Equity        float64
	CurrentPrice  float64
	EntryPrice    float64
	StopLossPrice float64
	ATR           float64
}

// SizeResult is the concrete outcome of sizing an intended trade.
type SizeResult struct {
	Quantity      float64
	PositionValue float64
	RiskAmount    float64
	RiskPercent   float64
}

// SizingMethod is a closed set of position-sizing strategies. Each variant
// carries exactly the parameters its formula needs, so a method can never be
// applied with a missing parameter.
type SizingMethod interface {
	Size(in SizeInput) (SizeResult, error)
	sizingMethod()
}

// FixedAmount invests a fixed notional amount per trade.
type FixedAmount struct {
	Amount float64
}

// FixedQuantity trades a fixed number of units per trade.
type FixedQuantity struct {
	Quantity float64
}

// PercentRisk risks a fixed fraction of equity between entry and stop.
type PercentRisk struct {
	RiskPercent float64
}

// PercentEquity allocates a fixed fraction of equity as position value.
type PercentEquity struct {
	EquityPercent float64
}

// Kelly sizes by the Kelly fraction derived from historical win rate and
// average win/loss ratio. A negative fraction means "do not trade" and
// clamps to zero; it never produces a short-sized position.
type Kelly struct {
	WinRate         float64
	AvgWinLossRatio float64
}

// VolatilityAdjusted derives the stop distance from ATR and delegates to the
// percent-risk formula with that distance.
type VolatilityAdjusted struct {
	RiskPercent   float64
	ATRMultiplier float64
}

func (FixedAmount) sizingMethod()        {}
func (FixedQuantity) sizingMethod()      {}
func (PercentRisk) sizingMethod()        {}
func (PercentEquity) sizingMethod()      {}
func (Kelly) sizingMethod()              {}
func (VolatilityAdjusted) sizingMethod() {}

// Size computes quantity = amount / current price.
func (m FixedAmount) Size(in SizeInput) (SizeResult, error) {
	if m.Amount <= 0 {
		return SizeResult{}, fmt.Errorf("%w: fixed amount must be positive, got %f", ports.ErrInvalidSpec, m.Amount)
	}
	if in.CurrentPrice <= 0 {
		return SizeResult{}, fmt.Errorf("%w: current price must be positive, got %f", ports.ErrInvalidSpec, in.CurrentPrice)
	}
	return buildResult(m.Amount/in.CurrentPrice, in), nil
}

// Size passes the configured quantity through unchanged.
func (m FixedQuantity) Size(in SizeInput) (SizeResult, error) {
	if m.Quantity <= 0 {
		return SizeResult{}, fmt.Errorf("%w: fixed quantity must be positive, got %f", ports.ErrInvalidSpec, m.Quantity)
	}
	return buildResult(m.Quantity, in), nil
}

// Size computes quantity from the risk budget and the entry-to-stop distance.
func (m PercentRisk) Size(in SizeInput) (SizeResult, error) {
	if m.RiskPercent <= 0 || m.RiskPercent >= 1 {
		return SizeResult{}, fmt.Errorf("%w: risk percent must be in (0, 1), got %f", ports.ErrInvalidSpec, m.RiskPercent)
	}
	distance := math.Abs(in.EntryPrice - in.StopLossPrice)
	return sizeByRiskDistance(in, m.RiskPercent, distance)
}

// Size computes quantity = (equity x percent) / current price.
func (m PercentEquity) Size(in SizeInput) (SizeResult, error) {
	if m.EquityPercent <= 0 || m.EquityPercent > 1 {
		return SizeResult{}, fmt.Errorf("%w: equity percent must be in (0, 1], got %f", ports.ErrInvalidSpec, m.EquityPercent)
	}
	if in.CurrentPrice <= 0 {
		return SizeResult{}, fmt.Errorf("%w: current price must be positive, got %f", ports.ErrInvalidSpec, in.CurrentPrice)
	}
	return buildResult(in.Equity*m.EquityPercent/in.CurrentPrice, in), nil
}

// Fraction returns the raw Kelly fraction before clamping:
// winRate - (1 - winRate) / avgWinLossRatio.
func (m Kelly) Fraction() float64 {
	if m.AvgWinLossRatio == 0 {
		return 0
	}
	return m.WinRate - (1-m.WinRate)/m.AvgWinLossRatio
}

// Size derives quantity from the clamped Kelly fraction of equity.
func (m Kelly) Size(in SizeInput) (SizeResult, error) {
	if m.WinRate < 0 || m.WinRate > 1 {
		return SizeResult{}, fmt.Errorf("%w: win rate must be in [0, 1], got %f", ports.ErrInvalidSpec, m.WinRate)
	}
	if m.AvgWinLossRatio <= 0 {
		return SizeResult{}, fmt.Errorf("%w: average win/loss ratio must be positive, got %f", ports.ErrInvalidSpec, m.AvgWinLossRatio)
	}
	if in.CurrentPrice <= 0 {
		return SizeResult{}, fmt.Errorf("%w: current price must be positive, got %f", ports.ErrInvalidSpec, in.CurrentPrice)
	}

	fraction := m.Fraction()
	if fraction < 0 {
		fraction = 0
	}
	return buildResult(fraction*in.Equity/in.CurrentPrice, in), nil
}

// Size derives the stop distance from ATR and sizes like PercentRisk.
func (m VolatilityAdjusted) Size(in SizeInput) (SizeResult, error) {
	if m.RiskPercent <= 0 || m.RiskPercent >= 1 {
		return SizeResult{}, fmt.Errorf("%w: risk percent must be in (0, 1), got %f", ports.ErrInvalidSpec, m.RiskPercent)
	}
	if m.ATRMultiplier <= 0 {
		return SizeResult{}, fmt.Errorf("%w: ATR multiplier must be positive, got %f", ports.ErrInvalidSpec, m.ATRMultiplier)
	}
	if in.ATR <= 0 {
		return SizeResult{}, fmt.Errorf("%w: ATR must be positive, got %f", ports.ErrInvalidSpec, in.ATR)
	}
	return sizeByRiskDistance(in, m.RiskPercent, in.ATR*m.ATRMultiplier)
}

func sizeByRiskDistance(in SizeInput, riskPercent, distance float64) (SizeResult, error) {
	if in.Equity <= 0 {
		return SizeResult{}, fmt.Errorf("%w: equity must be positive, got %f", ports.ErrInvalidSpec, in.Equity)
	}
	if distance <= 0 {
		return SizeResult{}, fmt.Errorf("%w: stop distance must be positive, got %f", ports.ErrInvalidSpec, distance)
	}
	riskAmount := in.Equity * riskPercent
	return buildResult(riskAmount/distance, in), nil
}

// buildResult fills in position value and realized risk figures for a
// quantity. Risk figures are zero when no stop is attached.
func buildResult(quantity float64, in SizeInput) SizeResult {
	price := in.CurrentPrice
	if price == 0 {
		price = in.EntryPrice
	}
	res := SizeResult{
		Quantity:      quantity,
		PositionValue: quantity * price,
	}
	if in.StopLossPrice > 0 && in.EntryPrice > 0 {
		res.RiskAmount = math.Abs(in.EntryPrice-in.StopLossPrice) * quantity
		if in.Equity > 0 {
			res.RiskPercent = res.RiskAmount / in.Equity
		}
	}
	return res
}
