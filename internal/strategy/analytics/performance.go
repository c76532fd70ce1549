// Package analytics turns a closed trade list and an equity curve into the
// standard performance statistics of a backtest report.
//
// Degenerate denominators (zero volatility, zero gross loss, zero drawdown)
// resolve to explicitly undefined ratios; no NaN or Inf ever reaches a caller.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// Ratio is a statistic whose denominator can legitimately be zero.
// Defined is false instead of propagating NaN/Infinity.
type Ratio struct {
	Value   float64
	Defined bool
}

// DefinedRatio wraps a computed value.
func DefinedRatio(v float64) Ratio { return Ratio{Value: v, Defined: true} }

// Drawdown represents one peak-to-recovery drawdown episode.
type Drawdown struct {
	StartTime time.Time
	EndTime   time.Time
	Peak      float64
	Trough    float64
	Depth     float64 // most negative (equity-peak)/peak inside the episode
	Duration  time.Duration
}

// Options tunes annualization and downside targets.
type Options struct {
	PeriodsPerYear float64 // sampling frequency of the equity curve, e.g. 365 for daily
	RiskFreeRate   float64 // per-period risk-free return subtracted before Sharpe/Sortino
	DownsideTarget float64 // Sortino target return, typically 0
}

// DefaultOptions assumes a daily equity curve with a zero risk-free rate.
func DefaultOptions() Options {
	return Options{PeriodsPerYear: 365}
}

// PerformanceReport holds the derived statistics of a completed backtest.
// AverageWin and AverageLoss are magnitudes; MaxDrawdown and AvgDrawdown are
// negative fractions of the running peak.
type PerformanceReport struct {
	InitialEquity float64
	FinalEquity   float64
	TotalReturn   float64
	CAGR          float64

	Sharpe       Ratio
	Sortino      Ratio
	Calmar       Ratio
	ProfitFactor Ratio

	MaxDrawdown float64
	AvgDrawdown float64
	Drawdowns   []Drawdown

	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	GrossProfit          float64
	GrossLoss            float64
	AverageWin           float64
	AverageLoss          float64
	Expectancy           float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageHoldingPeriod time.Duration

	MonthlyReturns map[string]float64
}

// Evaluate computes the full report from closed trades and a time-ordered
// equity curve. The computation is deterministic: identical inputs produce
// bit-identical reports.
func Evaluate(trades []*domain.Trade, equityCurve []domain.EquityPoint, opts Options) *PerformanceReport {
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultOptions().PeriodsPerYear
	}

	report := &PerformanceReport{
		MonthlyReturns: make(map[string]float64),
		Drawdowns:      make([]Drawdown, 0),
	}

	evaluateEquity(report, equityCurve, opts)
	evaluateTrades(report, trades)

	// Calmar relates growth to the worst drawdown.
	if report.MaxDrawdown != 0 {
		report.Calmar = DefinedRatio(report.CAGR / math.Abs(report.MaxDrawdown))
	}
	return report
}

func evaluateEquity(report *PerformanceReport, curve []domain.EquityPoint, opts Options) {
	if len(curve) == 0 {
		return
	}

	report.InitialEquity = curve[0].Equity
	report.FinalEquity = curve[len(curve)-1].Equity
	if report.InitialEquity > 0 {
		report.TotalReturn = (report.FinalEquity - report.InitialEquity) / report.InitialEquity
	}

	// CAGR annualizes the total return over the elapsed calendar period.
	elapsed := curve[len(curve)-1].Time.Sub(curve[0].Time)
	years := elapsed.Hours() / (24 * 365.25)
	if years > 0 && report.InitialEquity > 0 && report.FinalEquity > 0 {
		report.CAGR = math.Pow(report.FinalEquity/report.InitialEquity, 1/years) - 1
	}

	// Per-period returns from consecutive points.
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)

		monthKey := curve[i].Time.Format("2006-01")
		report.MonthlyReturns[monthKey] += curve[i].Equity - prev
	}

	report.Sharpe = sharpe(returns, opts)
	report.Sortino = sortino(returns, opts)

	evaluateDrawdowns(report, curve)
}

// sharpe is mean excess return over its standard deviation, annualized.
// Undefined when volatility is zero.
func sharpe(returns []float64, opts Options) Ratio {
	if len(returns) < 2 {
		return Ratio{}
	}
	mean, std := meanStd(returns, opts.RiskFreeRate)
	if std == 0 {
		return Ratio{}
	}
	return DefinedRatio(mean / std * math.Sqrt(opts.PeriodsPerYear))
}

// sortino uses only downside deviation below the target in the denominator.
func sortino(returns []float64, opts Options) Ratio {
	if len(returns) < 2 {
		return Ratio{}
	}
	mean, _ := meanStd(returns, opts.RiskFreeRate)

	var downside float64
	for _, r := range returns {
		if d := r - opts.DownsideTarget; d < 0 {
			downside += d * d
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return Ratio{}
	}
	return DefinedRatio(mean / downside * math.Sqrt(opts.PeriodsPerYear))
}

func meanStd(returns []float64, riskFree float64) (mean, std float64) {
	for _, r := range returns {
		mean += r - riskFree
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := (r - riskFree) - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return mean, math.Sqrt(variance)
}

// evaluateDrawdowns tracks (equity - runningPeak)/runningPeak at every point,
// records peak-to-recovery episodes and keeps the deepest as MaxDrawdown.
func evaluateDrawdowns(report *PerformanceReport, curve []domain.EquityPoint) {
	peak := curve[0].Equity
	peakTime := curve[0].Time
	var current *Drawdown

	for _, point := range curve {
		if point.Equity >= peak {
			if current != nil {
				current.EndTime = point.Time
				current.Duration = current.EndTime.Sub(current.StartTime)
				report.Drawdowns = append(report.Drawdowns, *current)
				current = nil
			}
			peak = point.Equity
			peakTime = point.Time
			continue
		}

		if peak <= 0 {
			continue
		}
		dd := (point.Equity - peak) / peak
		if current == nil {
			current = &Drawdown{StartTime: peakTime, Peak: peak, Trough: point.Equity, Depth: dd}
		} else if dd < current.Depth {
			current.Depth = dd
			current.Trough = point.Equity
		}
		if dd < report.MaxDrawdown {
			report.MaxDrawdown = dd
		}
	}

	// Close an episode still open at the end of the curve.
	if current != nil {
		current.EndTime = curve[len(curve)-1].Time
		current.Duration = current.EndTime.Sub(current.StartTime)
		report.Drawdowns = append(report.Drawdowns, *current)
	}

	if len(report.Drawdowns) > 0 {
		var sum float64
		for _, d := range report.Drawdowns {
			sum += d.Depth
		}
		report.AvgDrawdown = sum / float64(len(report.Drawdowns))
	}
}

// evaluateTrades runs a single pass over closed trades ordered by exit time.
func evaluateTrades(report *PerformanceReport, trades []*domain.Trade) {
	if len(trades) == 0 {
		return
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	var consecutiveWins, consecutiveLosses int
	var totalHolding time.Duration

	for _, trade := range ordered {
		report.TotalTrades++
		totalHolding += trade.HoldingPeriod()

		if trade.PNL > 0 {
			report.WinningTrades++
			report.GrossProfit += trade.PNL
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			report.LosingTrades++
			report.GrossLoss += -trade.PNL
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > report.MaxConsecutiveWins {
			report.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > report.MaxConsecutiveLosses {
			report.MaxConsecutiveLosses = consecutiveLosses
		}
	}

	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	report.AverageHoldingPeriod = totalHolding / time.Duration(report.TotalTrades)

	if report.WinningTrades > 0 {
		report.AverageWin = report.GrossProfit / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = report.GrossLoss / float64(report.LosingTrades)
	}
	if report.GrossLoss > 0 {
		report.ProfitFactor = DefinedRatio(report.GrossProfit / report.GrossLoss)
	}

	lossRate := 1 - report.WinRate
	report.Expectancy = report.AverageWin*report.WinRate - report.AverageLoss*lossRate
}

// SortedMonthlyReturns returns the monthly buckets as a slice ordered by month.
func (r *PerformanceReport) SortedMonthlyReturns() []MonthlyReturn {
	out := make([]MonthlyReturn, 0, len(r.MonthlyReturns))
	for month, delta := range r.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		out = append(out, MonthlyReturn{Month: date, Return: delta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// MonthlyReturn is one calendar-month equity delta.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
