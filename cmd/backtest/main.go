package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/config"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/binanceclient"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/logger"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/rulefile"
	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/risk"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/analytics"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/backtesting"
	"github.com/sihu-dev/forge-labs-sub006/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	rules, err := rulefile.Load(cfg.RuleFile)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to load rule file", map[string]interface{}{"path": cfg.RuleFile})
		log.Fatalf("Failed to load rule file: %v", err)
	}
	rule := pickRule(rules, cfg.Symbol)
	if rule == nil {
		log.Fatalf("No strategy rule found for symbol %s in %s", cfg.Symbol, cfg.RuleFile)
	}

	bars, err := loadBars(ctx, cfg, rule, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to load bar data")
		log.Fatalf("Failed to load bar data: %v", err)
	}
	appLogger.Info(ctx, "Loaded bars", map[string]interface{}{
		"symbol":    rule.Symbol,
		"timeframe": rule.Timeframe,
		"count":     len(bars),
	})

	btConfig := backtesting.Config{
		InitialEquity: cfg.InitialEquity,
		Side:          domain.Long,
		Leverage:      cfg.Leverage,
		Sizing:        risk.PercentRisk{RiskPercent: cfg.MaxRiskPercentPerTrade},
		Risk: domain.RiskConfig{
			MaxRiskPercentPerTrade: cfg.MaxRiskPercentPerTrade,
			MaxLeverage:            cfg.MaxLeverage,
			MaxOpenPositions:       cfg.MaxOpenPositions,
			MaxDailyLossPercent:    cfg.MaxDailyLossPercent,
		},
		StopLossPercent:     cfg.StopLossPercent,
		TakeProfitPercent:   cfg.TakeProfitPercent,
		TrailingStopPercent: cfg.TrailingStopPercent,
		Slippage:            backtesting.NewSlippageModel(cfg.SlippageSeed, cfg.SlippageMaxFraction),
		Analytics:           analytics.Options{PeriodsPerYear: periodsPerYear(rule.Timeframe)},
	}

	result, err := backtesting.Run(ctx, rule, bars, btConfig, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "Backtest failed")
		log.Fatalf("Backtest failed: %v", err)
	}

	report := result.Report
	appLogger.Info(ctx, "Backtest result", map[string]interface{}{
		"Strategy":    rule.Name,
		"Trades":      report.TotalTrades,
		"WinRate":     report.WinRate * 100,
		"TotalReturn": report.TotalReturn * 100,
		"CAGR":        report.CAGR * 100,
		"Sharpe":      ratioString(report.Sharpe),
		"Sortino":     ratioString(report.Sortino),
		"Calmar":      ratioString(report.Calmar),
		"MaxDD":       report.MaxDrawdown * 100,
		"Expectancy":  report.Expectancy,
		"Rejected":    result.RejectedOrders,
	})
	for _, mr := range report.SortedMonthlyReturns() {
		appLogger.Info(ctx, "Monthly equity change", map[string]interface{}{
			"month": mr.Month.Format("2006-01"),
			"delta": mr.Return,
		})
	}
}

// pickRule returns the first rule matching the configured symbol, falling
// back to the first rule in the file.
func pickRule(file *rulefile.File, symbol string) *domain.StrategyRule {
	for i := range file.Strategies {
		if file.Strategies[i].Symbol == symbol {
			return &file.Strategies[i]
		}
	}
	if len(file.Strategies) > 0 {
		return &file.Strategies[0]
	}
	return nil
}

// loadBars prefers a local CSV when configured and falls back to fetching
// recent history from Binance.
func loadBars(ctx context.Context, cfg *config.Config, rule *domain.StrategyRule, appLogger *logger.StdLogger) ([]domain.PriceBar, error) {
	if cfg.DataFile != "" {
		return utils.ReadBarsFromCSV(cfg.DataFile)
	}

	feed, err := binanceclient.NewFeed(binanceclient.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		Logger:         appLogger,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxReconnects:  cfg.MaxReconnectAttempts,
	})
	if err != nil {
		return nil, err
	}
	return feed.GetBars(ctx, rule.Symbol, rule.Timeframe, time.Time{}, time.Time{}, cfg.HistoryBars)
}

func periodsPerYear(timeframe string) float64 {
	d, err := time.ParseDuration(timeframe)
	if err != nil || d <= 0 {
		switch timeframe {
		case "1d":
			return 365
		case "1w":
			return 52
		default:
			return 365
		}
	}
	return float64(365*24*time.Hour) / float64(d)
}

func ratioString(r analytics.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", r.Value)
}
