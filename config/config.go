package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/logger"
)

// Config holds all application configuration for the cmd/ drivers.
// The engine packages never read the environment themselves.
type Config struct {
	// Binance API (market data only; empty keys are fine for public endpoints)
	APIKey    string
	SecretKey string

	// Market
	Symbol    string
	Timeframe string

	// Rule sources
	RuleFile string // YAML file with strategies and triggers
	DBPath   string // SQLite store for trigger state
	DataFile string // optional CSV bar series; empty means fetch from Binance

	// Risk Limits (percent limits are fractions, e.g. 0.01 for 1%)
	MaxRiskPercentPerTrade float64
	MaxLeverage            int
	MaxOpenPositions       int
	MaxDailyLossPercent    float64

	// Backtest Parameters
	InitialEquity       float64
	Leverage            int
	StopLossPercent     float64
	TakeProfitPercent   float64
	TrailingStopPercent float64
	SlippageSeed        int64
	SlippageMaxFraction float64
	HistoryBars         int

	// Logging
	LogLevel logger.LogLevel

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")

	// Market
	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Timeframe = getEnv("TIMEFRAME", "1h")
	if cfg.Timeframe == "" {
		errs = append(errs, "TIMEFRAME must be set")
	}

	// Rule sources
	cfg.RuleFile = getEnv("RULE_FILE", "./rules.yaml")
	if cfg.RuleFile == "" {
		errs = append(errs, "RULE_FILE must be set")
	}
	cfg.DBPath = getEnv("DB_PATH", "./data/engine.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.DataFile = getEnv("DATA_FILE", "")

	// Risk Limits
	cfg.MaxRiskPercentPerTrade, err = getEnvAsFloatRequired("MAX_RISK_PER_TRADE", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RISK_PER_TRADE: %v", err))
	} else if cfg.MaxRiskPercentPerTrade <= 0 || cfg.MaxRiskPercentPerTrade >= 1 {
		errs = append(errs, "MAX_RISK_PER_TRADE must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxLeverage, err = getEnvAsIntRequired("MAX_LEVERAGE", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_LEVERAGE: %v", err))
	} else if cfg.MaxLeverage < 1 {
		errs = append(errs, "MAX_LEVERAGE must be at least 1")
	}

	cfg.MaxOpenPositions, err = getEnvAsIntRequired("MAX_OPEN_POSITIONS", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_OPEN_POSITIONS: %v", err))
	} else if cfg.MaxOpenPositions <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be positive")
	}

	cfg.MaxDailyLossPercent, err = getEnvAsFloatRequired("MAX_DAILY_LOSS", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS: %v", err))
	} else if cfg.MaxDailyLossPercent <= 0 || cfg.MaxDailyLossPercent >= 1 {
		errs = append(errs, "MAX_DAILY_LOSS must be between 0.0 and 1.0 (exclusive)")
	}

	// Backtest Parameters
	cfg.InitialEquity, err = getEnvAsFloatRequired("INITIAL_EQUITY", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_EQUITY: %v", err))
	} else if cfg.InitialEquity <= 0 {
		errs = append(errs, "INITIAL_EQUITY must be positive")
	}

	cfg.Leverage, err = getEnvAsIntRequired("LEVERAGE", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	} else if cfg.Leverage < 1 {
		errs = append(errs, "LEVERAGE must be at least 1")
	}

	cfg.StopLossPercent = getEnvAsFloat("STOP_LOSS_PERCENT", 0.02)
	if cfg.StopLossPercent < 0 || cfg.StopLossPercent >= 1.0 {
		errs = append(errs, "STOP_LOSS_PERCENT must be between 0.0 and 1.0")
	}
	cfg.TakeProfitPercent = getEnvAsFloat("TAKE_PROFIT_PERCENT", 0.04)
	if cfg.TakeProfitPercent < 0 {
		errs = append(errs, "TAKE_PROFIT_PERCENT cannot be negative")
	}
	cfg.TrailingStopPercent = getEnvAsFloat("TRAILING_STOP_PERCENT", 0)
	if cfg.TrailingStopPercent < 0 || cfg.TrailingStopPercent >= 1.0 {
		errs = append(errs, "TRAILING_STOP_PERCENT must be between 0.0 and 1.0")
	}

	cfg.SlippageSeed = int64(getEnvAsInt("SLIPPAGE_SEED", 1))
	cfg.SlippageMaxFraction = getEnvAsFloat("SLIPPAGE_MAX_FRACTION", 0.0005)
	if cfg.SlippageMaxFraction < 0 {
		errs = append(errs, "SLIPPAGE_MAX_FRACTION cannot be negative")
	}

	cfg.HistoryBars = getEnvAsInt("HISTORY_BARS", 1000)
	if cfg.HistoryBars <= 0 {
		errs = append(errs, "HISTORY_BARS must be positive")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
