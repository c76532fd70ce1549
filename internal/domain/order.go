package domain

// RiskConfig holds the account-level risk limits this engine enforces.
// It is owned by the account/strategy configuration and read-only here.
type RiskConfig struct {
	MaxRiskPercentPerTrade float64 // e.g., 0.02 for 2% of equity per trade
	MaxLeverage            int
	MaxOpenPositions       int
	MaxDailyLossPercent    float64 // e.g., 0.05 for 5% of equity per day
}

// OrderRequest is a candidate order submitted for validation.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   float64
	EntryPrice float64
	StopLoss   float64 // 0 when no stop is attached
	Leverage   int
}

// AccountSnapshot is the caller-supplied account state an order is validated
// against. DailyLoss is the cumulative realized loss for the current day,
// expressed as a positive number.
type AccountSnapshot struct {
	Equity            float64
	AvailableMargin   float64
	OpenPositionCount int
	DailyLoss         float64
}

// OrderValidation aggregates every finding for a candidate order.
// Errors always block; warnings never do.
type OrderValidation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}
