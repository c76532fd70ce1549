package domain

import "time"

// PriceBar represents a single OHLCV candlestick.
// Bars are ordered, immutable and unique per (symbol, timeframe, open time).
type PriceBar struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Timeframe string    // Bar interval (e.g., "1m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
	IsFinal   bool      // Whether this bar is closed for its interval
}

// EquityPoint is one sample of an account equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}
