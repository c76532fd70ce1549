package domain

import "time"

// Position represents an open or closed trading position.
type Position struct {
	ID         int64
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64 // 0 while open
	Quantity   float64
	Leverage   int
	StopLoss   float64
	TakeProfit float64
	EntryTime  time.Time
	ExitTime   time.Time // zero value while open
	Status     PositionStatus
	PNL        float64 // calculated on close

	CloseReason CloseReason

	// Trailing stop parameters. TrailingStopPrice only ever moves in the
	// position's favorable direction.
	TrailingStopDistance float64
	TrailingStopPrice    float64
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}
