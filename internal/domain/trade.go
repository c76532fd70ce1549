package domain

import "time"

// Trade represents a completed round trip. Immutable once closed.
type Trade struct {
	ID          int64       // Unique identifier (usually from DB)
	PositionID  int64       // Identifier of the position this trade closed (optional)
	Symbol      string      // Trading symbol (e.g., "ETHUSDT")
	Side        Side        // Direction of the position
	EntryPrice  float64     // Price at which the position was entered
	ExitPrice   float64     // Price at which the position was exited
	Quantity    float64     // Size of the position traded
	Leverage    int         // Leverage used for the position
	PNL         float64     // Realized profit and loss
	EntryTime   time.Time   // Timestamp when the position was entered
	ExitTime    time.Time   // Timestamp when the position was exited
	CloseReason CloseReason // Reason why the position was closed (SL, TP, etc.)
}

// HoldingPeriod returns how long the position stayed open.
func (t *Trade) HoldingPeriod() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
