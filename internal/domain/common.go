package domain

// Side represents the direction of a position or order.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign returns +1 for long and -1 for short positions.
// It is the single place where direction-dependent arithmetic branches.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss    CloseReason = "SL"
	CloseReasonTakeProfit  CloseReason = "TP"
	CloseReasonSignal      CloseReason = "SIGNAL"
	CloseReasonLiquidation CloseReason = "Liquidation"
	CloseReasonEndOfData   CloseReason = "END_OF_DATA"
	CloseReasonManual      CloseReason = "MANUAL"
	CloseReasonUnknown     CloseReason = "Unknown"
)
