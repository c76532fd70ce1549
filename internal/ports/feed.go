package ports

import (
	"context"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// MarketFeed supplies price bars to the drivers. The engine packages never
// touch this interface; only cmd/ binaries do.
type MarketFeed interface {
	// GetBars fetches historical bars for a symbol and timeframe.
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.PriceBar, error)
	// StreamBars delivers closed bars until the context is canceled.
	StreamBars(ctx context.Context, symbol, timeframe string, out chan<- domain.PriceBar) error
}
