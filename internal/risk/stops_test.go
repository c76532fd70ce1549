package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

func TestRequiredMargin(t *testing.T) {
	assert.InDelta(t, 1000.0, RequiredMargin(10000, 10), 1e-9)
	assert.InDelta(t, 10000.0, RequiredMargin(10000, 1), 1e-9)
	// Leverage below 1 is treated as unleveraged.
	assert.InDelta(t, 10000.0, RequiredMargin(10000, 0), 1e-9)
}

func TestCurrentLeverage(t *testing.T) {
	assert.InDelta(t, 2.5, CurrentLeverage(25000, 10000), 1e-9)
	assert.Equal(t, 0.0, CurrentLeverage(25000, 0))
}

func TestLiquidationPrice(t *testing.T) {
	tests := []struct {
		name     string
		entry    float64
		side     domain.Side
		leverage int
		mmr      float64
		want     float64
	}{
		{name: "long 10x", entry: 100, side: domain.Long, leverage: 10, mmr: 0.005, want: 90.5},
		{name: "short 10x", entry: 100, side: domain.Short, leverage: 10, mmr: 0.005, want: 109.5},
		{name: "long 1x no maintenance", entry: 100, side: domain.Long, leverage: 1, mmr: 0, want: 0},
		{name: "lower leverage sits further from entry", entry: 100, side: domain.Long, leverage: 2, mmr: 0.005, want: 50.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LiquidationPrice(tt.entry, tt.side, tt.leverage, tt.mmr)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPercentStopAndTarget(t *testing.T) {
	assert.InDelta(t, 98.0, PercentStop(100, domain.Long, 0.02), 1e-9)
	assert.InDelta(t, 102.0, PercentStop(100, domain.Short, 0.02), 1e-9)
	assert.InDelta(t, 104.0, PercentTarget(100, domain.Long, 0.04), 1e-9)
	assert.InDelta(t, 96.0, PercentTarget(100, domain.Short, 0.04), 1e-9)
}

func TestATRStopAndTarget(t *testing.T) {
	assert.InDelta(t, 95.0, ATRStop(100, domain.Long, 2, 2.5), 1e-9)
	assert.InDelta(t, 105.0, ATRStop(100, domain.Short, 2, 2.5), 1e-9)
	assert.InDelta(t, 105.0, ATRTarget(100, domain.Long, 2, 2.5), 1e-9)
	assert.InDelta(t, 95.0, ATRTarget(100, domain.Short, 2, 2.5), 1e-9)
}

func TestRRTarget(t *testing.T) {
	// Risk distance 5, reward 2R.
	assert.InDelta(t, 110.0, RRTarget(100, 95, domain.Long, 2), 1e-9)
	assert.InDelta(t, 90.0, RRTarget(100, 105, domain.Short, 2), 1e-9)
}

func TestNextTrailingStop_RatchetsOnly(t *testing.T) {
	// Long: price 100, distance 2 => candidate 98, above the current 95.
	assert.InDelta(t, 98.0, NextTrailingStop(domain.Long, 95, 100, 2), 1e-9)
	// Price pulls back: the stop must not loosen.
	assert.InDelta(t, 98.0, NextTrailingStop(domain.Long, 98, 99, 2), 1e-9)
	// Unset stop takes the candidate directly.
	assert.InDelta(t, 98.0, NextTrailingStop(domain.Long, 0, 100, 2), 1e-9)

	// Short mirrors: the stop only ever moves down.
	assert.InDelta(t, 102.0, NextTrailingStop(domain.Short, 105, 100, 2), 1e-9)
	assert.InDelta(t, 102.0, NextTrailingStop(domain.Short, 102, 101, 2), 1e-9)
}

func TestPNL(t *testing.T) {
	assert.InDelta(t, 50.0, PNL(domain.Long, 100, 105, 10), 1e-9)
	assert.InDelta(t, -50.0, PNL(domain.Long, 100, 95, 10), 1e-9)
	assert.InDelta(t, 50.0, PNL(domain.Short, 100, 95, 10), 1e-9)
	assert.InDelta(t, -50.0, PNL(domain.Short, 100, 105, 10), 1e-9)
}

func TestRMultiple(t *testing.T) {
	// Risked 5 * 20 = 100; pnl 200 => 2R.
	r, ok := RMultiple(200, 100, 95, 20)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, r, 1e-9)

	r, ok = RMultiple(-100, 100, 95, 20)
	assert.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)

	// Degenerate risk distance is undefined, not zero R.
	_, ok = RMultiple(200, 100, 100, 20)
	assert.False(t, ok)
	_, ok = RMultiple(200, 100, 95, 0)
	assert.False(t, ok)
}
