package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

func TestNewState_RejectsInvalidSpec(t *testing.T) {
	_, err := NewState(map[string]domain.IndicatorSpec{
		"bad": {Kind: domain.IndicatorSMA},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

// Incrementally appended bars must yield exactly the values the batch
// computation produces at every offset.
func TestState_MatchesBatchComputation(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 102, 104, 106, 105, 107, 103}
	bars := barsFromCloses(closes...)
	specs := map[string]domain.IndicatorSpec{
		"sma":   {Kind: domain.IndicatorSMA, Period: 3},
		"rsi":   {Kind: domain.IndicatorRSI, Period: 3},
		"bands": {Kind: domain.IndicatorBollinger, Period: 4, Multiplier: 2},
		"macd":  {Kind: domain.IndicatorMACD, FastPeriod: 2, SlowPeriod: 4, SignalPeriod: 2},
	}

	batch := make(map[string]Output, len(specs))
	for name, spec := range specs {
		out, err := Compute(bars, spec)
		require.NoError(t, err)
		batch[name] = out
	}

	state, err := NewState(specs)
	require.NoError(t, err)

	for i, bar := range bars {
		state.Append(bar)
		for name, spec := range specs {
			for _, component := range componentNames(spec.Kind) {
				wantValue, wantOK := batch[name].Value(component, i)
				gotValue, gotOK := state.Value(name, component)
				assert.Equal(t, wantOK, gotOK, "bar %d %s.%s defined", i, name, component)
				if wantOK {
					assert.InDelta(t, wantValue, gotValue, 1e-9, "bar %d %s.%s", i, name, component)
				}
			}
		}
	}
	assert.Equal(t, len(bars), state.BarCount())
}

func TestState_Ready(t *testing.T) {
	state, err := NewState(map[string]domain.IndicatorSpec{
		"fast": {Kind: domain.IndicatorSMA, Period: 2},
		"slow": {Kind: domain.IndicatorSMA, Period: 4},
	})
	require.NoError(t, err)

	bars := barsFromCloses(1, 2, 3, 4, 5)
	for i, bar := range bars {
		state.Append(bar)
		// Ready only once the slowest indicator has left warm-up.
		assert.Equal(t, i >= 3, state.Ready(), "after bar %d", i)
	}
}

func TestState_Context(t *testing.T) {
	state, err := NewState(map[string]domain.IndicatorSpec{
		"sma":   {Kind: domain.IndicatorSMA, Period: 2},
		"bands": {Kind: domain.IndicatorBollinger, Period: 2, Multiplier: 2},
	})
	require.NoError(t, err)

	assert.Empty(t, state.Context())

	for _, bar := range barsFromCloses(10, 20) {
		state.Append(bar)
	}

	ctx := state.Context()
	assert.Equal(t, 20.0, ctx["close"])
	assert.Equal(t, 20.0, ctx["open"])
	assert.Equal(t, 1000.0, ctx["volume"])

	// Single-output indicators publish under their plain name,
	// multi-output ones under name.component.
	assert.InDelta(t, 15.0, ctx["sma"], 1e-9)
	assert.InDelta(t, 15.0, ctx["bands.middle"], 1e-9)
	_, hasPlainBands := ctx["bands"]
	assert.False(t, hasPlainBands)
}
