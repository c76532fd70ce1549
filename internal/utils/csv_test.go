package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

func TestBarsCSVRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := []domain.PriceBar{
		{
			OpenTime:  start,
			CloseTime: start.Add(time.Hour),
			Symbol:    "ETHUSDT",
			Timeframe: "1h",
			Open:      2000.5,
			High:      2010.25,
			Low:       1995,
			Close:     2008.125,
			Volume:    12345.678,
			IsFinal:   true,
		},
		{
			OpenTime:  start.Add(time.Hour),
			CloseTime: start.Add(2 * time.Hour),
			Symbol:    "ETHUSDT",
			Timeframe: "1h",
			Open:      2008.125,
			High:      2020,
			Low:       2001,
			Close:     2015,
			Volume:    9876.5,
			IsFinal:   true,
		},
	}

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, WriteBarsToCSV(bars, path))

	loaded, err := ReadBarsFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, bars, loaded)
}

func TestReadBarsFromCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, WriteBarsToCSV(nil, path))

	loaded, err := ReadBarsFromCSV(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReadBarsFromCSV_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadBarsFromCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	badTime := filepath.Join(dir, "bad_time.csv")
	require.NoError(t, os.WriteFile(badTime, []byte(
		"open_time,close_time,symbol,timeframe,open,high,low,close,volume\n"+
			"yesterday,2025-03-01T01:00:00Z,ETHUSDT,1h,1,2,0.5,1.5,100\n"), 0644))
	_, err = ReadBarsFromCSV(badTime)
	assert.Error(t, err)

	badNumber := filepath.Join(dir, "bad_number.csv")
	require.NoError(t, os.WriteFile(badNumber, []byte(
		"open_time,close_time,symbol,timeframe,open,high,low,close,volume\n"+
			"2025-03-01T00:00:00Z,2025-03-01T01:00:00Z,ETHUSDT,1h,1,2,0.5,oops,100\n"), 0644))
	_, err = ReadBarsFromCSV(badNumber)
	assert.Error(t, err)
}
