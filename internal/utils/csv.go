package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// WriteBarsToCSV saves a bar series so backtests can replay it offline.
func WriteBarsToCSV(bars []domain.PriceBar, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"open_time", "close_time", "symbol", "timeframe", "open", "high", "low", "close", "volume"})

	for _, b := range bars {
		writer.Write([]string{
			b.OpenTime.Format(time.RFC3339),
			b.CloseTime.Format(time.RFC3339),
			b.Symbol,
			b.Timeframe,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadBarsFromCSV loads a bar series written by WriteBarsToCSV.
// All bars loaded from CSV are treated as final.
func ReadBarsFromCSV(filename string) ([]domain.PriceBar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", filename, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	bars := make([]domain.PriceBar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) != 9 {
			return nil, fmt.Errorf("row %d: expected 9 columns, got %d", i+2, len(rec))
		}
		openTime, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid open_time: %w", i+2, err)
		}
		closeTime, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid close_time: %w", i+2, err)
		}
		bar := domain.PriceBar{
			OpenTime:  openTime,
			CloseTime: closeTime,
			Symbol:    rec[2],
			Timeframe: rec[3],
			IsFinal:   true,
		}
		for j, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
			v, err := strconv.ParseFloat(rec[4+j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid numeric column %d: %w", i+2, 4+j, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
