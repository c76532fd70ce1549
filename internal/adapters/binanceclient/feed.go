// Package binanceclient adapts the Binance futures API to the ports.MarketFeed
// interface. Only the cmd/ drivers touch this package; the engine itself
// never performs I/O.
package binanceclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
)

// Feed implements ports.MarketFeed against Binance futures.
type Feed struct {
	client         *futures.Client
	logger         ports.Logger
	reconnectDelay time.Duration
	maxReconnects  int
}

// Config holds configuration for the Binance feed.
type Config struct {
	APIKey         string
	SecretKey      string
	Logger         ports.Logger
	ReconnectDelay time.Duration // Default 5s
	MaxReconnects  int           // Default 10
}

// NewFeed creates a Binance-backed market feed. Public market data does not
// require credentials, so empty keys are accepted.
func NewFeed(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for the Binance feed", ports.ErrConfigurationError)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 10
	}
	return &Feed{
		client:         futures.NewClient(cfg.APIKey, cfg.SecretKey),
		logger:         cfg.Logger,
		reconnectDelay: cfg.ReconnectDelay,
		maxReconnects:  cfg.MaxReconnects,
	}, nil
}

// GetBars fetches historical bars, paging through the REST API until the
// requested range or limit is covered.
func (f *Feed) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time, limit int) ([]domain.PriceBar, error) {
	const pageLimit = 1500
	var bars []domain.PriceBar
	from := start

	for {
		svc := f.client.NewKlinesService().Symbol(symbol).Interval(timeframe).Limit(pageLimit)
		if !from.IsZero() {
			svc = svc.StartTime(from.UnixMilli())
		}
		if !end.IsZero() {
			svc = svc.EndTime(end.UnixMilli())
		}
		klines, err := svc.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s %s klines: %v", ports.ErrFeedUnavailable, symbol, timeframe, err)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			bar, err := translateKline(k, symbol, timeframe)
			if err != nil {
				return nil, err
			}
			bars = append(bars, bar)
			if limit > 0 && len(bars) >= limit {
				return bars, nil
			}
		}

		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime)
		if (!end.IsZero() && from.After(end)) || len(klines) < pageLimit {
			break
		}
	}
	return bars, nil
}

// StreamBars delivers closed bars to out until the context is canceled.
// Open (in-progress) klines are dropped; the engine only consumes final bars.
func (f *Feed) StreamBars(ctx context.Context, symbol, timeframe string, out chan<- domain.PriceBar) error {
	handler := func(event *futures.WsKlineEvent) {
		if !event.Kline.IsFinal {
			return
		}
		bar, err := translateWsKline(event)
		if err != nil {
			f.logger.Error(ctx, err, "Failed to translate streamed kline", map[string]interface{}{"symbol": symbol})
			return
		}
		select {
		case out <- bar:
		case <-ctx.Done():
		}
	}
	errHandler := func(err error) {
		f.logger.Warn(ctx, "Kline stream error", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	}

	attempt := 0
	for {
		doneCh, stopCh, err := futures.WsKlineServe(symbol, timeframe, handler, errHandler)
		if err != nil {
			attempt++
			if attempt >= f.maxReconnects {
				return fmt.Errorf("%w: %s %s stream after %d attempts: %v",
					ports.ErrConnectionFailed, symbol, timeframe, attempt, err)
			}
			select {
			case <-time.After(f.reconnectDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		attempt = 0
		f.logger.Info(ctx, "Kline stream established", map[string]interface{}{"symbol": symbol, "timeframe": timeframe})

		select {
		case <-doneCh:
			f.logger.Warn(ctx, "Kline stream closed, reconnecting", map[string]interface{}{"symbol": symbol})
		case <-ctx.Done():
			close(stopCh)
			return ctx.Err()
		}
	}
}

func translateKline(k *futures.Kline, symbol, timeframe string) (domain.PriceBar, error) {
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closePrice, err4 := strconv.ParseFloat(k.Close, 64)
	volume, err5 := strconv.ParseFloat(k.Volume, 64)
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("failed to parse kline numeric field for %s: %w", symbol, err)
		}
	}
	return domain.PriceBar{
		OpenTime:  time.UnixMilli(k.OpenTime),
		CloseTime: time.UnixMilli(k.CloseTime),
		Symbol:    symbol,
		Timeframe: timeframe,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		IsFinal:   true,
	}, nil
}

func translateWsKline(event *futures.WsKlineEvent) (domain.PriceBar, error) {
	k := event.Kline
	return translateKline(&futures.Kline{
		OpenTime:  k.StartTime,
		CloseTime: k.EndTime,
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}, event.Symbol, k.Interval)
}
