package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/config"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/binanceclient"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/dispatcher"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/logger"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/rulefile"
	"github.com/sihu-dev/forge-labs-sub006/internal/adapters/sqlite"
	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/indicators"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/signals"
	"github.com/sihu-dev/forge-labs-sub006/internal/trigger"
)

// monitor streams closed bars for one symbol, keeps indicator state warm,
// reports strategy signals and evaluates persisted triggers on every bar.
type monitor struct {
	cfg     *config.Config
	logger  *logger.StdLogger
	repo    *sqlite.Repository
	feed    *binanceclient.Feed
	machine *trigger.Machine
	rule    *domain.StrategyRule
	state   *indicators.State
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	feed, err := binanceclient.NewFeed(binanceclient.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		Logger:         appLogger,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxReconnects:  cfg.MaxReconnectAttempts,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance feed: %v", err)
	}

	machine, err := trigger.NewMachine(trigger.Config{
		Repository: repo,
		Dispatcher: dispatcher.NewLogDispatcher(appLogger),
		Clock:      ports.SystemClock(),
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trigger machine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := &monitor{
		cfg:     cfg,
		logger:  appLogger,
		repo:    repo,
		feed:    feed,
		machine: machine,
	}
	if err := m.loadRules(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load rules")
		log.Fatalf("FATAL: Failed to load rules: %v", err)
	}

	if err := m.run(ctx); err != nil && ctx.Err() == nil {
		appLogger.Error(ctx, err, "Monitor exited with error")
		log.Fatalf("FATAL: Monitor exited with error: %v", err)
	}
	appLogger.Info(context.Background(), "Monitor stopped gracefully")
}

// loadRules reads the rule file, persists its triggers so their state
// survives restarts, and prepares indicator state for the configured symbol.
func (m *monitor) loadRules(ctx context.Context) error {
	file, err := rulefile.Load(m.cfg.RuleFile)
	if err != nil {
		return err
	}

	for i := range file.Triggers {
		trg := &file.Triggers[i]
		// Existing state wins over the file definition.
		existing, err := m.repo.Load(ctx, trg.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := m.repo.Save(ctx, trg); err != nil {
			return err
		}
		m.logger.Info(ctx, "Trigger registered", map[string]interface{}{"id": trg.ID, "name": trg.Name})
	}

	for i := range file.Strategies {
		if file.Strategies[i].Symbol == m.cfg.Symbol {
			m.rule = &file.Strategies[i]
			break
		}
	}
	if m.rule == nil {
		m.logger.Warn(ctx, "No strategy rule for symbol, trigger evaluation only",
			map[string]interface{}{"symbol": m.cfg.Symbol})
		return nil
	}

	state, err := indicators.NewState(m.rule.Indicators)
	if err != nil {
		return err
	}
	m.state = state

	// Warm up from history so signals fire immediately on the first live bar.
	limit := m.cfg.HistoryBars
	if w := m.warmupWindow(); w > limit {
		limit = w
	}
	bars, err := m.feed.GetBars(ctx, m.rule.Symbol, m.rule.Timeframe, time.Time{}, time.Time{}, limit)
	if err != nil {
		return err
	}
	for _, bar := range bars {
		m.state.Append(bar)
	}
	m.logger.Info(ctx, "Indicator state warmed up", map[string]interface{}{
		"symbol": m.rule.Symbol,
		"bars":   len(bars),
	})
	return nil
}

func (m *monitor) run(ctx context.Context) error {
	timeframe := m.cfg.Timeframe
	if m.rule != nil {
		timeframe = m.rule.Timeframe
	}

	barCh := make(chan domain.PriceBar, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.feed.StreamBars(ctx, m.cfg.Symbol, timeframe, barCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case bar := <-barCh:
			m.onBar(ctx, bar)
		}
	}
}

func (m *monitor) onBar(ctx context.Context, bar domain.PriceBar) {
	if m.state != nil {
		m.state.Append(bar)
		if sig := signals.Detect(bar, m.rule, m.state); sig != nil {
			m.logger.Info(ctx, "Signal detected", map[string]interface{}{
				"kind":       string(sig.Kind),
				"symbol":     sig.Symbol,
				"price":      sig.Price,
				"confidence": sig.Confidence,
				"matched":    sig.MatchedConditions,
			})
		}
	}

	evalCtx := m.evalContext(bar)
	triggers, err := m.repo.List(ctx, ports.TriggerFilter{Symbol: bar.Symbol, Status: domain.TriggerActive})
	if err != nil {
		m.logger.Error(ctx, err, "Failed to list active triggers")
		return
	}
	for _, trg := range triggers {
		fired, err := m.machine.Evaluate(ctx, trg, evalCtx)
		if err != nil {
			m.logger.Error(ctx, err, "Trigger evaluation failed", map[string]interface{}{"id": trg.ID})
			continue
		}
		if fired {
			m.logger.Info(ctx, "Trigger fired", map[string]interface{}{
				"id":    trg.ID,
				"name":  trg.Name,
				"count": trg.ExecutionCount,
			})
		}
	}
}

// evalContext exposes bar fields plus any warm indicator values to trigger
// conditions.
func (m *monitor) evalContext(bar domain.PriceBar) map[string]float64 {
	if m.state != nil {
		return m.state.Context()
	}
	return map[string]float64{
		"open":   bar.Open,
		"high":   bar.High,
		"low":    bar.Low,
		"close":  bar.Close,
		"volume": bar.Volume,
	}
}

func (m *monitor) warmupWindow() int {
	warmup := 0
	for _, spec := range m.rule.Indicators {
		if w := spec.Warmup(); w > warmup {
			warmup = w
		}
	}
	return warmup + 1
}
