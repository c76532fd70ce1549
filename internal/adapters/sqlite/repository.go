package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TriggerRepository and ports.StrategyRepository
// using SQLite. Condition groups, actions and indicator maps are stored as
// JSON columns; the engine treats them as opaque structured data.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/engine.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the monitor loop and readers.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite repository ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS triggers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		conditions TEXT NOT NULL,
		actions TEXT NOT NULL,
		cooldown_ns INTEGER NOT NULL,
		max_executions INTEGER NOT NULL,
		expires_at TIMESTAMP DEFAULT NULL,
		status TEXT NOT NULL,
		execution_count INTEGER NOT NULL DEFAULT 0,
		last_triggered_at TIMESTAMP DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS strategy_rules (
		name TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		indicators TEXT NOT NULL,
		entry TEXT NOT NULL,
		exit TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_triggers_symbol_status ON triggers (symbol, status);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TriggerRepository Implementation ---

// Load retrieves a trigger by ID. Returns nil, nil when not found.
func (r *Repository) Load(ctx context.Context, id string) (*domain.Trigger, error) {
	const query = `
	SELECT id, name, symbol, conditions, actions, cooldown_ns, max_executions,
	       expires_at, status, execution_count, last_triggered_at
	FROM triggers WHERE id = ?`

	trg, err := scanTrigger(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trigger %s: %w", id, err)
	}
	return trg, nil
}

// Save inserts or updates a trigger.
func (r *Repository) Save(ctx context.Context, trg *domain.Trigger) error {
	conditionsJSON, err := json.Marshal(trg.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions for trigger %s: %w", trg.ID, err)
	}
	actionsJSON, err := json.Marshal(trg.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions for trigger %s: %w", trg.ID, err)
	}

	const query = `
	INSERT INTO triggers (id, name, symbol, conditions, actions, cooldown_ns, max_executions,
	                      expires_at, status, execution_count, last_triggered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		symbol = excluded.symbol,
		conditions = excluded.conditions,
		actions = excluded.actions,
		cooldown_ns = excluded.cooldown_ns,
		max_executions = excluded.max_executions,
		expires_at = excluded.expires_at,
		status = excluded.status,
		execution_count = excluded.execution_count,
		last_triggered_at = excluded.last_triggered_at`

	_, err = r.db.ExecContext(ctx, query,
		trg.ID, trg.Name, trg.Symbol, string(conditionsJSON), string(actionsJSON),
		trg.Cooldown.Nanoseconds(), trg.MaxExecutions,
		nullableTime(trg.ExpiresAt), string(trg.Status), trg.ExecutionCount,
		nullableTime(trg.LastTriggeredAt))
	if err != nil {
		return fmt.Errorf("failed to save trigger %s: %w", trg.ID, err)
	}
	r.logger.Debug(ctx, "Trigger saved", map[string]interface{}{"triggerID": trg.ID, "status": trg.Status})
	return nil
}

// List retrieves triggers matching the filter, ordered by name.
func (r *Repository) List(ctx context.Context, filter ports.TriggerFilter) ([]*domain.Trigger, error) {
	query := `
	SELECT id, name, symbol, conditions, actions, cooldown_ns, max_executions,
	       expires_at, status, execution_count, last_triggered_at
	FROM triggers WHERE 1=1`
	args := make([]interface{}, 0, 2)
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	triggers := make([]*domain.Trigger, 0)
	for rows.Next() {
		trg, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger during List: %w", err)
		}
		triggers = append(triggers, trg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trigger rows: %w", err)
	}
	return triggers, nil
}

// --- StrategyRepository Implementation ---

// LoadRule retrieves a strategy rule by name. Returns nil, nil when not found.
func (r *Repository) LoadRule(ctx context.Context, name string) (*domain.StrategyRule, error) {
	const query = `SELECT name, symbol, timeframe, indicators, entry, exit FROM strategy_rules WHERE name = ?`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query strategy rule %s: %w", name, err)
	}
	return rule, nil
}

// SaveRule inserts or updates a strategy rule.
func (r *Repository) SaveRule(ctx context.Context, rule *domain.StrategyRule) error {
	indicatorsJSON, err := json.Marshal(rule.Indicators)
	if err != nil {
		return fmt.Errorf("failed to encode indicators for rule %s: %w", rule.Name, err)
	}
	entryJSON, err := json.Marshal(rule.Entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry group for rule %s: %w", rule.Name, err)
	}
	exitJSON, err := json.Marshal(rule.Exit)
	if err != nil {
		return fmt.Errorf("failed to encode exit group for rule %s: %w", rule.Name, err)
	}

	const query = `
	INSERT INTO strategy_rules (name, symbol, timeframe, indicators, entry, exit)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		symbol = excluded.symbol,
		timeframe = excluded.timeframe,
		indicators = excluded.indicators,
		entry = excluded.entry,
		exit = excluded.exit`

	if _, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Symbol, rule.Timeframe,
		string(indicatorsJSON), string(entryJSON), string(exitJSON)); err != nil {
		return fmt.Errorf("failed to save strategy rule %s: %w", rule.Name, err)
	}
	r.logger.Debug(ctx, "Strategy rule saved", map[string]interface{}{"rule": rule.Name})
	return nil
}

// ListRules retrieves all stored rules ordered by name.
func (r *Repository) ListRules(ctx context.Context) ([]*domain.StrategyRule, error) {
	const query = `SELECT name, symbol, timeframe, indicators, entry, exit FROM strategy_rules ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy rules: %w", err)
	}
	defer rows.Close()

	rules := make([]*domain.StrategyRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy rule during ListRules: %w", err)
		}
		rules = append(rules, rule)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy rule rows: %w", err)
	}
	return rules, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrigger(s scanner) (*domain.Trigger, error) {
	trg := &domain.Trigger{}
	var conditionsJSON, actionsJSON, status string
	var cooldownNS int64
	var expiresAt, lastTriggeredAt sql.NullTime

	err := s.Scan(&trg.ID, &trg.Name, &trg.Symbol, &conditionsJSON, &actionsJSON,
		&cooldownNS, &trg.MaxExecutions, &expiresAt, &status, &trg.ExecutionCount, &lastTriggeredAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	if err := json.Unmarshal([]byte(conditionsJSON), &trg.Conditions); err != nil {
		return nil, fmt.Errorf("failed to decode conditions for trigger %s: %w", trg.ID, err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &trg.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions for trigger %s: %w", trg.ID, err)
	}
	trg.Cooldown = time.Duration(cooldownNS)
	trg.Status = domain.TriggerStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		trg.ExpiresAt = &t
	}
	if lastTriggeredAt.Valid {
		t := lastTriggeredAt.Time
		trg.LastTriggeredAt = &t
	}
	return trg, nil
}

func scanRule(s scanner) (*domain.StrategyRule, error) {
	rule := &domain.StrategyRule{}
	var indicatorsJSON, entryJSON, exitJSON string

	err := s.Scan(&rule.Name, &rule.Symbol, &rule.Timeframe, &indicatorsJSON, &entryJSON, &exitJSON)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	if err := json.Unmarshal([]byte(indicatorsJSON), &rule.Indicators); err != nil {
		return nil, fmt.Errorf("failed to decode indicators for rule %s: %w", rule.Name, err)
	}
	if err := json.Unmarshal([]byte(entryJSON), &rule.Entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry group for rule %s: %w", rule.Name, err)
	}
	if err := json.Unmarshal([]byte(exitJSON), &rule.Exit); err != nil {
		return nil, fmt.Errorf("failed to decode exit group for rule %s: %w", rule.Name, err)
	}
	return rule, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
