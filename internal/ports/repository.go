package ports

import (
	"context"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// TriggerFilter narrows List results. Zero-value fields are ignored.
type TriggerFilter struct {
	Symbol string
	Status domain.TriggerStatus
}

// TriggerRepository persists triggers. The state machine only loads and saves;
// deletion is an external repository concern.
type TriggerRepository interface {
	// Load retrieves a trigger by ID. Returns nil, nil when not found.
	Load(ctx context.Context, id string) (*domain.Trigger, error)
	// Save inserts or updates a trigger.
	Save(ctx context.Context, trigger *domain.Trigger) error
	// List retrieves triggers matching the filter.
	List(ctx context.Context, filter TriggerFilter) ([]*domain.Trigger, error)
}

// StrategyRepository persists strategy rule sets.
type StrategyRepository interface {
	// LoadRule retrieves a strategy rule by name. Returns nil, nil when not found.
	LoadRule(ctx context.Context, name string) (*domain.StrategyRule, error)
	// SaveRule inserts or updates a strategy rule.
	SaveRule(ctx context.Context, rule *domain.StrategyRule) error
	// ListRules retrieves all stored rules ordered by name.
	ListRules(ctx context.Context) ([]*domain.StrategyRule, error)
}
