// Package trigger implements the long-lived automation unit wrapping a
// condition group with temporal guards: cooldown, execution cap and expiry.
//
// Firing is debounced, not edge-triggered: a condition that stays
// continuously true re-fires only after the cooldown window has elapsed,
// regardless of how often it is re-evaluated in between.
package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/conditions"
)

// Config holds the collaborators of the state machine. Clock is injectable
// so backtests can drive triggers on bar time and tests stay deterministic.
type Config struct {
	Repository ports.TriggerRepository
	Dispatcher ports.ActionDispatcher
	Clock      ports.Clock
	Logger     ports.Logger
}

// Machine owns every trigger state transition. Evaluate-and-fire is
// serialized per trigger ID so two concurrent evaluations can never both
// observe an elapsed cooldown and fire twice.
type Machine struct {
	repo       ports.TriggerRepository
	dispatcher ports.ActionDispatcher
	clock      ports.Clock
	logger     ports.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMachine creates a trigger state machine.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("%w: trigger repository is required", ports.ErrConfigurationError)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("%w: action dispatcher is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock()
	}
	return &Machine{
		repo:       cfg.Repository,
		dispatcher: cfg.Dispatcher,
		clock:      clock,
		logger:     cfg.Logger,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the single mutex owning the trigger ID.
func (m *Machine) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Evaluate runs one evaluate-and-fire cycle for the trigger against the
// field context. It returns whether the trigger fired. The trigger fires
// only when its condition group is satisfied, it is active, its cooldown has
// elapsed and its execution cap is not reached. Execution count and
// lastTriggeredAt advance only after the dispatcher confirms delivery, so a
// failed dispatch never consumes an execution slot and the trigger may retry.
func (m *Machine) Evaluate(ctx context.Context, trg *domain.Trigger, evalCtx conditions.Context) (bool, error) {
	lock := m.lockFor(trg.ID)
	lock.Lock()
	defer lock.Unlock()

	now := m.clock.Now()

	// Expiry transition precedes everything else.
	if trg.Status == domain.TriggerActive && trg.ExpiresAt != nil && now.After(*trg.ExpiresAt) {
		trg.Status = domain.TriggerExpired
		if err := m.repo.Save(ctx, trg); err != nil {
			return false, fmt.Errorf("persisting expired trigger %s: %w", trg.ID, err)
		}
		m.logger.Info(ctx, "Trigger expired", map[string]interface{}{"triggerID": trg.ID, "expiresAt": trg.ExpiresAt})
		return false, nil
	}

	if !trg.IsActive() {
		return false, nil
	}

	// Exhaustion can be observed before a fire attempt when the cap was
	// reached in an earlier cycle but the transition was not persisted.
	if trg.MaxExecutions > 0 && trg.ExecutionCount >= trg.MaxExecutions {
		trg.Status = domain.TriggerExhausted
		if err := m.repo.Save(ctx, trg); err != nil {
			return false, fmt.Errorf("persisting exhausted trigger %s: %w", trg.ID, err)
		}
		m.logger.Info(ctx, "Trigger exhausted", map[string]interface{}{"triggerID": trg.ID, "executions": trg.ExecutionCount})
		return false, nil
	}

	res := conditions.EvaluateGroup(trg.Conditions, evalCtx)
	if !res.Satisfied {
		return false, nil
	}

	// Debounce: a still-true condition inside the cooldown window does not
	// re-fire.
	if trg.LastTriggeredAt != nil && now.Sub(*trg.LastTriggeredAt) < trg.Cooldown {
		m.logger.Debug(ctx, "Trigger suppressed by cooldown", map[string]interface{}{
			"triggerID": trg.ID,
			"cooldown":  trg.Cooldown.String(),
			"lastFired": trg.LastTriggeredAt,
		})
		return false, nil
	}

	if err := m.dispatcher.Dispatch(ctx, trg, trg.Actions); err != nil {
		// The execution slot stays unconsumed so the trigger may retry.
		m.logger.Error(ctx, err, "Trigger action dispatch failed", map[string]interface{}{"triggerID": trg.ID})
		return false, fmt.Errorf("%w: trigger %s: %v", ports.ErrDispatchFailed, trg.ID, err)
	}

	trg.ExecutionCount++
	fired := now
	trg.LastTriggeredAt = &fired
	if trg.MaxExecutions > 0 && trg.ExecutionCount >= trg.MaxExecutions {
		trg.Status = domain.TriggerExhausted
	}
	if err := m.repo.Save(ctx, trg); err != nil {
		// The fire happened; surface the persistence failure to the caller.
		return true, fmt.Errorf("persisting fired trigger %s: %w", trg.ID, err)
	}

	m.logger.Info(ctx, "Trigger fired", map[string]interface{}{
		"triggerID":  trg.ID,
		"executions": trg.ExecutionCount,
		"matched":    res.Matched,
		"status":     trg.Status,
	})
	return true, nil
}

// Pause transitions an active trigger to paused. It is a manual toggle for
// an external actor; paused triggers never fire.
func (m *Machine) Pause(ctx context.Context, trg *domain.Trigger) error {
	lock := m.lockFor(trg.ID)
	lock.Lock()
	defer lock.Unlock()

	if trg.Status != domain.TriggerActive {
		return fmt.Errorf("%w: cannot pause trigger %s in status %s", ports.ErrTriggerNotFireable, trg.ID, trg.Status)
	}
	trg.Status = domain.TriggerPaused
	if err := m.repo.Save(ctx, trg); err != nil {
		return fmt.Errorf("persisting paused trigger %s: %w", trg.ID, err)
	}
	m.logger.Info(ctx, "Trigger paused", map[string]interface{}{"triggerID": trg.ID})
	return nil
}

// Resume transitions a paused trigger back to active.
func (m *Machine) Resume(ctx context.Context, trg *domain.Trigger) error {
	lock := m.lockFor(trg.ID)
	lock.Lock()
	defer lock.Unlock()

	if trg.Status != domain.TriggerPaused {
		return fmt.Errorf("%w: cannot resume trigger %s in status %s", ports.ErrTriggerNotFireable, trg.ID, trg.Status)
	}
	trg.Status = domain.TriggerActive
	if err := m.repo.Save(ctx, trg); err != nil {
		return fmt.Errorf("persisting resumed trigger %s: %w", trg.ID, err)
	}
	m.logger.Info(ctx, "Trigger resumed", map[string]interface{}{"triggerID": trg.ID})
	return nil
}
