package domain

import "time"

// TriggerStatus is the lifecycle state of a trigger.
type TriggerStatus string

const (
	TriggerActive    TriggerStatus = "active"
	TriggerPaused    TriggerStatus = "paused"
	TriggerExpired   TriggerStatus = "expired"
	TriggerExhausted TriggerStatus = "exhausted"
)

// TriggerAction describes one action dispatched when a trigger fires.
// Dispatch itself is an external collaborator concern.
type TriggerAction struct {
	Kind   string            `yaml:"kind"`
	Params map[string]string `yaml:"params,omitempty"`
}

// Trigger is a longer-lived automation unit wrapping a condition group with
// temporal guards (cooldown, execution cap, expiry). It is created by a
// strategy author and mutated only through the trigger state machine.
type Trigger struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	Symbol          string          `yaml:"symbol"`
	Conditions      ConditionGroup  `yaml:"conditions"`
	Actions         []TriggerAction `yaml:"actions"`
	Cooldown        time.Duration   `yaml:"cooldown"`
	MaxExecutions   int             `yaml:"max_executions"`
	ExpiresAt       *time.Time      `yaml:"expires_at,omitempty"`
	Status          TriggerStatus   `yaml:"status"`
	ExecutionCount  int             `yaml:"execution_count"`
	LastTriggeredAt *time.Time      `yaml:"last_triggered_at,omitempty"`
}

// IsActive reports whether the trigger may still fire.
func (t *Trigger) IsActive() bool {
	return t.Status == TriggerActive
}
