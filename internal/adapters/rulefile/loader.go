// Package rulefile parses declarative strategy and trigger definition files.
// Definitions are plain structured data; no executable code ever crosses
// this boundary.
package rulefile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/conditions"
	"github.com/sihu-dev/forge-labs-sub006/internal/strategy/indicators"
)

// File is a parsed rule file: any number of strategies and triggers.
type File struct {
	Strategies []domain.StrategyRule
	Triggers   []domain.Trigger
}

// fileDoc is the YAML wire shape. Triggers carry their cooldown and expiry
// as strings so authors can write "90s" or RFC 3339 timestamps.
type fileDoc struct {
	Strategies []domain.StrategyRule `yaml:"strategies"`
	Triggers   []triggerDoc          `yaml:"triggers"`
}

type triggerDoc struct {
	ID            string                 `yaml:"id"`
	Name          string                 `yaml:"name"`
	Symbol        string                 `yaml:"symbol"`
	Conditions    domain.ConditionGroup  `yaml:"conditions"`
	Actions       []domain.TriggerAction `yaml:"actions"`
	Cooldown      string                 `yaml:"cooldown"`
	MaxExecutions int                    `yaml:"max_executions"`
	ExpiresAt     string                 `yaml:"expires_at"`
}

// Load reads and validates a rule file from disk.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates a rule document. Triggers without an ID get a fresh UUID;
// triggers without a status start active.
func Parse(raw []byte) (*File, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidSpec, err)
	}

	out := &File{}
	for i := range doc.Strategies {
		rule := doc.Strategies[i]
		if rule.Name == "" {
			return nil, fmt.Errorf("%w: strategy %d has no name", ports.ErrInvalidSpec, i)
		}
		for name, spec := range rule.Indicators {
			if err := indicators.ValidateSpec(spec); err != nil {
				return nil, fmt.Errorf("strategy %q indicator %q: %w", rule.Name, name, err)
			}
		}
		if err := conditions.ValidateGroup(rule.Entry); err != nil {
			return nil, fmt.Errorf("strategy %q entry: %w", rule.Name, err)
		}
		if err := conditions.ValidateGroup(rule.Exit); err != nil {
			return nil, fmt.Errorf("strategy %q exit: %w", rule.Name, err)
		}
		out.Strategies = append(out.Strategies, rule)
	}

	for i := range doc.Triggers {
		trg, err := buildTrigger(doc.Triggers[i])
		if err != nil {
			return nil, err
		}
		out.Triggers = append(out.Triggers, *trg)
	}
	return out, nil
}

func buildTrigger(doc triggerDoc) (*domain.Trigger, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("%w: trigger has no name", ports.ErrInvalidSpec)
	}
	if err := conditions.ValidateGroup(doc.Conditions); err != nil {
		return nil, fmt.Errorf("trigger %q conditions: %w", doc.Name, err)
	}
	if len(doc.Actions) == 0 {
		return nil, fmt.Errorf("%w: trigger %q has no actions", ports.ErrInvalidSpec, doc.Name)
	}

	trg := &domain.Trigger{
		ID:            doc.ID,
		Name:          doc.Name,
		Symbol:        doc.Symbol,
		Conditions:    doc.Conditions,
		Actions:       doc.Actions,
		MaxExecutions: doc.MaxExecutions,
		Status:        domain.TriggerActive,
	}
	if trg.ID == "" {
		trg.ID = uuid.NewString()
	}

	if doc.Cooldown != "" {
		cooldown, err := time.ParseDuration(doc.Cooldown)
		if err != nil {
			return nil, fmt.Errorf("%w: trigger %q cooldown %q: %v", ports.ErrInvalidSpec, doc.Name, doc.Cooldown, err)
		}
		if cooldown < 0 {
			return nil, fmt.Errorf("%w: trigger %q cooldown must not be negative", ports.ErrInvalidSpec, doc.Name)
		}
		trg.Cooldown = cooldown
	}

	if doc.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, doc.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: trigger %q expires_at %q: %v", ports.ErrInvalidSpec, doc.Name, doc.ExpiresAt, err)
		}
		trg.ExpiresAt = &expiresAt
	}
	return trg, nil
}
