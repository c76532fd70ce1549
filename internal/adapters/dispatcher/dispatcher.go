// Package dispatcher provides ActionDispatcher implementations for fired
// triggers.
package dispatcher

import (
	"context"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
	"github.com/sihu-dev/forge-labs-sub006/internal/ports"
)

// LogDispatcher records fired actions through the application logger. It is
// the default sink when no order routing or notification channel is wired.
type LogDispatcher struct {
	logger ports.Logger
}

func NewLogDispatcher(logger ports.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, trigger *domain.Trigger, actions []domain.TriggerAction) error {
	for _, action := range actions {
		d.logger.Info(ctx, "Trigger action dispatched", map[string]interface{}{
			"triggerID":   trigger.ID,
			"triggerName": trigger.Name,
			"symbol":      trigger.Symbol,
			"action":      action.Kind,
			"params":      action.Params,
		})
	}
	return nil
}
