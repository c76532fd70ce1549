package ports

import (
	"context"

	"github.com/sihu-dev/forge-labs-sub006/internal/domain"
)

// ActionDispatcher delivers the actions of a fired trigger to the outside
// world (notifications, order routing, webhooks). Dispatch must only return
// nil once every action has been accepted: the trigger state machine consumes
// an execution slot only after a successful dispatch.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, trigger *domain.Trigger, actions []domain.TriggerAction) error
}
