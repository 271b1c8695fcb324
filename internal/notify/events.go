package notify

import (
	"context"
	"fmt"

	"github.com/minuteflip/flipd/internal/domain"
)

// Event types the notifier filter understands. These match the values
// accepted by the notify.events config key.
const (
	EventRoundResolved = "round_resolved"
	EventError         = "error"
)

// RoundResolved formats and dispatches a resolution notice for one settled
// round.
func (n *Notifier) RoundResolved(ctx context.Context, round domain.Round) error {
	title := fmt.Sprintf("Round resolved: %s", round.ID)
	message := fmt.Sprintf(
		"Outcome: %s\nPrice: %.2f -> %.2f\nVolume: $%.2f",
		round.Outcome,
		round.PriceAtStart, round.PriceAtEnd,
		round.Pool.VolumeTraded,
	)
	return n.Notify(ctx, EventRoundResolved, title, message)
}

// Error dispatches an operator alert for a runtime failure in one of the
// background loops.
func (n *Notifier) Error(ctx context.Context, component string, err error) error {
	title := fmt.Sprintf("Error in %s", component)
	return n.Notify(ctx, EventError, title, err.Error())
}
