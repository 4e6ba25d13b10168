package graph

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// Replay runs recorded turns in order to rebuild a dialogue. Hooks are
// muted while replaying so observers only see live turns. Turn failures
// are part of the recorded history and are not reported; cancellation is.
func (d *Dialog) Replay(ctx context.Context, exprs []string) error {
	hooks := d.hooks
	d.hooks = domain.LifecycleHooks{}
	defer func() { d.hooks = hooks }()

	for _, text := range exprs {
		if _, err := d.Turn(ctx, text); err != nil && isContextErr(err) {
			return err
		}
	}
	d.logger.Debug("dialogue replayed", "turns", len(exprs))
	return nil
}
