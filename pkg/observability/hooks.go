package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// LogHooks returns lifecycle hooks writing an audit trail to logger.
// Turns, revisions and exceptions are logged at Info, node evaluations at Debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"turn", e.Turn,
				"expr", e.Expression,
				"goal", e.Goal,
				"failed", e.Failed,
				"duration", e.Duration,
			)
		},
		OnNodeEvaluated: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_evaluated",
				"turn", e.Turn,
				"node_id", e.NodeID,
				"type", e.NodeType,
				"level", e.Level,
				"duration", e.Duration,
			)
		},
		OnException: func(ctx context.Context, e *domain.ExceptionEvent) {
			logger.InfoContext(ctx, "exception",
				"turn", e.Turn,
				"kind", e.Err.Kind,
				"node_id", e.Err.NodeID,
				"msg", e.Err.Message,
				"absorbed", e.Absorbed,
			)
		},
		OnRevise: func(ctx context.Context, e *domain.ReviseEvent) {
			logger.InfoContext(ctx, "revise",
				"turn", e.Turn,
				"mode", e.Mode,
				"old_root", e.OldRoot,
				"new_root", e.NewRoot,
				"target", e.Target,
				"duplicated", e.Duplicated,
			)
		},
	}
}
