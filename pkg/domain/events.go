package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEvaluated EventType = "node_evaluated"
	EventException     EventType = "exception"
	EventRevise        EventType = "revise"
	EventTurn          EventType = "turn"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Turn      int       `json:"turn"`
}

// NodeEvent is emitted after a node finished evaluating.
type NodeEvent struct {
	EventBase
	NodeID   NodeID        `json:"node_id"`
	NodeType string        `json:"node_type"`
	Level    Level         `json:"level"`
	Duration time.Duration `json:"duration"`
}

// ExceptionEvent is emitted when an error is recorded on the dialogue,
// whether it propagated to the goal or was converted by an ancestor.
type ExceptionEvent struct {
	EventBase
	Err      *Error `json:"error"`
	Absorbed bool   `json:"absorbed,omitempty"`
}

// ReviseEvent is emitted after a successful graph revision.
type ReviseEvent struct {
	EventBase
	Mode       MergeMode `json:"mode"`
	OldRoot    NodeID    `json:"old_root"`
	NewRoot    NodeID    `json:"new_root"`
	Target     NodeID    `json:"target"`
	Duplicated int       `json:"duplicated"`
}

// TurnEvent is emitted when a turn completes.
type TurnEvent struct {
	EventBase
	Expression string        `json:"expression"`
	Goal       NodeID        `json:"goal,omitempty"`
	Failed     bool          `json:"failed,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEvaluated func(context.Context, *NodeEvent)
	OnException     func(context.Context, *ExceptionEvent)
	OnRevise        func(context.Context, *ReviseEvent)
	OnTurn          func(context.Context, *TurnEvent)
}

// Merge returns hooks calling h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEvaluated: chain(h.OnNodeEvaluated, other.OnNodeEvaluated),
		OnException:     chain(h.OnException, other.OnException),
		OnRevise:        chain(h.OnRevise, other.OnRevise),
		OnTurn:          chain(h.OnTurn, other.OnTurn),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
