package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// DialogueService is the driving port used by adapters (HTTP, MCP) to host
// many dialogues at once. Implementations serialize turns per dialogue.
type DialogueService interface {
	// Create starts an empty dialogue and returns its ID.
	Create(ctx context.Context) (string, error)

	// Turn evaluates one P-expression in the dialogue. Evaluation failures
	// are part of the report; only syntax errors, unknown types, missing
	// dialogues and infrastructure failures are returned as errors.
	Turn(ctx context.Context, dialogueID, expression string) (*domain.TurnReport, error)

	// Snapshot describes the goals and pending exceptions of a dialogue.
	Snapshot(ctx context.Context, dialogueID string) (*domain.DialogueSnapshot, error)

	// Delete drops a dialogue and its transcript.
	Delete(ctx context.Context, dialogueID string) error

	// List returns the IDs of the known dialogues.
	List(ctx context.Context) ([]string, error)

	// Types describes the registered node types.
	Types() []domain.TypeInfo
}
