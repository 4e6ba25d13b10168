package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// TranscriptStore defines the interface for persisting dialogue transcripts.
// Graphs are never stored; a transcript is enough to replay a dialogue after
// a restart or on another replica.
type TranscriptStore interface {
	// Save persists the transcript for a given dialogue ID.
	Save(ctx context.Context, dialogueID string, t *domain.Transcript) error

	// Load retrieves the transcript for a given dialogue ID.
	// Returns domain.ErrDialogueNotFound if the dialogue does not exist.
	Load(ctx context.Context, dialogueID string) (*domain.Transcript, error)

	// Delete removes the transcript for a given dialogue ID.
	// Deleting a missing dialogue is not an error.
	Delete(ctx context.Context, dialogueID string) error

	// List returns the IDs of all stored dialogues.
	List(ctx context.Context) ([]string, error)
}
