package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

const ext = ".json"

// ErrInvalidID is returned for dialogue IDs that cannot be used as file names.
var ErrInvalidID = errors.New("invalid dialogue id")

// Store implements ports.TranscriptStore using the local filesystem.
// It stores transcripts as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".tendril/dialogues".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".tendril", "dialogues")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(dialogueID string) (string, error) {
	if dialogueID == "" || strings.ContainsAny(dialogueID, `/\`) || dialogueID == "." || dialogueID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, dialogueID)
	}
	return filepath.Join(s.BasePath, dialogueID+ext), nil
}

// Save persists the transcript to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, dialogueID string, t *domain.Transcript) error {
	destPath, err := s.path(dialogueID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure dialogue directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+dialogueID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing transcript for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load retrieves the transcript from its JSON file.
func (s *Store) Load(ctx context.Context, dialogueID string) (*domain.Transcript, error) {
	filePath, err := s.path(dialogueID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDialogueNotFound
		}
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t domain.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &t, nil
}

// Delete removes the transcript file.
func (s *Store) Delete(ctx context.Context, dialogueID string) error {
	filePath, err := s.path(dialogueID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}
	return nil
}

// List returns the IDs of all stored transcripts.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list dialogues: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	return ids, nil
}
