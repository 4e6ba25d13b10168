package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTranscriptStoreContract runs a suite of tests to verify that a TranscriptStore
// implementation adheres to the defined interface contract.
func RunTranscriptStoreContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()
	dialogueID := "contract-test-dialogue-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		tr := domain.NewTranscript(dialogueID)
		tr.Append("Flight?(dest=LIS)", false)
		tr.Append("revise(old=Flight?(), new=Flight?(dest=OPO), newMode=overwrite)", true)
		tr.Labels["channel"] = "web"

		err := store.Save(ctx, dialogueID, tr)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, dialogueID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, dialogueID, loaded.ID)
		require.Len(t, loaded.Turns, 2)
		assert.Equal(t, tr.Turns[0].Expression, loaded.Turns[0].Expression)
		assert.True(t, loaded.Turns[1].Failed)
		assert.WithinDuration(t, tr.Turns[1].At, loaded.Turns[1].At, time.Millisecond)
		assert.Equal(t, "web", loaded.Labels["channel"])
	})

	t.Run("Load is isolated from later changes", func(t *testing.T) {
		tr := domain.NewTranscript(dialogueID)
		require.NoError(t, store.Save(ctx, dialogueID, tr))

		tr.Append("Flight?()", false)
		loaded, err := store.Load(ctx, dialogueID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Turns, "mutating a saved transcript must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+dialogueID)
		assert.ErrorIs(t, err, domain.ErrDialogueNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, dialogueID, domain.NewTranscript(dialogueID))
		require.NoError(t, err)

		err = store.Delete(ctx, dialogueID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, dialogueID)
		assert.ErrorIs(t, err, domain.ErrDialogueNotFound, "Load after Delete should return ErrDialogueNotFound")

		assert.NoError(t, store.Delete(ctx, dialogueID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := dialogueID + "-1"
		id2 := dialogueID + "-2"
		_ = store.Save(ctx, id1, domain.NewTranscript(id1))
		_ = store.Save(ctx, id2, domain.NewTranscript(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
