// Package tests provides reusable contract suites for port implementations.
package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore adheres to the port contract.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()
	key := domain.SessionKey("contract", fmt.Sprintf("guide-%d", time.Now().UnixNano()))

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession("g1")
		s.CurrentStep = 1
		s.HighestStep = 2
		s.Answers["name"] = "Ali"
		s.Answers["consent"] = true
		s.Answers["cin"] = &domain.FileReference{StorageHandle: "h-1", OriginalName: "cin.pdf", SizeBytes: 2048}
		s.LastSavedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, store.Save(ctx, key, s))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "g1", loaded.GuideID)
		assert.Equal(t, 1, loaded.CurrentStep)
		assert.Equal(t, 2, loaded.HighestStep)
		assert.Equal(t, "Ali", loaded.Answers["name"])
		assert.Equal(t, true, loaded.Answers["consent"])
		assert.NotNil(t, loaded.Answers["cin"])
		assert.True(t, s.LastSavedAt.Equal(loaded.LastSavedAt))
	})

	t.Run("Save overwrites", func(t *testing.T) {
		s := domain.NewSession("g1")
		s.CurrentStep = 2
		require.NoError(t, store.Save(ctx, key, s))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.CurrentStep)
		assert.Empty(t, loaded.Answers)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, key+"-missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, domain.NewSession("g1")))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting twice is fine.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, k1, domain.NewSession("g1")))
		require.NoError(t, store.Save(ctx, k2, domain.NewSession("g2")))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}

// RunGuideDirectoryContract verifies that a GuideDirectory serves the expected guide
// and reports unknown IDs with domain.ErrGuideNotFound.
func RunGuideDirectoryContract(t *testing.T, dir ports.GuideDirectory, want *domain.Guide) {
	t.Helper()
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		g, err := dir.Fetch(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, g.ID)
		assert.Equal(t, want.ServiceType, g.ServiceType)
		require.Len(t, g.Steps, len(want.Steps))
		for i := range want.Steps {
			assert.Equal(t, want.Steps[i].Title, g.Steps[i].Title)
			assert.Equal(t, want.Steps[i].Fields, g.Steps[i].Fields)
		}
	})

	t.Run("Fetch Non-Existent", func(t *testing.T) {
		_, err := dir.Fetch(ctx, "no-such-guide")
		assert.ErrorIs(t, err, domain.ErrGuideNotFound)
	})
}
