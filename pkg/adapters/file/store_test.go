package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/wizard/pkg/adapters/file"
	"github.com/aretw0/wizard/pkg/domain"
	contract "github.com/aretw0/wizard/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	contract.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ProfileScopedKeys(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	key := domain.SessionKey("p1", "micro-credit")
	require.NoError(t, store.Save(ctx, key, domain.NewSession("micro-credit")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "micro-credit", loaded.GuideID)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	s := domain.NewSession("g1")
	for i := 0; i < 3; i++ {
		s.CurrentStep = i
		require.NoError(t, store.Save(ctx, "guide_progress_g1", s))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	loaded, err := store.Load(ctx, "guide_progress_g1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.CurrentStep)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide_progress_g1.json"), []byte("{not json"), 0o644))

	_, err := store.Load(context.Background(), "guide_progress_g1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
