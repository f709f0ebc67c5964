package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/wizard/pkg/adapters/sqlite"
	"github.com/aretw0/wizard/pkg/domain"
	contract "github.com/aretw0/wizard/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "wizard.db"))
	contract.RunSessionStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.db")
	ctx := context.Background()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	s := domain.NewSession("micro-credit")
	s.CurrentStep = 1
	s.Answers["full_name"] = "Ali Ben Salah"
	require.NoError(t, first.Save(ctx, "guide_progress_micro-credit", s))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	loaded, err := second.Load(ctx, "guide_progress_micro-credit")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentStep)
	assert.Equal(t, "Ali Ben Salah", loaded.Answers["full_name"])
}
