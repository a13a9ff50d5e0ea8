package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finwell/internal/core"
	"finwell/internal/storage"
	"finwell/internal/storage/storagetest"
)

func newSQLite(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finwell.db"))
	require.NoError(t, err)
	return repo
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newSQLite(t) })
}

func TestSQLiteCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "finwell.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.FileExists(t, path)
}

func TestSQLiteDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finwell.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	created, err := repo.Insert(ctx, storagetest.Tx("Rent", "850.00", core.NewDate(2024, 3, 1), core.Expense))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Category)
	assert.Equal(t, "850", got.Amount.String())
}

func TestSQLiteMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finwell.db")

	version, dirty, err := storage.MigrationVersion(storage.DialectSQLite, path)
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, storage.RunMigrations(storage.DialectSQLite, path))
	// Running twice is a no-op.
	require.NoError(t, storage.RunMigrations(storage.DialectSQLite, path))

	version, dirty, err = storage.MigrationVersion(storage.DialectSQLite, path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, storage.RollbackMigrations(storage.DialectSQLite, path))
	version, _, err = storage.MigrationVersion(storage.DialectSQLite, path)
	require.NoError(t, err)
	assert.Zero(t, version)
}
