package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-solclient/internal/config"
	"github.com/lugondev/go-solclient/internal/storage"
	"github.com/lugondev/go-solclient/internal/storage/storagetest"
)

func TestInMemoryRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(context.Background(), &config.SQLiteConfig{Path: MemoryPath})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))
	storagetest.RunTransactionRecordTests(t, repo.Transactions())
}

func TestConnectionManagerOpensSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	cm, err := storage.NewConnectionManager(&config.DatabaseConfig{
		Enabled: true,
		Type:    "sqlite",
		SQLite:  config.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	defer cm.Close()

	repo, err := cm.Connect(context.Background())
	require.NoError(t, err)

	rec := storage.NewTransactionRecord("sig", 1)
	require.NoError(t, repo.Transactions().Save(context.Background(), rec))

	again, err := cm.GetRepository()
	require.NoError(t, err)
	got, err := again.Transactions().FindBySignature(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestConnectionManagerRejectsDisabled(t *testing.T) {
	_, err := storage.NewConnectionManager(&config.DatabaseConfig{Enabled: false})
	assert.Error(t, err)

	_, err = storage.NewConnectionManager(&config.DatabaseConfig{Enabled: true, Type: "oracle"})
	assert.ErrorContains(t, err, "oracle")

	_, err = storage.NewConnectionManager(nil)
	assert.Error(t, err)
}

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		in   string
		want storage.DatabaseType
	}{
		{"sqlite", storage.DatabaseTypeSQLite},
		{" SQLite3 ", storage.DatabaseTypeSQLite},
		{"postgresql", storage.DatabaseTypePostgres},
		{"mongo", storage.DatabaseTypeMongoDB},
	}
	for _, tt := range tests {
		got, err := storage.ParseDatabaseType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConnectionManagerReopensAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	cm, err := storage.NewConnectionManager(&config.DatabaseConfig{
		Enabled: true,
		Type:    "sqlite3",
		SQLite:  config.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	assert.Equal(t, storage.DatabaseTypeSQLite, cm.Type())

	first, err := cm.Connect(context.Background())
	require.NoError(t, err)
	same, err := cm.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, same)

	require.NoError(t, cm.Close())
	_, err = cm.GetRepository()
	assert.Error(t, err)

	reopened, err := cm.Connect(context.Background())
	require.NoError(t, err)
	defer cm.Close()
	assert.NotSame(t, first, reopened)
}
