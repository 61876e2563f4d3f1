package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-solclient/internal/config"
	"github.com/lugondev/go-solclient/internal/storage/storagetest"
)

func TestConnString(t *testing.T) {
	cfg := &config.PostgresConfig{
		Host: "db", Port: 5433, User: "sol", Password: "p@ss word", Database: "records", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://sol:p%40ss%20word@db:5433/records?sslmode=disable", connString(cfg))
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("SOLCLIENT_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("SOLCLIENT_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	repo, err := Open(ctx, url, nil)
	require.NoError(t, err)
	defer repo.Close()

	version, err := NewMigrator(repo.pool, nil).Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)

	// Running migrations again is a no-op.
	require.NoError(t, NewMigrator(repo.pool, nil).Up(ctx))

	storagetest.RunTransactionRecordTests(t, repo.Transactions())
}
