package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lugondev/go-solclient/internal/config"
)

type DatabaseType string

const (
	DatabaseTypeMongoDB  DatabaseType = "mongodb"
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// ParseDatabaseType accepts the database.type values of the config file. "mongo" and
// "postgresql" are aliases.
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mongodb", "mongo":
		return DatabaseTypeMongoDB, nil
	case "postgres", "postgresql":
		return DatabaseTypePostgres, nil
	case "sqlite", "sqlite3":
		return DatabaseTypeSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", s)
	}
}

// ConnectionManager opens the configured transaction record store on first use and
// shares it between the tracker and the CLI commands.
type ConnectionManager struct {
	cfg  *config.DatabaseConfig
	kind DatabaseType

	mu   sync.Mutex
	repo Repository
}

func NewConnectionManager(cfg *config.DatabaseConfig) (*ConnectionManager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("database is disabled")
	}
	kind, err := ParseDatabaseType(cfg.Type)
	if err != nil {
		return nil, err
	}
	return &ConnectionManager{cfg: cfg, kind: kind}, nil
}

// Type returns the backend this manager opens.
func (cm *ConnectionManager) Type() DatabaseType {
	return cm.kind
}

// Connect opens and pings the backend. Later calls return the same repository.
func (cm *ConnectionManager) Connect(ctx context.Context) (Repository, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.repo != nil {
		return cm.repo, nil
	}

	repo, err := cm.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cm.kind, err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("pinging %s store: %w", cm.kind, err)
	}
	cm.repo = repo
	return repo, nil
}

func (cm *ConnectionManager) open(ctx context.Context) (Repository, error) {
	switch cm.kind {
	case DatabaseTypeMongoDB:
		return NewMongoRepositoryFromConfig(ctx, &cm.cfg.MongoDB)
	case DatabaseTypePostgres:
		return NewPostgresRepositoryFromConfig(ctx, &cm.cfg.Postgres)
	default:
		return NewSQLiteRepositoryFromConfig(ctx, &cm.cfg.SQLite)
	}
}

// GetRepository returns the repository opened by Connect.
func (cm *ConnectionManager) GetRepository() (Repository, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.repo == nil {
		return nil, fmt.Errorf("%s store is not connected", cm.kind)
	}
	return cm.repo, nil
}

// Close closes the repository. A later Connect opens a fresh one.
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.repo == nil {
		return nil
	}
	err := cm.repo.Close()
	cm.repo = nil
	return err
}
