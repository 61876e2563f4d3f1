package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-solclient/internal/config"
	"github.com/lugondev/go-solclient/internal/storage"
)

type PostgresRepository struct {
	pool            *pgxpool.Pool
	transactionRepo storage.TransactionRecordRepository
}

func connString(cfg *config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

func NewPostgresRepository(ctx context.Context, cfg *config.PostgresConfig) (*PostgresRepository, error) {
	return Open(ctx, connString(cfg), func(poolConfig *pgxpool.Config) {
		if cfg.MaxOpenConns > 0 {
			poolConfig.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			poolConfig.MinConns = int32(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
		}
	})
}

// Open connects to a postgres:// URL, runs migrations and returns the repository.
func Open(ctx context.Context, connString string, configure func(*pgxpool.Config)) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.HealthCheckPeriod = time.Minute
	if configure != nil {
		configure(poolConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator := NewMigrator(pool, nil)
	if err := migrator.Up(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresRepository{
		pool:            pool,
		transactionRepo: &postgresTransactionRecordRepository{pool: pool},
	}, nil
}

func (r *PostgresRepository) Transactions() storage.TransactionRecordRepository {
	return r.transactionRepo
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func init() {
	storage.RegisterPostgresFactory(func(ctx context.Context, cfg *config.PostgresConfig) (storage.Repository, error) {
		repo, err := NewPostgresRepository(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres repository: %w", err)
		}
		return repo, nil
	})
}
