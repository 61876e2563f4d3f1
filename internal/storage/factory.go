package storage

import (
	"context"

	"github.com/lugondev/go-solclient/internal/config"
)

var (
	mongoFactory    func(context.Context, *config.MongoDBConfig) (Repository, error)
	postgresFactory func(context.Context, *config.PostgresConfig) (Repository, error)
	sqliteFactory   func(context.Context, *config.SQLiteConfig) (Repository, error)
)

func RegisterMongoFactory(factory func(context.Context, *config.MongoDBConfig) (Repository, error)) {
	mongoFactory = factory
}

func RegisterPostgresFactory(factory func(context.Context, *config.PostgresConfig) (Repository, error)) {
	postgresFactory = factory
}

func RegisterSQLiteFactory(factory func(context.Context, *config.SQLiteConfig) (Repository, error)) {
	sqliteFactory = factory
}

func NewMongoRepositoryFromConfig(ctx context.Context, cfg *config.MongoDBConfig) (Repository, error) {
	if mongoFactory == nil {
		panic("mongo factory not registered - import _ \"github.com/lugondev/go-solclient/internal/storage/mongo\"")
	}
	return mongoFactory(ctx, cfg)
}

func NewPostgresRepositoryFromConfig(ctx context.Context, cfg *config.PostgresConfig) (Repository, error) {
	if postgresFactory == nil {
		panic("postgres factory not registered - import _ \"github.com/lugondev/go-solclient/internal/storage/postgres\"")
	}
	return postgresFactory(ctx, cfg)
}

func NewSQLiteRepositoryFromConfig(ctx context.Context, cfg *config.SQLiteConfig) (Repository, error) {
	if sqliteFactory == nil {
		panic("sqlite factory not registered - import _ \"github.com/lugondev/go-solclient/internal/storage/sqlite\"")
	}
	return sqliteFactory(ctx, cfg)
}
