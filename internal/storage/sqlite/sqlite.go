// Package sqlite stores transaction records in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lugondev/go-solclient/internal/config"
	"github.com/lugondev/go-solclient/internal/storage"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type SQLiteRepository struct {
	db              *gorm.DB
	transactionRepo storage.TransactionRecordRepository
}

// NewSQLiteRepository opens path and migrates the schema.
func NewSQLiteRepository(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteRepository, error) {
	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if path == MemoryPath {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(&storage.TransactionRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &SQLiteRepository{
		db:              db,
		transactionRepo: &sqliteTransactionRecordRepository{db: db},
	}, nil
}

func (r *SQLiteRepository) Transactions() storage.TransactionRecordRepository {
	return r.transactionRepo
}

func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type sqliteTransactionRecordRepository struct {
	db *gorm.DB
}

func (r *sqliteTransactionRecordRepository) Save(ctx context.Context, rec *storage.TransactionRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signature"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "slot", "error", "lamports", "updated_at"}),
	}).Create(rec).Error
}

func (r *sqliteTransactionRecordRepository) FindBySignature(ctx context.Context, signature string) (*storage.TransactionRecord, error) {
	var rec storage.TransactionRecord
	err := r.db.WithContext(ctx).Where("signature = ?", signature).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *sqliteTransactionRecordRepository) FindByStatus(ctx context.Context, status storage.TransactionStatus, limit int, offset int) ([]*storage.TransactionRecord, error) {
	var records []*storage.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

func (r *sqliteTransactionRecordRepository) UpdateStatus(ctx context.Context, signature string, status storage.TransactionStatus, slot uint64, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&storage.TransactionRecord{}).
		Where("signature = ?", signature).
		Updates(map[string]any{
			"status":     status,
			"slot":       slot,
			"error":      errMsg,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func init() {
	storage.RegisterSQLiteFactory(func(ctx context.Context, cfg *config.SQLiteConfig) (storage.Repository, error) {
		repo, err := NewSQLiteRepository(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite repository: %w", err)
		}
		return repo, nil
	})
}
