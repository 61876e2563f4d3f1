package storage

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by UpdateStatus for an unknown signature.
var ErrRecordNotFound = errors.New("transaction record not found")

// TransactionRecordRepository persists tracked transactions. Save upserts by
// signature and FindBySignature returns nil, nil when nothing matches.
type TransactionRecordRepository interface {
	Save(ctx context.Context, record *TransactionRecord) error
	FindBySignature(ctx context.Context, signature string) (*TransactionRecord, error)
	FindByStatus(ctx context.Context, status TransactionStatus, limit int, offset int) ([]*TransactionRecord, error)
	UpdateStatus(ctx context.Context, signature string, status TransactionStatus, slot uint64, errMsg string) error
}

type Repository interface {
	Transactions() TransactionRecordRepository
	Close() error
	Ping(ctx context.Context) error
}
