package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-solclient/internal/storage"
)

type postgresTransactionRecordRepository struct {
	pool *pgxpool.Pool
}

const recordColumns = `id, signature, status, slot, error, lamports, created_at, updated_at`

func scanRecord(row pgx.Row) (*storage.TransactionRecord, error) {
	var rec storage.TransactionRecord
	var status string
	if err := row.Scan(
		&rec.ID, &rec.Signature, &status, &rec.Slot, &rec.Error,
		&rec.Lamports, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = storage.TransactionStatus(status)
	return &rec, nil
}

func (r *postgresTransactionRecordRepository) Save(ctx context.Context, rec *storage.TransactionRecord) error {
	query := `
		INSERT INTO transaction_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO UPDATE SET
			status = $3, slot = $4, error = $5, lamports = $6, updated_at = $8
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Signature, string(rec.Status), rec.Slot, rec.Error,
		rec.Lamports, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (r *postgresTransactionRecordRepository) FindBySignature(ctx context.Context, signature string) (*storage.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM transaction_records WHERE signature = $1`
	return QueryOne(r.pool, ctx, query, scanRecord, signature)
}

func (r *postgresTransactionRecordRepository) FindByStatus(ctx context.Context, status storage.TransactionStatus, limit int, offset int) ([]*storage.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM transaction_records
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return QueryMany(r.pool, ctx, query, scanRecord, string(status), limit, offset)
}

func (r *postgresTransactionRecordRepository) UpdateStatus(ctx context.Context, signature string, status storage.TransactionStatus, slot uint64, errMsg string) error {
	query := `UPDATE transaction_records SET status = $2, slot = $3, error = $4, updated_at = $5 WHERE signature = $1`
	tag, err := r.pool.Exec(ctx, query, signature, string(status), slot, errMsg, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}
