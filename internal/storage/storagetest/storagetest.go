// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-solclient/internal/storage"
)

// RunTransactionRecordTests exercises repo against the storage.TransactionRecordRepository
// contract. Signatures are unique per call so a shared database can be reused.
func RunTransactionRecordTests(t *testing.T, repo storage.TransactionRecordRepository) {
	ctx := context.Background()
	prefix := uuid.NewString()[:8]

	t.Run("save and find", func(t *testing.T) {
		rec := storage.NewTransactionRecord(prefix+"-a", 5000)
		require.NoError(t, repo.Save(ctx, rec))

		got, err := repo.FindBySignature(ctx, rec.Signature)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, storage.StatusPending, got.Status)
		assert.Equal(t, uint64(5000), got.Lamports)
		assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("missing signature", func(t *testing.T) {
		got, err := repo.FindBySignature(ctx, prefix+"-missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save upserts by signature", func(t *testing.T) {
		first := storage.NewTransactionRecord(prefix+"-b", 1)
		require.NoError(t, repo.Save(ctx, first))

		second := storage.NewTransactionRecord(prefix+"-b", 2)
		second.Status = storage.StatusFailed
		second.Error = "InstructionError"
		require.NoError(t, repo.Save(ctx, second))

		got, err := repo.FindBySignature(ctx, first.Signature)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, storage.StatusFailed, got.Status)
		assert.Equal(t, "InstructionError", got.Error)
		assert.Equal(t, uint64(2), got.Lamports)
	})

	t.Run("update status", func(t *testing.T) {
		rec := storage.NewTransactionRecord(prefix+"-c", 0)
		require.NoError(t, repo.Save(ctx, rec))

		require.NoError(t, repo.UpdateStatus(ctx, rec.Signature, storage.StatusConfirmed, 321, ""))

		got, err := repo.FindBySignature(ctx, rec.Signature)
		require.NoError(t, err)
		assert.Equal(t, storage.StatusConfirmed, got.Status)
		assert.Equal(t, uint64(321), got.Slot)
		assert.False(t, got.UpdatedAt.Before(rec.UpdatedAt))

		err = repo.UpdateStatus(ctx, prefix+"-nope", storage.StatusConfirmed, 1, "")
		assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	})

	t.Run("find by status", func(t *testing.T) {
		for i, sig := range []string{"-d1", "-d2", "-d3"} {
			rec := storage.NewTransactionRecord(prefix+sig, uint64(i))
			rec.CreatedAt = rec.CreatedAt.Add(time.Duration(i) * time.Second)
			rec.Status = storage.StatusConfirmed
			require.NoError(t, repo.Save(ctx, rec))
		}

		confirmed, err := repo.FindByStatus(ctx, storage.StatusConfirmed, 100, 0)
		require.NoError(t, err)

		var ours []string
		for _, rec := range confirmed {
			assert.Equal(t, storage.StatusConfirmed, rec.Status)
			if len(rec.Signature) > len(prefix) && rec.Signature[:len(prefix)] == prefix && rec.Signature[len(prefix)+1] == 'd' {
				ours = append(ours, rec.Signature)
			}
		}
		assert.Equal(t, []string{prefix + "-d3", prefix + "-d2", prefix + "-d1"}, ours)

		page, err := repo.FindByStatus(ctx, storage.StatusConfirmed, 1, 0)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}
