package storage

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the confirmation state of a tracked transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
)

// Final reports whether the status will not change anymore.
func (s TransactionStatus) Final() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// TransactionRecord is a submitted transaction whose confirmation is being tracked.
type TransactionRecord struct {
	ID        string            `json:"id" yaml:"id" bson:"_id" db:"id" gorm:"primaryKey;type:text"`
	Signature string            `json:"signature" yaml:"signature" bson:"signature" db:"signature" gorm:"uniqueIndex;not null"`
	Status    TransactionStatus `json:"status" yaml:"status" bson:"status" db:"status" gorm:"index;not null"`
	Slot      uint64            `json:"slot" yaml:"slot" bson:"slot" db:"slot"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty" bson:"error,omitempty" db:"error"`
	Lamports  uint64            `json:"lamports" yaml:"lamports" bson:"lamports" db:"lamports"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at" bson:"updated_at" db:"updated_at"`
}

// TableName is the table used by every SQL backend.
func (TransactionRecord) TableName() string {
	return "transaction_records"
}

// NewTransactionRecord creates a pending record with a fresh id.
func NewTransactionRecord(signature string, lamports uint64) *TransactionRecord {
	now := time.Now().UTC()
	return &TransactionRecord{
		ID:        uuid.NewString(),
		Signature: signature,
		Status:    StatusPending,
		Lamports:  lamports,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
