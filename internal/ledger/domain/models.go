// Package domain contains the credit ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionKind classifies a balance mutation.
type TransactionKind string

const (
	TransactionKindGrant  TransactionKind = "grant"
	TransactionKindDebit  TransactionKind = "debit"
	TransactionKindRefund TransactionKind = "refund"
)

// CreditTransaction is an append-only audit row, one per balance mutation.
// The accounts.credit_balance column stays authoritative; transactions let
// operators reconstruct how a balance came to be.
type CreditTransaction struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	AccountID      snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Amount         int64           `gorm:"not null" json:"amount"` // signed: debits are negative
	Kind           TransactionKind `gorm:"type:text;not null" json:"kind"`
	SourceRecordID *snowflake.ID   `gorm:"index" json:"source_record_id,omitempty"`
	BalanceAfter   int64           `gorm:"not null" json:"balance_after"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }
