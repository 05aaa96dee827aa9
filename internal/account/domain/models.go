// Package domain contains persistence models for user accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountStatus marks whether an account can spend credits.
type AccountStatus string

const (
	AccountStatusActive      AccountStatus = "active"
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// Account owns a non-negative credit balance. Accounts are deactivated,
// never deleted; the balance column is mutated only by ledger operations.
type Account struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email         string        `gorm:"type:text;not null;uniqueIndex" json:"email"`
	DisplayName   string        `gorm:"type:text" json:"display_name"`
	CreditBalance int64         `gorm:"not null;default:0" json:"credit_balance"`
	Status        AccountStatus `gorm:"type:text;not null;default:active" json:"status"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
