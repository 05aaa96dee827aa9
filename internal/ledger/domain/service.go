package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreditRequest grants or refunds credits to an account.
type CreditRequest struct {
	AccountID      snowflake.ID
	Amount         int64
	Kind           TransactionKind
	SourceRecordID *snowflake.ID
}

// Service owns every mutation of account credit balances.
//
// TryDebit is the single correctness-critical operation of the system: it
// must decide sufficiency and decrement in one atomic conditional update so
// concurrent callers can never both observe a sufficient balance. Balance
// is a display read and may be stale; charging decisions never use it.
type Service interface {
	TryDebit(ctx context.Context, accountID snowflake.ID, amount int64) (ok bool, newBalance int64, err error)
	Credit(ctx context.Context, req CreditRequest) (newBalance int64, err error)
	Balance(ctx context.Context, accountID snowflake.ID) (int64, error)
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidKind    = errors.New("invalid_kind")
)
