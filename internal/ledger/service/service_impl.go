package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	obsmetrics "github.com/draftforge/draftforge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

// TryDebit decrements the balance iff it is sufficient, in a single
// conditional UPDATE. A zero rows-affected result means either the account
// is missing/deactivated or the balance was short; the two are told apart
// inside the same transaction. Failure mutates nothing.
func (s *Service) TryDebit(ctx context.Context, accountID snowflake.ID, amount int64) (bool, int64, error) {
	if accountID == 0 {
		return false, 0, ledgerdomain.ErrInvalidAccount
	}
	if amount <= 0 {
		return false, 0, ledgerdomain.ErrInvalidAmount
	}

	ok := false
	newBalance := int64(0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Exec(
			`UPDATE accounts
			 SET credit_balance = credit_balance - ?, updated_at = ?
			 WHERE id = ? AND status = ? AND credit_balance >= ?`,
			amount,
			now,
			accountID,
			accountdomain.AccountStatusActive,
			amount,
		)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var account accountdomain.Account
			err := tx.Where("id = ? AND status = ?", accountID, accountdomain.AccountStatusActive).
				First(&account).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return accountdomain.ErrAccountNotFound
				}
				return err
			}
			newBalance = account.CreditBalance
			return nil
		}

		balance, err := s.readBalance(tx, accountID)
		if err != nil {
			return err
		}
		newBalance = balance
		ok = true

		return tx.Create(&ledgerdomain.CreditTransaction{
			ID:           s.genID.Generate(),
			AccountID:    accountID,
			Amount:       -amount,
			Kind:         ledgerdomain.TransactionKindDebit,
			BalanceAfter: balance,
			CreatedAt:    now,
		}).Error
	})
	if err != nil {
		return false, 0, err
	}
	if ok && s.obsMetrics != nil {
		s.obsMetrics.RecordCreditDebit(ctx)
	}
	return ok, newBalance, nil
}

// Credit grants or refunds credits. A zero amount is a no-op that reports
// the current balance.
func (s *Service) Credit(ctx context.Context, req ledgerdomain.CreditRequest) (int64, error) {
	if req.AccountID == 0 {
		return 0, ledgerdomain.ErrInvalidAccount
	}
	if req.Amount < 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}
	switch req.Kind {
	case ledgerdomain.TransactionKindGrant, ledgerdomain.TransactionKindRefund:
	default:
		return 0, ledgerdomain.ErrInvalidKind
	}
	if req.Amount == 0 {
		return s.Balance(ctx, req.AccountID)
	}

	newBalance := int64(0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Exec(
			`UPDATE accounts
			 SET credit_balance = credit_balance + ?, updated_at = ?
			 WHERE id = ?`,
			req.Amount,
			now,
			req.AccountID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return accountdomain.ErrAccountNotFound
		}

		balance, err := s.readBalance(tx, req.AccountID)
		if err != nil {
			return err
		}
		newBalance = balance

		return tx.Create(&ledgerdomain.CreditTransaction{
			ID:             s.genID.Generate(),
			AccountID:      req.AccountID,
			Amount:         req.Amount,
			Kind:           req.Kind,
			SourceRecordID: req.SourceRecordID,
			BalanceAfter:   balance,
			CreatedAt:      now,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	if req.Kind == ledgerdomain.TransactionKindRefund && s.obsMetrics != nil {
		s.obsMetrics.RecordCreditRefund(ctx, string(req.Kind))
	}
	return newBalance, nil
}

// Balance is a display read; it may be stale by the time the caller sees
// it and must never back a charging decision.
func (s *Service) Balance(ctx context.Context, accountID snowflake.ID) (int64, error) {
	if accountID == 0 {
		return 0, ledgerdomain.ErrInvalidAccount
	}
	return s.readBalance(s.db.WithContext(ctx), accountID)
}

func (s *Service) readBalance(tx *gorm.DB, accountID snowflake.ID) (int64, error) {
	var account accountdomain.Account
	if err := tx.Select("credit_balance").Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, accountdomain.ErrAccountNotFound
		}
		return 0, err
	}
	return account.CreditBalance, nil
}
