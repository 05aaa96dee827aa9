package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	"github.com/draftforge/draftforge/internal/config"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	"github.com/draftforge/draftforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Config    config.Config
	LedgerSvc ledgerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.SignupConfig
	ledgerSvc ledgerdomain.Service
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("account.service"),
		genID:     p.GenID,
		cfg:       p.Config.Signup,
		ledgerSvc: p.LedgerSvc,
	}
}

// Signup creates an account and applies the configured initial credit grant.
func (s *Service) Signup(ctx context.Context, req accountdomain.SignupRequest) (*accountdomain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, accountdomain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	account := &accountdomain.Account{
		ID:          s.genID.Generate(),
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Status:      accountdomain.AccountStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, accountdomain.ErrAccountExists
		}
		return nil, err
	}

	if s.cfg.InitialCredits > 0 {
		balance, err := s.ledgerSvc.Credit(ctx, ledgerdomain.CreditRequest{
			AccountID: account.ID,
			Amount:    s.cfg.InitialCredits,
			Kind:      ledgerdomain.TransactionKindGrant,
		})
		if err != nil {
			s.log.Error("failed to apply signup credit grant",
				zap.Error(err),
				zap.String("account_id", account.ID.String()),
			)
			return nil, err
		}
		account.CreditBalance = balance
	}

	return account, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	if id == 0 {
		return nil, accountdomain.ErrAccountNotFound
	}
	var account accountdomain.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Deactivate disables further spending. Accounts are never deleted.
func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return accountdomain.ErrAccountNotFound
	}
	result := s.db.WithContext(ctx).Exec(
		`UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?`,
		accountdomain.AccountStatusDeactivated,
		time.Now().UTC(),
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}
