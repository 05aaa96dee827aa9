package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	"github.com/draftforge/draftforge/internal/config"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	ledgerservice "github.com/draftforge/draftforge/internal/ledger/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func setupAccountTest(t *testing.T, initialCredits int64) accountdomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:account_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&ledgerdomain.CreditTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})

	return NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Config:    config.Config{Signup: config.SignupConfig{InitialCredits: initialCredits}},
		LedgerSvc: ledgerSvc,
	})
}

func TestSignupGrantsInitialCredits(t *testing.T) {
	svc := setupAccountTest(t, 10)

	account, err := svc.Signup(context.Background(), accountdomain.SignupRequest{
		Email:       "Writer@Example.com",
		DisplayName: "Writer",
	})
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", account.Email)
	assert.Equal(t, int64(10), account.CreditBalance)
	assert.Equal(t, accountdomain.AccountStatusActive, account.Status)
}

func TestSignupRejectsInvalidEmail(t *testing.T) {
	svc := setupAccountTest(t, 10)

	_, err := svc.Signup(context.Background(), accountdomain.SignupRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, accountdomain.ErrInvalidEmail)

	_, err = svc.Signup(context.Background(), accountdomain.SignupRequest{Email: "   "})
	assert.ErrorIs(t, err, accountdomain.ErrInvalidEmail)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := setupAccountTest(t, 0)

	_, err := svc.Signup(context.Background(), accountdomain.SignupRequest{Email: "writer@example.com"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), accountdomain.SignupRequest{Email: "WRITER@example.com"})
	assert.ErrorIs(t, err, accountdomain.ErrAccountExists)
}

func TestDeactivateStopsSpending(t *testing.T) {
	svc := setupAccountTest(t, 5)

	account, err := svc.Signup(context.Background(), accountdomain.SignupRequest{Email: "writer@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), account.ID))

	loaded, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, accountdomain.AccountStatusDeactivated, loaded.Status)
	// The balance survives deactivation; only spending stops.
	assert.Equal(t, int64(5), loaded.CreditBalance)
}

func TestDeactivateUnknownAccount(t *testing.T) {
	svc := setupAccountTest(t, 0)
	err := svc.Deactivate(context.Background(), snowflake.ID(12345))
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestGetUnknownAccount(t *testing.T) {
	svc := setupAccountTest(t, 0)
	_, err := svc.Get(context.Background(), snowflake.ID(12345))
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}
