package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func setupLedgerTest(t *testing.T) (*gorm.DB, ledgerdomain.Service, *accountdomain.Account) {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared in-memory database alive and forces
	// concurrent writers to serialize the way postgres row locks would.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&ledgerdomain.CreditTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})

	account := &accountdomain.Account{
		ID:            node.Generate(),
		Email:         "writer@example.com",
		DisplayName:   "Writer",
		CreditBalance: 0,
		Status:        accountdomain.AccountStatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(account).Error)

	return db, svc, account
}

func grant(t *testing.T, svc ledgerdomain.Service, accountID snowflake.ID, amount int64) {
	t.Helper()
	_, err := svc.Credit(context.Background(), ledgerdomain.CreditRequest{
		AccountID: accountID,
		Amount:    amount,
		Kind:      ledgerdomain.TransactionKindGrant,
	})
	require.NoError(t, err)
}

func TestTryDebitSufficientBalance(t *testing.T) {
	_, svc, account := setupLedgerTest(t)
	grant(t, svc, account.ID, 5)

	ok, balance, err := svc.TryDebit(context.Background(), account.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), balance)
}

func TestTryDebitInsufficientBalance(t *testing.T) {
	_, svc, account := setupLedgerTest(t)
	grant(t, svc, account.ID, 1)

	ok, _, err := svc.TryDebit(context.Background(), account.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	// Second debit finds an empty balance and must not mutate anything.
	ok, balance, err := svc.TryDebit(context.Background(), account.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), balance)

	final, err := svc.Balance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final)
}

func TestTryDebitUnknownAccount(t *testing.T) {
	_, svc, _ := setupLedgerTest(t)

	_, _, err := svc.TryDebit(context.Background(), snowflake.ID(123456789), 1)
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestTryDebitDeactivatedAccount(t *testing.T) {
	db, svc, account := setupLedgerTest(t)
	grant(t, svc, account.ID, 3)

	require.NoError(t, db.Model(&accountdomain.Account{}).
		Where("id = ?", account.ID).
		Update("status", accountdomain.AccountStatusDeactivated).Error)

	_, _, err := svc.TryDebit(context.Background(), account.ID, 1)
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestTryDebitRejectsInvalidAmount(t *testing.T) {
	_, svc, account := setupLedgerTest(t)

	_, _, err := svc.TryDebit(context.Background(), account.ID, 0)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	_, _, err = svc.TryDebit(context.Background(), account.ID, -3)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)
}

// Concurrent debits against a balance smaller than the caller count must
// produce exactly balance successes: the conditional update decides
// sufficiency and decrements in one statement, so two callers can never
// both spend the last credit.
func TestTryDebitConcurrentNoDoubleCharge(t *testing.T) {
	_, svc, account := setupLedgerTest(t)

	const balance = 3
	const callers = 10
	grant(t, svc, account.ID, balance)

	var successes atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := svc.TryDebit(context.Background(), account.ID, 1)
			require.NoError(t, err)
			if ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(balance), successes.Load())

	final, err := svc.Balance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final)
}

func TestCreditRefundRestoresBalance(t *testing.T) {
	db, svc, account := setupLedgerTest(t)
	grant(t, svc, account.ID, 2)

	ok, _, err := svc.TryDebit(context.Background(), account.ID, 1)
	require.NoError(t, err)
	require.True(t, ok)

	recordID := snowflake.ID(42)
	balance, err := svc.Credit(context.Background(), ledgerdomain.CreditRequest{
		AccountID:      account.ID,
		Amount:         1,
		Kind:           ledgerdomain.TransactionKindRefund,
		SourceRecordID: &recordID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	var transactions []ledgerdomain.CreditTransaction
	require.NoError(t, db.Where("account_id = ?", account.ID).
		Order("created_at ASC").Find(&transactions).Error)
	require.Len(t, transactions, 3)
	assert.Equal(t, ledgerdomain.TransactionKindGrant, transactions[0].Kind)
	assert.Equal(t, ledgerdomain.TransactionKindDebit, transactions[1].Kind)
	assert.Equal(t, int64(-1), transactions[1].Amount)
	assert.Equal(t, ledgerdomain.TransactionKindRefund, transactions[2].Kind)
	require.NotNil(t, transactions[2].SourceRecordID)
	assert.Equal(t, recordID, *transactions[2].SourceRecordID)
}

func TestCreditRejectsDebitKind(t *testing.T) {
	_, svc, account := setupLedgerTest(t)

	_, err := svc.Credit(context.Background(), ledgerdomain.CreditRequest{
		AccountID: account.ID,
		Amount:    1,
		Kind:      ledgerdomain.TransactionKindDebit,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidKind)
}

func TestCreditZeroAmountReadsBalance(t *testing.T) {
	_, svc, account := setupLedgerTest(t)
	grant(t, svc, account.ID, 7)

	balance, err := svc.Credit(context.Background(), ledgerdomain.CreditRequest{
		AccountID: account.ID,
		Amount:    0,
		Kind:      ledgerdomain.TransactionKindGrant,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
}

func TestBalanceUnknownAccount(t *testing.T) {
	_, svc, _ := setupLedgerTest(t)

	_, err := svc.Balance(context.Background(), snowflake.ID(987654))
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}
