package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/internal/core/ports/mocks"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testIdemCfg = IdempotencyConfig{TTL: 24 * time.Hour, LockTTL: 30 * time.Second}

type walletTestDeps struct {
	svc         *WalletServiceImpl
	accountRepo *mocks.MockAccountRepository
	ledger      *mocks.MockWalletLedger
	guard       *mocks.MockPaymentPasswordGuard
	idempRepo   *mocks.MockIdempotencyRepository
	idempCache  *mocks.MockIdempotencyCache
	reqLock     *mocks.MockRequestLock
	transactor  *mocks.MockDBTransactor
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		ledger:      mocks.NewMockWalletLedger(ctrl),
		guard:       mocks.NewMockPaymentPasswordGuard(ctrl),
		idempRepo:   mocks.NewMockIdempotencyRepository(ctrl),
		idempCache:  mocks.NewMockIdempotencyCache(ctrl),
		reqLock:     mocks.NewMockRequestLock(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewWalletService(
		d.accountRepo, d.ledger, d.guard, d.idempRepo, d.idempCache, d.reqLock,
		d.transactor, testIdemCfg, dec("10000.00"), newTestLogger(),
	)
	return d
}

func TestWalletService_GetWallet(t *testing.T) {
	d := setupWalletService(t)
	id := uuid.New()

	d.accountRepo.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Account{
		ID: id, Balance: dec("88.80"), FrozenBalance: dec("0"), PaymentPasswordHash: strPtr(storedHash),
	}, nil)

	w, err := d.svc.GetWallet(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "88.80", domain.FormatAmount(w.Balance))
	assert.True(t, w.FrozenBalance.IsZero())
	assert.True(t, w.HasPaymentPassword)
}

func TestWalletService_Recharge_Success(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.guard.EXPECT().Verify(ctx, tx, id, "123456").Return(nil)
	d.ledger.EXPECT().Credit(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, e ports.LedgerEntry) (*domain.WalletTransaction, error) {
			assert.Equal(t, domain.LedgerKindRecharge, e.Kind)
			assert.Equal(t, domain.PaymentMethodAlipay, e.Method)
			assert.Equal(t, "Wallet recharge via alipay", e.Description)
			return &domain.WalletTransaction{ID: uuid.New(), Amount: e.Amount, Kind: e.Kind, BalanceAfter: dec("150.00")}, nil
		})

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("100.00"), Method: domain.PaymentMethodAlipay, PaymentPassword: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", domain.FormatAmount(res.Balance))
	assert.True(t, tx.committed)
}

func TestWalletService_Recharge_Validation(t *testing.T) {
	d := setupWalletService(t)

	tests := []struct {
		name   string
		amount string
		method domain.PaymentMethod
		code   string
	}{
		{"zero amount", "0", domain.PaymentMethodBank, "WAL_002"},
		{"three decimals", "1.001", domain.PaymentMethodBank, "WAL_002"},
		{"over limit", "10000.01", domain.PaymentMethodBank, "WAL_004"},
		{"wallet method", "10.00", domain.PaymentMethodWallet, "WAL_003"},
		{"unknown method", "10.00", domain.PaymentMethod("cash"), "WAL_003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Recharge(context.Background(), ports.RechargeRequest{
				AccountID: uuid.New(), Amount: dec(tt.amount), Method: tt.method, PaymentPassword: "123456",
			})
			assertAppError(t, err, tt.code)
		})
	}
}

func TestWalletService_Recharge_CredentialFailureCreditsNothing(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.guard.EXPECT().Verify(ctx, tx, id, "000000").Return(apperror.ErrPaymentPasswordMismatch())
	// Ledger is never reached.

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("10.00"), Method: domain.PaymentMethodWechat, PaymentPassword: "000000",
	})
	assertAppError(t, err, "PWD_002")
	assert.False(t, tx.committed)
}

func TestWalletService_Recharge_IdempotentReplayFromCache(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	id := uuid.New()

	cached, _ := json.Marshal(ports.RechargeResult{Balance: dec("42.00")})
	key := domain.BuildIdempotencyKey(id, domain.IdempotencyOpRecharge, "req-1")
	d.idempCache.EXPECT().Get(ctx, key).Return(cached, nil)

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("10.00"), Method: domain.PaymentMethodBank,
		PaymentPassword: "123456", IdempotencyKey: "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "42.00", domain.FormatAmount(res.Balance))
}

func TestWalletService_Recharge_IdempotentFirstRun(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()
	key := domain.BuildIdempotencyKey(id, domain.IdempotencyOpRecharge, "req-2")

	// Looked up before and after taking the lock.
	d.idempCache.EXPECT().Get(ctx, key).Return(nil, errors.New("redis down")).Times(2)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil).Times(2)
	d.reqLock.EXPECT().Acquire(ctx, key, 30*time.Second).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.guard.EXPECT().Verify(ctx, tx, id, "123456").Return(nil)
	d.ledger.EXPECT().Credit(ctx, tx, gomock.Any()).
		Return(&domain.WalletTransaction{ID: uuid.New(), BalanceAfter: dec("10.00")}, nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, key, gomock.Any(), 24*time.Hour).Return(nil)
	d.reqLock.EXPECT().Release(gomock.Any(), key).Return(nil)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("10.00"), Method: domain.PaymentMethodBank,
		PaymentPassword: "123456", IdempotencyKey: "req-2",
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
}

func TestWalletService_Recharge_ReplaysTwinFinishedWhileWaiting(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	id := uuid.New()
	key := domain.BuildIdempotencyKey(id, domain.IdempotencyOpRecharge, "req-4")
	stored, _ := json.Marshal(ports.RechargeResult{Balance: dec("77.10")})

	gomock.InOrder(
		d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil),
		d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil),
		d.reqLock.EXPECT().Acquire(ctx, key, 30*time.Second).Return(true, nil),
		d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil),
		d.idempRepo.EXPECT().Get(ctx, key).Return(&domain.IdempotencyLog{Key: key, ResponseJSON: stored}, nil),
		d.reqLock.EXPECT().Release(gomock.Any(), key).Return(nil),
	)

	res, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("10.00"), Method: domain.PaymentMethodBank,
		PaymentPassword: "123456", IdempotencyKey: "req-4",
	})
	require.NoError(t, err)
	assert.Equal(t, "77.10", domain.FormatAmount(res.Balance))
}

func TestWalletService_Recharge_SameKeyInFlight(t *testing.T) {
	d := setupWalletService(t)
	ctx := context.Background()
	id := uuid.New()
	key := domain.BuildIdempotencyKey(id, domain.IdempotencyOpRecharge, "req-3")

	d.idempCache.EXPECT().Get(ctx, key).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, key).Return(nil, nil)
	d.reqLock.EXPECT().Acquire(ctx, key, 30*time.Second).Return(false, nil)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		AccountID: id, Amount: dec("10.00"), Method: domain.PaymentMethodBank,
		PaymentPassword: "123456", IdempotencyKey: "req-3",
	})
	assertAppError(t, err, "REQ_001")
}

func TestWalletService_ListTransactions(t *testing.T) {
	d := setupWalletService(t)
	id := uuid.New()

	d.ledger.EXPECT().History(gomock.Any(), id, 2, 10).Return([]domain.WalletTransaction{}, int64(11), nil)

	_, total, err := d.svc.ListTransactions(context.Background(), id, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
}
