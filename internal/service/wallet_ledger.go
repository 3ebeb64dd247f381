package service

import (
	"context"
	"fmt"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletLedgerImpl implements ports.WalletLedger.
// It never opens or commits a transaction itself: callers own the tx so that
// a debit can share one atomic unit with an order insert.
type WalletLedgerImpl struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.WalletTransactionRepository
	log         zerolog.Logger
}

// NewWalletLedger creates a new WalletLedgerImpl.
func NewWalletLedger(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.WalletTransactionRepository,
	log zerolog.Logger,
) *WalletLedgerImpl {
	return &WalletLedgerImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		log:         log,
	}
}

// Debit locks the account, rejects overdrafts and appends a ledger entry.
func (l *WalletLedgerImpl) Debit(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry) (*domain.WalletTransaction, error) {
	if entry.Kind.IsCredit() {
		return nil, apperror.InternalError(fmt.Errorf("debit with credit kind %q", entry.Kind))
	}
	return l.apply(ctx, tx, entry, entry.Amount.Neg())
}

// Credit locks the account, adds the amount and appends a ledger entry.
func (l *WalletLedgerImpl) Credit(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry) (*domain.WalletTransaction, error) {
	if !entry.Kind.IsCredit() {
		return nil, apperror.InternalError(fmt.Errorf("credit with debit kind %q", entry.Kind))
	}
	return l.apply(ctx, tx, entry, entry.Amount)
}

func (l *WalletLedgerImpl) apply(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry, delta decimal.Decimal) (*domain.WalletTransaction, error) {
	if err := domain.ValidateAmount(entry.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	// Lock & get account
	account, err := l.accountRepo.GetByIDForUpdate(ctx, tx, entry.AccountID)
	if err != nil {
		return nil, lockFailure("account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}

	// Business rule: sufficient funds. Rejected, never clamped.
	newBalance := account.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := l.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	method := entry.Method
	if method == "" {
		method = domain.PaymentMethodWallet
	}
	record := &domain.WalletTransaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Amount:       entry.Amount,
		Kind:         entry.Kind,
		Method:       method,
		Status:       domain.LedgerStatusSuccess,
		Description:  entry.Description,
		OrderNumber:  entry.OrderNumber,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.ledgerRepo.Create(ctx, tx, record); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	l.log.Debug().
		Str("account_id", account.ID.String()).
		Str("kind", string(record.Kind)).
		Str("amount", domain.FormatAmount(record.Amount)).
		Str("balance_after", domain.FormatAmount(newBalance)).
		Msg("ledger entry appended")

	return record, nil
}

// History returns ledger entries newest-first.
func (l *WalletLedgerImpl) History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	entries, total, err := l.ledgerRepo.ListByAccount(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger: %w", err))
	}
	return entries, total, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage applies the default page (1) and page size (20, max 100).
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
