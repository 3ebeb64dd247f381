package service

import (
	"context"
	"encoding/json"
	"fmt"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	accountRepo ports.AccountRepository
	ledger      ports.WalletLedger
	guard       ports.PaymentPasswordGuard
	transactor  ports.DBTransactor
	idem        *idempotencyGate
	maxRecharge decimal.Decimal
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
// A zero maxRecharge disables the per-recharge cap.
func NewWalletService(
	accountRepo ports.AccountRepository,
	ledger ports.WalletLedger,
	guard ports.PaymentPasswordGuard,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	reqLock ports.RequestLock,
	transactor ports.DBTransactor,
	idemCfg IdempotencyConfig,
	maxRecharge decimal.Decimal,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		accountRepo: accountRepo,
		ledger:      ledger,
		guard:       guard,
		transactor:  transactor,
		idem: &idempotencyGate{
			repo: idempRepo, cache: idempCache, lock: reqLock, cfg: idemCfg, log: log,
		},
		maxRecharge: maxRecharge,
		log:         log,
	}
}

// GetWallet returns the balance view of an account.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, accountID uuid.UUID) (*ports.WalletSummary, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	return &ports.WalletSummary{
		Balance:            account.Balance,
		FrozenBalance:      account.FrozenBalance,
		HasPaymentPassword: account.HasPaymentPassword(),
	}, nil
}

// Recharge credits the wallet after verifying the payment password.
func (s *WalletServiceImpl) Recharge(ctx context.Context, req ports.RechargeRequest) (*ports.RechargeResult, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if s.maxRecharge.IsPositive() && req.Amount.GreaterThan(s.maxRecharge) {
		return nil, apperror.ErrRechargeLimitExceeded()
	}
	if !req.Method.IsRechargeMethod() {
		return nil, apperror.ErrInvalidPaymentMethod()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.AccountID, domain.IdempotencyOpRecharge, req.IdempotencyKey)
		replay, release, err := s.idem.enter(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		defer release()
		if replay != nil {
			var result ports.RechargeResult
			if err := decodeReplay(replay, &result); err != nil {
				return nil, err
			}
			return &result, nil
		}
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.guard.Verify(ctx, dbTx, req.AccountID, req.PaymentPassword); err != nil {
		return nil, err
	}

	entry, err := s.ledger.Credit(ctx, dbTx, ports.LedgerEntry{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Kind:        domain.LedgerKindRecharge,
		Method:      req.Method,
		Description: fmt.Sprintf("Wallet recharge via %s", req.Method),
	})
	if err != nil {
		return nil, err
	}

	result := &ports.RechargeResult{Balance: entry.BalanceAfter, Transaction: entry}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		if err := s.idem.record(ctx, dbTx, idempKey, req.AccountID, entry.ID, respJSON); err != nil {
			return nil, err
		}
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		s.idem.remember(ctx, idempKey, respJSON)
	}

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Str("amount", domain.FormatAmount(req.Amount)).
		Str("method", string(req.Method)).
		Str("balance", domain.FormatAmount(entry.BalanceAfter)).
		Msg("wallet recharged")

	return result, nil
}

// ListTransactions returns the account's ledger, newest first.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	return s.ledger.History(ctx, accountID, page, pageSize)
}
