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
)

// GuardConfig controls the wrong-password lockout. MaxAttempts <= 0 disables it.
type GuardConfig struct {
	MaxAttempts   int64
	LockoutWindow time.Duration
}

// PaymentPasswordGuardImpl implements ports.PaymentPasswordGuard.
type PaymentPasswordGuardImpl struct {
	accountRepo ports.AccountRepository
	hashSvc     ports.HashService
	attempts    ports.CredentialAttemptTracker // optional
	transactor  ports.DBTransactor
	cfg         GuardConfig
	log         zerolog.Logger
}

// NewPaymentPasswordGuard creates a new PaymentPasswordGuardImpl.
// attempts may be nil, in which case no lockout is applied.
func NewPaymentPasswordGuard(
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	attempts ports.CredentialAttemptTracker,
	transactor ports.DBTransactor,
	cfg GuardConfig,
	log zerolog.Logger,
) *PaymentPasswordGuardImpl {
	return &PaymentPasswordGuardImpl{
		accountRepo: accountRepo,
		hashSvc:     hashSvc,
		attempts:    attempts,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// Verify checks supplied against the account row locked in tx.
func (g *PaymentPasswordGuardImpl) Verify(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, supplied string) error {
	if !domain.IsValidPaymentPassword(supplied) {
		return apperror.ErrPaymentPasswordMalformed()
	}
	account, err := g.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return lockFailure("account", err)
	}
	return g.verifyAccount(ctx, account, supplied)
}

// Check verifies supplied without a surrounding transaction.
func (g *PaymentPasswordGuardImpl) Check(ctx context.Context, accountID uuid.UUID, supplied string) error {
	if !domain.IsValidPaymentPassword(supplied) {
		return apperror.ErrPaymentPasswordMalformed()
	}
	account, err := g.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	return g.verifyAccount(ctx, account, supplied)
}

func (g *PaymentPasswordGuardImpl) verifyAccount(ctx context.Context, account *domain.Account, supplied string) error {
	if account == nil {
		return apperror.ErrNotFound("Account")
	}
	if !account.HasPaymentPassword() {
		return apperror.ErrPaymentPasswordNotSet()
	}
	if g.isLocked(ctx, account.ID) {
		return apperror.ErrPaymentPasswordLocked()
	}

	ok, err := g.hashSvc.Verify(supplied, *account.PaymentPasswordHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify payment password: %w", err))
	}
	if !ok {
		g.recordFailure(ctx, account.ID)
		return apperror.ErrPaymentPasswordMismatch()
	}

	g.resetFailures(ctx, account.ID)
	return nil
}

// Set registers the first payment password. It fails once one exists.
func (g *PaymentPasswordGuardImpl) Set(ctx context.Context, accountID uuid.UUID, password, confirm string) error {
	if !domain.IsValidPaymentPassword(password) {
		return apperror.ErrPaymentPasswordMalformed()
	}
	if password != confirm {
		return apperror.ErrPaymentPasswordConfirmMismatch()
	}

	dbTx, err := g.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := g.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return lockFailure("account", err)
	}
	if account == nil {
		return apperror.ErrNotFound("Account")
	}
	if account.HasPaymentPassword() {
		return apperror.ErrPaymentPasswordAlreadySet()
	}

	if err := g.store(ctx, dbTx, accountID, password); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	g.log.Info().Str("account_id", accountID.String()).Msg("payment password set")
	return nil
}

// Change replaces the payment password after verifying the current one.
func (g *PaymentPasswordGuardImpl) Change(ctx context.Context, accountID uuid.UUID, current, next, confirm string) error {
	if !domain.IsValidPaymentPassword(current) || !domain.IsValidPaymentPassword(next) {
		return apperror.ErrPaymentPasswordMalformed()
	}
	if next != confirm {
		return apperror.ErrPaymentPasswordConfirmMismatch()
	}
	if next == current {
		return apperror.ErrPaymentPasswordReused()
	}

	dbTx, err := g.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := g.Verify(ctx, dbTx, accountID, current); err != nil {
		return err
	}
	if err := g.store(ctx, dbTx, accountID, next); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	g.log.Info().Str("account_id", accountID.String()).Msg("payment password changed")
	return nil
}

func (g *PaymentPasswordGuardImpl) store(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, password string) error {
	hash, err := g.hashSvc.Hash(password)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash payment password: %w", err))
	}
	if err := g.accountRepo.UpdatePaymentPassword(ctx, tx, accountID, hash); err != nil {
		return apperror.InternalError(fmt.Errorf("update payment password: %w", err))
	}
	return nil
}

// Lockout helpers. Tracker failures are logged and never block the request.

func (g *PaymentPasswordGuardImpl) isLocked(ctx context.Context, accountID uuid.UUID) bool {
	if g.attempts == nil || g.cfg.MaxAttempts <= 0 {
		return false
	}
	n, err := g.attempts.Failures(ctx, accountID)
	if err != nil {
		g.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("credential attempt lookup failed")
		return false
	}
	return n >= g.cfg.MaxAttempts
}

func (g *PaymentPasswordGuardImpl) recordFailure(ctx context.Context, accountID uuid.UUID) {
	if g.attempts == nil || g.cfg.MaxAttempts <= 0 {
		return
	}
	n, err := g.attempts.RecordFailure(ctx, accountID, g.cfg.LockoutWindow)
	if err != nil {
		g.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to record credential failure")
		return
	}
	if n >= g.cfg.MaxAttempts {
		g.log.Warn().Str("account_id", accountID.String()).Int64("failures", n).Msg("payment password locked")
	}
}

func (g *PaymentPasswordGuardImpl) resetFailures(ctx context.Context, accountID uuid.UUID) {
	if g.attempts == nil || g.cfg.MaxAttempts <= 0 {
		return
	}
	if err := g.attempts.Reset(ctx, accountID); err != nil {
		g.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to reset credential failures")
	}
}
