package postgres

import (
	"context"
	"fmt"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, username, password_hash, role, status, balance, frozen_balance,
		payment_password_hash, verification_status, real_name, id_number, created_at, updated_at`

// AccountRepo implements ports.AccountRepository. The wallet balance lives
// on the account row, so locking the account locks the wallet.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.Role, a.Status, a.Balance, a.FrozenBalance,
		a.PaymentPasswordHash, a.VerificationStatus, a.RealName, a.IDNumber, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return mapInsertErr("insert account", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches an account by its login name.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, username))
}

// GetByIDForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	a, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapLockErr(err)
	}
	return a, nil
}

// UpdateBalance writes the new balance of an account locked in tx.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// UpdatePaymentPassword stores a new payment password hash.
func (r *AccountRepo) UpdatePaymentPassword(ctx context.Context, tx pgx.Tx, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET payment_password_hash = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("update payment password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// UpdateVerification sets the verification status. Nil realName or idNumber
// keep the stored value.
func (r *AccountRepo) UpdateVerification(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VerificationStatus, realName, idNumber *string) error {
	query := `UPDATE accounts SET verification_status = $1,
		real_name = COALESCE($2, real_name), id_number = COALESCE($3, id_number), updated_at = NOW()
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, realName, idNumber, id)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.Status, &a.Balance, &a.FrozenBalance,
		&a.PaymentPasswordHash, &a.VerificationStatus, &a.RealName, &a.IDNumber, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
