package postgres

import (
	"context"
	"fmt"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletTransactionRepo implements ports.WalletTransactionRepository.
// The ledger is append-only: there is no UPDATE or DELETE here.
type WalletTransactionRepo struct {
	pool Pool
}

// NewWalletTransactionRepo creates a new WalletTransactionRepo.
func NewWalletTransactionRepo(pool Pool) *WalletTransactionRepo {
	return &WalletTransactionRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *WalletTransactionRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, account_id, amount, kind, method, status,
		description, order_number, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AccountID, e.Amount, e.Kind, e.Method, e.Status,
		e.Description, e.OrderNumber, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByAccount returns an account's ledger, newest first.
func (r *WalletTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE account_id = $1`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT id, account_id, amount, kind, method, status, description, order_number, balance_after, created_at
		FROM wallet_transactions WHERE account_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletTransaction
	for rows.Next() {
		e := domain.WalletTransaction{}
		err := rows.Scan(
			&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Method, &e.Status,
			&e.Description, &e.OrderNumber, &e.BalanceAfter, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan wallet transaction row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallet transaction rows: %w", err)
	}
	return entries, total, nil
}
