package ports

import (
	"context"
	"errors"
	"time"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// ErrDuplicate is returned by Create methods when a unique constraint rejects the row.
var ErrDuplicate = errors.New("duplicate record")

// ErrLockTimeout is returned by ...ForUpdate methods when the row lock was not
// granted before lock_timeout or the request deadline.
var ErrLockTimeout = errors.New("row lock wait timed out")

// AccountRepository defines persistence operations for accounts and their wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	UpdatePaymentPassword(ctx context.Context, tx pgx.Tx, id uuid.UUID, hash string) error
	// UpdateVerification sets the verification status. Nil realName/idNumber keep the stored values.
	UpdateVerification(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VerificationStatus, realName, idNumber *string) error
}

// WalletTransactionRepository is the append-only ledger store. It has no
// update or delete methods.
type WalletTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error)
}

// VehicleRepository defines persistence operations for listings.
type VehicleRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vehicle *domain.Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vehicle, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VehicleStatus, at time.Time) error
	List(ctx context.Context, params VehicleListParams) ([]domain.Vehicle, int64, error)
}

// VehicleListParams holds filter + pagination for browsing listings.
type VehicleListParams struct {
	Status   *domain.VehicleStatus
	SellerID *uuid.UUID
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	PageSize int
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error)
	// UpdateStatus writes status, timestamps and seller_note of an order locked in tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	HasActiveForVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) (bool, error)
	List(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
	GetSellerStats(ctx context.Context, sellerID uuid.UUID, since *time.Time) (*OrderStats, error)
}

// OrderListParams holds filter + pagination for listing orders.
type OrderListParams struct {
	AccountID uuid.UUID
	Party     *domain.Party // nil = orders on either side
	Status    *domain.OrderStatus
	Page      int
	PageSize  int
}

// OrderStats holds per-status order counts for a seller.
type OrderStats struct {
	TotalOrders    int64
	PendingPayment int64
	Paid           int64
	Completed      int64
	Cancelled      int64
	TotalRevenue   decimal.Decimal // sum of completed order prices
}

// ReviewRepository stores admin review records for listings and identity checks.
type ReviewRepository interface {
	CreateVehicleReview(ctx context.Context, tx pgx.Tx, review *domain.VehicleReview) error
	GetVehicleReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VehicleReview, error)
	UpdateVehicleReview(ctx context.Context, tx pgx.Tx, review *domain.VehicleReview) error
	ListVehicleReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VehicleReview, int64, error)
	CreateVerificationReview(ctx context.Context, tx pgx.Tx, review *domain.VerificationReview) error
	GetVerificationReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VerificationReview, error)
	UpdateVerificationReview(ctx context.Context, tx pgx.Tx, review *domain.VerificationReview) error
	ListVerificationReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VerificationReview, int64, error)
}

// FeedbackRepository stores order messages and order reviews.
type FeedbackRepository interface {
	CreateMessage(ctx context.Context, msg *domain.OrderMessage) error
	ListMessages(ctx context.Context, orderID uuid.UUID) ([]domain.OrderMessage, error)
	CreateReview(ctx context.Context, review *domain.OrderReview) error
	ListReviews(ctx context.Context, orderID uuid.UUID) ([]domain.OrderReview, error)
	HasReviewed(ctx context.Context, orderID, reviewerID uuid.UUID) (bool, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
