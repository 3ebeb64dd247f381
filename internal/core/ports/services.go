package ports

import (
	"context"
	"time"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// EncryptionService encrypts sensitive fields at rest (AES-256-GCM).
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, role domain.AccountRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Role      domain.AccountRole
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RequestLock serialises concurrent requests that share an idempotency key.
type RequestLock interface {
	// Acquire returns false when another request already holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CredentialAttemptTracker counts wrong payment password attempts per account.
type CredentialAttemptTracker interface {
	Failures(ctx context.Context, accountID uuid.UUID) (int64, error)
	RecordFailure(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error)
	Reset(ctx context.Context, accountID uuid.UUID) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// --- Service Ports (Business Logic) ---

// LedgerEntry describes one balance change requested from the WalletLedger.
type LedgerEntry struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Kind        domain.LedgerKind
	Method      domain.PaymentMethod
	Description string
	OrderNumber *string
}

// WalletLedger owns balance mutations. Debit and Credit lock the account row
// inside tx and write the balance and its ledger entry together.
type WalletLedger interface {
	Debit(ctx context.Context, tx pgx.Tx, entry LedgerEntry) (*domain.WalletTransaction, error)
	Credit(ctx context.Context, tx pgx.Tx, entry LedgerEntry) (*domain.WalletTransaction, error)
	History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error)
}

// PaymentPasswordGuard gates wallet-affecting operations behind the 6-digit payment password.
type PaymentPasswordGuard interface {
	// Verify checks supplied against the account locked in tx.
	Verify(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, supplied string) error
	// Check verifies outside of any wallet transaction.
	Check(ctx context.Context, accountID uuid.UUID, supplied string) error
	Set(ctx context.Context, accountID uuid.UUID, password, confirm string) error
	Change(ctx context.Context, accountID uuid.UUID, current, next, confirm string) error
}

// WalletService is the account-facing wallet surface.
type WalletService interface {
	GetWallet(ctx context.Context, accountID uuid.UUID) (*WalletSummary, error)
	Recharge(ctx context.Context, req RechargeRequest) (*RechargeResult, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.WalletTransaction, int64, error)
}

// WalletSummary is the balance view of an account.
type WalletSummary struct {
	Balance            decimal.Decimal `json:"balance"`
	FrozenBalance      decimal.Decimal `json:"frozen_balance"`
	HasPaymentPassword bool            `json:"has_payment_password"`
}

// RechargeRequest holds validated input for a wallet top-up.
type RechargeRequest struct {
	AccountID       uuid.UUID
	Amount          decimal.Decimal
	Method          domain.PaymentMethod
	PaymentPassword string
	IdempotencyKey  string
}

// RechargeResult is returned after a successful top-up.
type RechargeResult struct {
	Balance     decimal.Decimal           `json:"balance"`
	Transaction *domain.WalletTransaction `json:"transaction"`
}

// OrderService is the order state machine.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	Transition(ctx context.Context, req TransitionRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
}

// CreateOrderRequest holds validated input for a purchase.
type CreateOrderRequest struct {
	BuyerID          uuid.UUID
	VehicleID        uuid.UUID
	Price            decimal.Decimal
	PaymentPassword  string
	BuyerNote        string
	BuyerPhone       string
	DeliveryAddress  string
	DeliveryTime     *time.Time
	VehicleColor     string
	VehicleModelType string
	IdempotencyKey   string
}

// TransitionRequest asks the state machine to apply one action.
type TransitionRequest struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Action  domain.OrderAction
	Reason  string // seller cancellation reason
}

// FeedbackService handles order messages and reviews.
type FeedbackService interface {
	PostMessage(ctx context.Context, orderID, senderID uuid.UUID, content string) (*domain.OrderMessage, error)
	ListMessages(ctx context.Context, orderID, actorID uuid.UUID) ([]domain.OrderMessage, error)
	PostReview(ctx context.Context, orderID, reviewerID uuid.UUID, rating int, content string) (*domain.OrderReview, error)
	ListReviews(ctx context.Context, orderID uuid.UUID) ([]domain.OrderReview, error)
	HasReviewed(ctx context.Context, orderID, reviewerID uuid.UUID) (bool, error)
}

// ListingService handles vehicle listings.
type ListingService interface {
	CreateVehicle(ctx context.Context, req CreateVehicleRequest) (*domain.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context, params VehicleListParams) ([]domain.Vehicle, int64, error)
}

// CreateVehicleRequest holds validated input for a new listing.
type CreateVehicleRequest struct {
	SellerID    uuid.UUID
	Brand       string
	Model       string
	Year        int
	Mileage     int
	Price       decimal.Decimal
	Description string
}

// ReviewService handles identity submissions and admin review decisions.
type ReviewService interface {
	SubmitVerification(ctx context.Context, accountID uuid.UUID, realName, idNumber string) (*domain.VerificationReview, error)
	ListVehicleReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VehicleReview, int64, error)
	DecideVehicleReview(ctx context.Context, req ReviewDecision) (*domain.VehicleReview, error)
	ListVerificationReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VerificationReview, int64, error)
	DecideVerificationReview(ctx context.Context, req ReviewDecision) (*domain.VerificationReview, error)
}

// ReviewDecision is an admin ruling on a review record.
type ReviewDecision struct {
	ReviewID   uuid.UUID
	ReviewerID uuid.UUID
	Approve    bool
	Comment    string
}

// ReportingService aggregates seller statistics.
type ReportingService interface {
	GetSellerStats(ctx context.Context, sellerID uuid.UUID, period string) (*OrderStats, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
	Profile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
	Role     domain.AccountRole
}

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
