package postgres

import (
	"context"
	"fmt"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReviewRepo implements ports.ReviewRepository for both listing and
// identity review records.
type ReviewRepo struct {
	pool Pool
}

// NewReviewRepo creates a new ReviewRepo.
func NewReviewRepo(pool Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

// ---- Vehicle reviews ----

const vehicleReviewColumns = `id, vehicle_id, seller_id, status, reviewer_id, comment, created_at, reviewed_at`

func (r *ReviewRepo) CreateVehicleReview(ctx context.Context, tx pgx.Tx, rv *domain.VehicleReview) error {
	query := `INSERT INTO vehicle_reviews (` + vehicleReviewColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		rv.ID, rv.VehicleID, rv.SellerID, rv.Status, rv.ReviewerID, rv.Comment, rv.CreatedAt, rv.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vehicle review: %w", err)
	}
	return nil
}

// GetVehicleReviewForUpdate locks a vehicle review row.
func (r *ReviewRepo) GetVehicleReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VehicleReview, error) {
	query := `SELECT ` + vehicleReviewColumns + ` FROM vehicle_reviews WHERE id = $1 FOR UPDATE`
	rv, err := scanVehicleReview(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapLockErr(err)
	}
	return rv, nil
}

func (r *ReviewRepo) UpdateVehicleReview(ctx context.Context, tx pgx.Tx, rv *domain.VehicleReview) error {
	query := `UPDATE vehicle_reviews SET status = $1, reviewer_id = $2, comment = $3, reviewed_at = $4 WHERE id = $5`

	tag, err := tx.Exec(ctx, query, rv.Status, rv.ReviewerID, rv.Comment, rv.ReviewedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update vehicle review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle review not found: %s", rv.ID)
	}
	return nil
}

// ListVehicleReviews returns reviews oldest first so the queue is worked in order.
func (r *ReviewRepo) ListVehicleReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VehicleReview, int64, error) {
	where, args := reviewStatusFilter(status)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vehicle_reviews"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vehicle reviews: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM vehicle_reviews%s ORDER BY created_at LIMIT $%d OFFSET $%d`,
		vehicleReviewColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicle reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.VehicleReview
	for rows.Next() {
		rv, err := scanVehicleReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vehicle review rows: %w", err)
	}
	return reviews, total, nil
}

func scanVehicleReview(row pgx.Row) (*domain.VehicleReview, error) {
	rv := &domain.VehicleReview{}
	err := row.Scan(&rv.ID, &rv.VehicleID, &rv.SellerID, &rv.Status, &rv.ReviewerID, &rv.Comment, &rv.CreatedAt, &rv.ReviewedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vehicle review: %w", err)
	}
	return rv, nil
}

// ---- Verification reviews ----

const verificationReviewColumns = `id, account_id, real_name, id_number, status, reviewer_id, comment, created_at, reviewed_at`

func (r *ReviewRepo) CreateVerificationReview(ctx context.Context, tx pgx.Tx, rv *domain.VerificationReview) error {
	query := `INSERT INTO verification_reviews (` + verificationReviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		rv.ID, rv.AccountID, rv.RealName, rv.IDNumber, rv.Status, rv.ReviewerID, rv.Comment, rv.CreatedAt, rv.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification review: %w", err)
	}
	return nil
}

// GetVerificationReviewForUpdate locks a verification review row.
func (r *ReviewRepo) GetVerificationReviewForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.VerificationReview, error) {
	query := `SELECT ` + verificationReviewColumns + ` FROM verification_reviews WHERE id = $1 FOR UPDATE`
	rv, err := scanVerificationReview(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapLockErr(err)
	}
	return rv, nil
}

func (r *ReviewRepo) UpdateVerificationReview(ctx context.Context, tx pgx.Tx, rv *domain.VerificationReview) error {
	query := `UPDATE verification_reviews SET status = $1, reviewer_id = $2, comment = $3, reviewed_at = $4 WHERE id = $5`

	tag, err := tx.Exec(ctx, query, rv.Status, rv.ReviewerID, rv.Comment, rv.ReviewedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update verification review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("verification review not found: %s", rv.ID)
	}
	return nil
}

func (r *ReviewRepo) ListVerificationReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VerificationReview, int64, error) {
	where, args := reviewStatusFilter(status)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM verification_reviews"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count verification reviews: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM verification_reviews%s ORDER BY created_at LIMIT $%d OFFSET $%d`,
		verificationReviewColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list verification reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.VerificationReview
	for rows.Next() {
		rv, err := scanVerificationReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate verification review rows: %w", err)
	}
	return reviews, total, nil
}

func scanVerificationReview(row pgx.Row) (*domain.VerificationReview, error) {
	rv := &domain.VerificationReview{}
	err := row.Scan(&rv.ID, &rv.AccountID, &rv.RealName, &rv.IDNumber, &rv.Status, &rv.ReviewerID, &rv.Comment, &rv.CreatedAt, &rv.ReviewedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan verification review: %w", err)
	}
	return rv, nil
}

func reviewStatusFilter(status *domain.ReviewStatus) (string, []any) {
	if status == nil {
		return "", nil
	}
	return " WHERE status = $1", []any{*status}
}
