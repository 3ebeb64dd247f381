package postgres

import (
	"context"
	"fmt"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
)

// FeedbackRepo implements ports.FeedbackRepository.
type FeedbackRepo struct {
	pool Pool
}

// NewFeedbackRepo creates a new FeedbackRepo.
func NewFeedbackRepo(pool Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func (r *FeedbackRepo) CreateMessage(ctx context.Context, m *domain.OrderMessage) error {
	query := `INSERT INTO order_messages (id, order_id, sender_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, m.ID, m.OrderID, m.SenderID, m.Content, m.CreatedAt); err != nil {
		return fmt.Errorf("insert order message: %w", err)
	}
	return nil
}

// ListMessages returns an order's conversation, oldest first.
func (r *FeedbackRepo) ListMessages(ctx context.Context, orderID uuid.UUID) ([]domain.OrderMessage, error) {
	query := `SELECT id, order_id, sender_id, content, created_at FROM order_messages
		WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.OrderMessage
	for rows.Next() {
		m := domain.OrderMessage{}
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order messages: %w", err)
	}
	return msgs, nil
}

// CreateReview inserts a rating. UNIQUE (order_id, reviewer_id) maps to ports.ErrDuplicate.
func (r *FeedbackRepo) CreateReview(ctx context.Context, rv *domain.OrderReview) error {
	query := `INSERT INTO order_reviews (id, order_id, reviewer_id, rating, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.pool.Exec(ctx, query, rv.ID, rv.OrderID, rv.ReviewerID, rv.Rating, rv.Content, rv.CreatedAt); err != nil {
		return mapInsertErr("insert order review", err)
	}
	return nil
}

func (r *FeedbackRepo) ListReviews(ctx context.Context, orderID uuid.UUID) ([]domain.OrderReview, error) {
	query := `SELECT id, order_id, reviewer_id, rating, content, created_at FROM order_reviews
		WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.OrderReview
	for rows.Next() {
		rv := domain.OrderReview{}
		if err := rows.Scan(&rv.ID, &rv.OrderID, &rv.ReviewerID, &rv.Rating, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order reviews: %w", err)
	}
	return reviews, nil
}

func (r *FeedbackRepo) HasReviewed(ctx context.Context, orderID, reviewerID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM order_reviews WHERE order_id = $1 AND reviewer_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, orderID, reviewerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order review: %w", err)
	}
	return exists, nil
}
