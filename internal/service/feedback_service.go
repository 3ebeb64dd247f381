package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxMessageLength = 2000

// feedbackService implements ports.FeedbackService.
type feedbackService struct {
	orderRepo    ports.OrderRepository
	feedbackRepo ports.FeedbackRepository
	log          zerolog.Logger
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(orderRepo ports.OrderRepository, feedbackRepo ports.FeedbackRepository, log zerolog.Logger) ports.FeedbackService {
	return &feedbackService{orderRepo: orderRepo, feedbackRepo: feedbackRepo, log: log}
}

// participantOrder loads an order the actor takes part in.
// Outsiders get ORD_001 so order ids cannot be probed.
func (s *feedbackService) participantOrder(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find order: %w", err))
	}
	if order == nil || !order.IsParticipant(actorID) {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

func (s *feedbackService) PostMessage(ctx context.Context, orderID, senderID uuid.UUID, content string) (*domain.OrderMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, apperror.Validation(fmt.Sprintf("message content exceeds %d characters", maxMessageLength))
	}
	if _, err := s.participantOrder(ctx, orderID, senderID); err != nil {
		return nil, err
	}

	msg := &domain.OrderMessage{
		ID:        uuid.New(),
		OrderID:   orderID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.feedbackRepo.CreateMessage(ctx, msg); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create message: %w", err))
	}
	return msg, nil
}

func (s *feedbackService) ListMessages(ctx context.Context, orderID, actorID uuid.UUID) ([]domain.OrderMessage, error) {
	if _, err := s.participantOrder(ctx, orderID, actorID); err != nil {
		return nil, err
	}
	msgs, err := s.feedbackRepo.ListMessages(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list messages: %w", err))
	}
	return msgs, nil
}

// PostReview rates a completed order. Each participant may review once.
func (s *feedbackService) PostReview(ctx context.Context, orderID, reviewerID uuid.UUID, rating int, content string) (*domain.OrderReview, error) {
	if !domain.ValidRating(rating) {
		return nil, apperror.Validation(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	order, err := s.participantOrder(ctx, orderID, reviewerID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusCompleted {
		return nil, apperror.ErrInvalidOrderState("Only completed orders can be reviewed")
	}

	reviewed, err := s.feedbackRepo.HasReviewed(ctx, orderID, reviewerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check review: %w", err))
	}
	if reviewed {
		return nil, apperror.ErrReviewExists()
	}

	review := &domain.OrderReview{
		ID:         uuid.New(),
		OrderID:    orderID,
		ReviewerID: reviewerID,
		Rating:     rating,
		Content:    strings.TrimSpace(content),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.feedbackRepo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, apperror.ErrReviewExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create review: %w", err))
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Str("reviewer_id", reviewerID.String()).
		Int("rating", rating).
		Msg("order reviewed")
	return review, nil
}

func (s *feedbackService) ListReviews(ctx context.Context, orderID uuid.UUID) ([]domain.OrderReview, error) {
	reviews, err := s.feedbackRepo.ListReviews(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list reviews: %w", err))
	}
	return reviews, nil
}

// HasReviewed reports whether reviewerID already reviewed the order.
func (s *feedbackService) HasReviewed(ctx context.Context, orderID, reviewerID uuid.UUID) (bool, error) {
	reviewed, err := s.feedbackRepo.HasReviewed(ctx, orderID, reviewerID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("check review: %w", err))
	}
	return reviewed, nil
}
