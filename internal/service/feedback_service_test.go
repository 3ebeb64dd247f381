package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupFeedbackService(t *testing.T) (ports.FeedbackService, *mocks.MockOrderRepository, *mocks.MockFeedbackRepository) {
	ctrl := gomock.NewController(t)
	orderRepo := mocks.NewMockOrderRepository(ctrl)
	feedbackRepo := mocks.NewMockFeedbackRepository(ctrl)
	return NewFeedbackService(orderRepo, feedbackRepo, newTestLogger()), orderRepo, feedbackRepo
}

func TestFeedbackService_PostMessage(t *testing.T) {
	svc, orderRepo, feedbackRepo := setupFeedbackService(t)
	buyer, seller := uuid.New(), uuid.New()
	order := paidOrder(buyer, seller)

	orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
	feedbackRepo.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)

	msg, err := svc.PostMessage(context.Background(), order.ID, seller, "  When can you pick it up?  ")
	require.NoError(t, err)
	assert.Equal(t, "When can you pick it up?", msg.Content)
	assert.Equal(t, seller, msg.SenderID)
}

func TestFeedbackService_PostMessage_Validation(t *testing.T) {
	svc, _, _ := setupFeedbackService(t)

	_, err := svc.PostMessage(context.Background(), uuid.New(), uuid.New(), "   ")
	assertAppError(t, err, "VAL_001")

	_, err = svc.PostMessage(context.Background(), uuid.New(), uuid.New(), strings.Repeat("x", maxMessageLength+1))
	assertAppError(t, err, "VAL_001")
}

func TestFeedbackService_ListMessages_Outsider(t *testing.T) {
	svc, orderRepo, _ := setupFeedbackService(t)
	order := paidOrder(uuid.New(), uuid.New())

	orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)

	_, err := svc.ListMessages(context.Background(), order.ID, uuid.New())
	assertAppError(t, err, "ORD_001")
}

func TestFeedbackService_PostReview(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()

	t.Run("success", func(t *testing.T) {
		svc, orderRepo, feedbackRepo := setupFeedbackService(t)
		order := paidOrder(buyer, seller)
		order.Status = domain.OrderStatusCompleted

		orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
		feedbackRepo.EXPECT().HasReviewed(gomock.Any(), order.ID, buyer).Return(false, nil)
		feedbackRepo.EXPECT().CreateReview(gomock.Any(), gomock.Any()).Return(nil)

		review, err := svc.PostReview(context.Background(), order.ID, buyer, 5, "great car")
		require.NoError(t, err)
		assert.Equal(t, 5, review.Rating)
	})

	t.Run("rating out of range", func(t *testing.T) {
		svc, _, _ := setupFeedbackService(t)
		_, err := svc.PostReview(context.Background(), uuid.New(), buyer, 6, "")
		assertAppError(t, err, "VAL_001")
	})

	t.Run("order not completed", func(t *testing.T) {
		svc, orderRepo, _ := setupFeedbackService(t)
		order := paidOrder(buyer, seller)
		orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)

		_, err := svc.PostReview(context.Background(), order.ID, buyer, 4, "")
		assertAppError(t, err, "ORD_002")
	})

	t.Run("already reviewed", func(t *testing.T) {
		svc, orderRepo, feedbackRepo := setupFeedbackService(t)
		order := paidOrder(buyer, seller)
		order.Status = domain.OrderStatusCompleted
		orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
		feedbackRepo.EXPECT().HasReviewed(gomock.Any(), order.ID, seller).Return(true, nil)

		_, err := svc.PostReview(context.Background(), order.ID, seller, 4, "")
		assertAppError(t, err, "ORD_007")
	})

	t.Run("lost race on unique key", func(t *testing.T) {
		svc, orderRepo, feedbackRepo := setupFeedbackService(t)
		order := paidOrder(buyer, seller)
		order.Status = domain.OrderStatusCompleted
		orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
		feedbackRepo.EXPECT().HasReviewed(gomock.Any(), order.ID, buyer).Return(false, nil)
		feedbackRepo.EXPECT().CreateReview(gomock.Any(), gomock.Any()).Return(ports.ErrDuplicate)

		_, err := svc.PostReview(context.Background(), order.ID, buyer, 3, "")
		assertAppError(t, err, "ORD_007")
	})
}

func TestFeedbackService_ListReviews(t *testing.T) {
	svc, _, feedbackRepo := setupFeedbackService(t)
	orderID := uuid.New()

	feedbackRepo.EXPECT().ListReviews(gomock.Any(), orderID).Return([]domain.OrderReview{{Rating: 4}, {Rating: 5}}, nil)

	reviews, err := svc.ListReviews(context.Background(), orderID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestFeedbackService_HasReviewed(t *testing.T) {
	svc, _, feedbackRepo := setupFeedbackService(t)
	orderID, reviewer := uuid.New(), uuid.New()

	feedbackRepo.EXPECT().HasReviewed(gomock.Any(), orderID, reviewer).Return(true, nil)
	reviewed, err := svc.HasReviewed(context.Background(), orderID, reviewer)
	require.NoError(t, err)
	assert.True(t, reviewed)

	feedbackRepo.EXPECT().HasReviewed(gomock.Any(), orderID, reviewer).Return(false, errors.New("conn reset"))
	_, err = svc.HasReviewed(context.Background(), orderID, reviewer)
	assertAppError(t, err, "SYS_001")
}
