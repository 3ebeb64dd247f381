package service

import (
	"context"
	"errors"
	"testing"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reviewTestDeps struct {
	svc         ports.ReviewService
	accountRepo *mocks.MockAccountRepository
	vehicleRepo *mocks.MockVehicleRepository
	reviewRepo  *mocks.MockReviewRepository
	encSvc      *mocks.MockEncryptionService
	transactor  *mocks.MockDBTransactor
}

func setupReviewService(t *testing.T) *reviewTestDeps {
	ctrl := gomock.NewController(t)
	d := &reviewTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		vehicleRepo: mocks.NewMockVehicleRepository(ctrl),
		reviewRepo:  mocks.NewMockReviewRepository(ctrl),
		encSvc:      mocks.NewMockEncryptionService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewReviewService(d.accountRepo, d.vehicleRepo, d.reviewRepo, d.encSvc, d.transactor, newTestLogger())
	return d
}

// ==================== Verification Tests ====================

func TestReviewService_SubmitVerification_Success(t *testing.T) {
	d := setupReviewService(t)
	tx := &mockTx{}
	id := uuid.New()

	d.encSvc.EXPECT().Encrypt("110101199001011234").Return("v1:cipher", nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, id).
		Return(&domain.Account{ID: id, VerificationStatus: domain.VerificationUnverified}, nil)
	d.accountRepo.EXPECT().UpdateVerification(gomock.Any(), tx, id, domain.VerificationPending, strPtr("Li Wei"), strPtr("v1:cipher")).Return(nil)
	d.reviewRepo.EXPECT().CreateVerificationReview(gomock.Any(), tx, gomock.Any()).Return(nil)

	review, err := d.svc.SubmitVerification(context.Background(), id, " Li Wei ", "110101199001011234")
	require.NoError(t, err)
	assert.Equal(t, "v1:cipher", review.IDNumber)
	assert.Equal(t, "110***********1234", review.MaskedID)
	assert.Equal(t, domain.ReviewStatusPending, review.Status)
	assert.True(t, tx.committed)
}

func TestReviewService_SubmitVerification_AlreadyPending(t *testing.T) {
	for _, status := range []domain.VerificationStatus{domain.VerificationPending, domain.VerificationVerified} {
		t.Run(string(status), func(t *testing.T) {
			d := setupReviewService(t)
			tx := &mockTx{}
			id := uuid.New()

			d.encSvc.EXPECT().Encrypt(gomock.Any()).Return("v1:cipher", nil)
			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.accountRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, id).
				Return(&domain.Account{ID: id, VerificationStatus: status}, nil)

			_, err := d.svc.SubmitVerification(context.Background(), id, "Li Wei", "110101199001011234")
			assertAppError(t, err, "REV_003")
			assert.False(t, tx.committed)
		})
	}
}

func TestReviewService_SubmitVerification_MissingFields(t *testing.T) {
	d := setupReviewService(t)
	_, err := d.svc.SubmitVerification(context.Background(), uuid.New(), "", "123")
	assertAppError(t, err, "VAL_001")
}

func TestReviewService_DecideVerificationReview(t *testing.T) {
	d := setupReviewService(t)
	tx := &mockTx{}
	admin, accountID := uuid.New(), uuid.New()
	review := &domain.VerificationReview{ID: uuid.New(), AccountID: accountID, Status: domain.ReviewStatusPending}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.reviewRepo.EXPECT().GetVerificationReviewForUpdate(gomock.Any(), tx, review.ID).Return(review, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, accountID).Return(&domain.Account{ID: accountID}, nil)
	d.reviewRepo.EXPECT().UpdateVerificationReview(gomock.Any(), tx, review).Return(nil)
	d.accountRepo.EXPECT().UpdateVerification(gomock.Any(), tx, accountID, domain.VerificationVerified, nil, nil).Return(nil)

	got, err := d.svc.DecideVerificationReview(context.Background(), ports.ReviewDecision{
		ReviewID: review.ID, ReviewerID: admin, Approve: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewStatusApproved, got.Status)
	assert.Equal(t, admin, *got.ReviewerID)
	assert.True(t, tx.committed)
}

func TestReviewService_ListVerificationReviews_MasksIDNumber(t *testing.T) {
	d := setupReviewService(t)
	reviews := []domain.VerificationReview{
		{ID: uuid.New(), IDNumber: "v1:a"},
		{ID: uuid.New(), IDNumber: "v1:broken"},
	}

	d.reviewRepo.EXPECT().ListVerificationReviews(gomock.Any(), nil, 1, 20).Return(reviews, int64(2), nil)
	d.encSvc.EXPECT().Decrypt("v1:a").Return("440301198812120019", nil)
	d.encSvc.EXPECT().Decrypt("v1:broken").Return("", errors.New("cipher: message authentication failed"))

	got, total, err := d.svc.ListVerificationReviews(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "440***********0019", got[0].MaskedID)
	assert.Empty(t, got[1].MaskedID)
}

// ==================== Vehicle Review Tests ====================

func TestReviewService_DecideVehicleReview(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		status  domain.VehicleStatus
		result  domain.ReviewStatus
	}{
		{"approve lists vehicle", true, domain.VehicleStatusListed, domain.ReviewStatusApproved},
		{"reject", false, domain.VehicleStatusRejected, domain.ReviewStatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupReviewService(t)
			tx := &mockTx{}
			vehicleID := uuid.New()
			review := &domain.VehicleReview{ID: uuid.New(), VehicleID: vehicleID, Status: domain.ReviewStatusPending}

			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.reviewRepo.EXPECT().GetVehicleReviewForUpdate(gomock.Any(), tx, review.ID).Return(review, nil)
			d.vehicleRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, vehicleID).
				Return(&domain.Vehicle{ID: vehicleID, Status: domain.VehicleStatusPendingReview}, nil)
			d.reviewRepo.EXPECT().UpdateVehicleReview(gomock.Any(), tx, review).Return(nil)
			d.vehicleRepo.EXPECT().UpdateStatus(gomock.Any(), tx, vehicleID, tt.status, gomock.Any()).Return(nil)

			got, err := d.svc.DecideVehicleReview(context.Background(), ports.ReviewDecision{
				ReviewID: review.ID, ReviewerID: uuid.New(), Approve: tt.approve, Comment: " ok ",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.result, got.Status)
			assert.Equal(t, "ok", got.Comment)
			assert.True(t, tx.committed)
		})
	}
}

func TestReviewService_DecideVehicleReview_AlreadyDecided(t *testing.T) {
	d := setupReviewService(t)
	tx := &mockTx{}
	review := &domain.VehicleReview{ID: uuid.New(), Status: domain.ReviewStatusApproved}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.reviewRepo.EXPECT().GetVehicleReviewForUpdate(gomock.Any(), tx, review.ID).Return(review, nil)

	_, err := d.svc.DecideVehicleReview(context.Background(), ports.ReviewDecision{ReviewID: review.ID, Approve: false})
	assertAppError(t, err, "REV_002")
}

func TestReviewService_DecideVehicleReview_NotFound(t *testing.T) {
	d := setupReviewService(t)
	tx := &mockTx{}
	id := uuid.New()

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.reviewRepo.EXPECT().GetVehicleReviewForUpdate(gomock.Any(), tx, id).Return(nil, nil)

	_, err := d.svc.DecideVehicleReview(context.Background(), ports.ReviewDecision{ReviewID: id})
	assertAppError(t, err, "REV_001")
}
