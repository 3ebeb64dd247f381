package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reviewService implements ports.ReviewService.
type reviewService struct {
	accountRepo ports.AccountRepository
	vehicleRepo ports.VehicleRepository
	reviewRepo  ports.ReviewRepository
	encSvc      ports.EncryptionService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	accountRepo ports.AccountRepository,
	vehicleRepo ports.VehicleRepository,
	reviewRepo ports.ReviewRepository,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.ReviewService {
	return &reviewService{
		accountRepo: accountRepo,
		vehicleRepo: vehicleRepo,
		reviewRepo:  reviewRepo,
		encSvc:      encSvc,
		transactor:  transactor,
		log:         log,
	}
}

// SubmitVerification moves the account to pending and opens a review record.
// The identity number is stored encrypted.
func (s *reviewService) SubmitVerification(ctx context.Context, accountID uuid.UUID, realName, idNumber string) (*domain.VerificationReview, error) {
	realName = strings.TrimSpace(realName)
	idNumber = strings.TrimSpace(idNumber)
	if realName == "" || idNumber == "" {
		return nil, apperror.Validation("real_name and id_number are required")
	}
	encryptedID, err := s.encSvc.Encrypt(idNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt id number: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, lockFailure("account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	switch account.VerificationStatus {
	case domain.VerificationPending, domain.VerificationVerified:
		return nil, apperror.ErrVerificationInProgress()
	}

	if err := s.accountRepo.UpdateVerification(ctx, dbTx, accountID, domain.VerificationPending, &realName, &encryptedID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update verification: %w", err))
	}

	review := &domain.VerificationReview{
		ID:        uuid.New(),
		AccountID: accountID,
		RealName:  realName,
		IDNumber:  encryptedID,
		MaskedID:  domain.MaskIDNumber(idNumber),
		Status:    domain.ReviewStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reviewRepo.CreateVerificationReview(ctx, dbTx, review); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create verification review: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("account_id", accountID.String()).Str("review_id", review.ID.String()).Msg("verification submitted")
	return review, nil
}

func (s *reviewService) ListVehicleReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VehicleReview, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	reviews, total, err := s.reviewRepo.ListVehicleReviews(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list vehicle reviews: %w", err))
	}
	return reviews, total, nil
}

// DecideVehicleReview lists or rejects the vehicle under review.
func (s *reviewService) DecideVehicleReview(ctx context.Context, req ports.ReviewDecision) (*domain.VehicleReview, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	review, err := s.reviewRepo.GetVehicleReviewForUpdate(ctx, dbTx, req.ReviewID)
	if err != nil {
		return nil, lockFailure("vehicle review", err)
	}
	if review == nil {
		return nil, apperror.ErrNotFound("Vehicle review")
	}
	if review.Status.IsDecided() {
		return nil, apperror.ErrReviewAlreadyDecided()
	}

	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, dbTx, review.VehicleID)
	if err != nil {
		return nil, lockFailure("vehicle", err)
	}
	if vehicle == nil {
		return nil, apperror.ErrNotFound("Vehicle")
	}

	now := time.Now().UTC()
	review.Decide(req.ReviewerID, req.Approve, strings.TrimSpace(req.Comment), now)
	if err := s.reviewRepo.UpdateVehicleReview(ctx, dbTx, review); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update vehicle review: %w", err))
	}

	next := domain.VehicleStatusRejected
	if req.Approve {
		next = domain.VehicleStatusListed
	}
	if err := s.vehicleRepo.UpdateStatus(ctx, dbTx, vehicle.ID, next, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update vehicle status: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("review_id", review.ID.String()).
		Str("vehicle_id", vehicle.ID.String()).
		Str("decision", string(review.Status)).
		Msg("vehicle review decided")
	return review, nil
}

func (s *reviewService) ListVerificationReviews(ctx context.Context, status *domain.ReviewStatus, page, pageSize int) ([]domain.VerificationReview, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	reviews, total, err := s.reviewRepo.ListVerificationReviews(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list verification reviews: %w", err))
	}
	for i := range reviews {
		plain, err := s.encSvc.Decrypt(reviews[i].IDNumber)
		if err != nil {
			s.log.Warn().Err(err).Str("review_id", reviews[i].ID.String()).Msg("cannot decrypt id number")
			continue
		}
		reviews[i].MaskedID = domain.MaskIDNumber(plain)
	}
	return reviews, total, nil
}

// DecideVerificationReview marks the account verified or rejected.
func (s *reviewService) DecideVerificationReview(ctx context.Context, req ports.ReviewDecision) (*domain.VerificationReview, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	review, err := s.reviewRepo.GetVerificationReviewForUpdate(ctx, dbTx, req.ReviewID)
	if err != nil {
		return nil, lockFailure("verification review", err)
	}
	if review == nil {
		return nil, apperror.ErrNotFound("Verification review")
	}
	if review.Status.IsDecided() {
		return nil, apperror.ErrReviewAlreadyDecided()
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, review.AccountID)
	if err != nil {
		return nil, lockFailure("account", err)
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}

	review.Decide(req.ReviewerID, req.Approve, strings.TrimSpace(req.Comment), time.Now().UTC())
	if err := s.reviewRepo.UpdateVerificationReview(ctx, dbTx, review); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update verification review: %w", err))
	}

	status := domain.VerificationRejected
	if req.Approve {
		status = domain.VerificationVerified
	}
	if err := s.accountRepo.UpdateVerification(ctx, dbTx, account.ID, status, nil, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update verification: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("review_id", review.ID.String()).
		Str("account_id", account.ID.String()).
		Str("decision", string(review.Status)).
		Msg("verification review decided")
	return review, nil
}
