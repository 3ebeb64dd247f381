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

const minVehicleYear = 1950

// listingService implements ports.ListingService.
type listingService struct {
	accountRepo ports.AccountRepository
	vehicleRepo ports.VehicleRepository
	reviewRepo  ports.ReviewRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewListingService creates a new listing service.
func NewListingService(
	accountRepo ports.AccountRepository,
	vehicleRepo ports.VehicleRepository,
	reviewRepo ports.ReviewRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) ports.ListingService {
	return &listingService{
		accountRepo: accountRepo,
		vehicleRepo: vehicleRepo,
		reviewRepo:  reviewRepo,
		transactor:  transactor,
		log:         log,
	}
}

// CreateVehicle stores a listing in pending_review together with the
// review record an admin will decide on.
func (s *listingService) CreateVehicle(ctx context.Context, req ports.CreateVehicleRequest) (*domain.Vehicle, error) {
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	if req.Brand == "" || req.Model == "" {
		return nil, apperror.Validation("brand and model are required")
	}
	if req.Year < minVehicleYear || req.Year > time.Now().Year()+1 {
		return nil, apperror.Validation(fmt.Sprintf("year must be between %d and %d", minVehicleYear, time.Now().Year()+1))
	}
	if req.Mileage < 0 {
		return nil, apperror.Validation("mileage must not be negative")
	}
	if err := domain.ValidateAmount(req.Price); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	seller, err := s.accountRepo.GetByID(ctx, req.SellerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find seller: %w", err))
	}
	if seller == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	if seller.Role != domain.RoleSeller {
		return nil, apperror.ErrRoleRequired(string(domain.RoleSeller))
	}
	if !seller.IsActive() {
		return nil, apperror.ErrAccountSuspended()
	}

	now := time.Now().UTC()
	vehicle := &domain.Vehicle{
		ID:          uuid.New(),
		SellerID:    req.SellerID,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.VehicleStatusPendingReview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	review := &domain.VehicleReview{
		ID:        uuid.New(),
		VehicleID: vehicle.ID,
		SellerID:  vehicle.SellerID,
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.vehicleRepo.Create(ctx, dbTx, vehicle); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create vehicle: %w", err))
	}
	if err := s.reviewRepo.CreateVehicleReview(ctx, dbTx, review); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create vehicle review: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("vehicle_id", vehicle.ID.String()).
		Str("seller_id", vehicle.SellerID.String()).
		Str("review_id", review.ID.String()).
		Msg("vehicle submitted for review")

	return vehicle, nil
}

func (s *listingService) GetVehicle(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find vehicle: %w", err))
	}
	if vehicle == nil {
		return nil, apperror.ErrNotFound("Vehicle")
	}
	return vehicle, nil
}

// ListVehicles browses listings. Without a status filter only listed vehicles are returned.
func (s *listingService) ListVehicles(ctx context.Context, params ports.VehicleListParams) ([]domain.Vehicle, int64, error) {
	if params.Status == nil && params.SellerID == nil {
		listed := domain.VehicleStatusListed
		params.Status = &listed
	}
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return nil, 0, apperror.Validation("min_price must not exceed max_price")
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)

	vehicles, total, err := s.vehicleRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list vehicles: %w", err))
	}
	return vehicles, total, nil
}
