package service

import (
	"context"
	"fmt"
	"time"

	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
)

// Seller statistics periods.
const (
	PeriodToday = "today"
	Period7d    = "7d"
	Period30d   = "30d"
	PeriodAll   = "all"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	orderRepo ports.OrderRepository
	now       func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(orderRepo ports.OrderRepository) ports.ReportingService {
	return &reportingService{orderRepo: orderRepo, now: time.Now}
}

// GetSellerStats returns order counts and revenue for a seller over period.
func (s *reportingService) GetSellerStats(ctx context.Context, sellerID uuid.UUID, period string) (*ports.OrderStats, error) {
	since, err := s.periodStart(period)
	if err != nil {
		return nil, err
	}

	stats, err := s.orderRepo.GetSellerStats(ctx, sellerID, since)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("seller stats: %w", err))
	}
	return stats, nil
}

func (s *reportingService) periodStart(period string) (*time.Time, error) {
	now := s.now().UTC()
	var t time.Time

	switch period {
	case PeriodToday:
		t = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case Period7d:
		t = now.AddDate(0, 0, -7)
	case Period30d:
		t = now.AddDate(0, 0, -30)
	case PeriodAll, "":
		return nil, nil
	default:
		return nil, apperror.Validation("invalid period: must be today, 7d, 30d, or all")
	}
	return &t, nil
}
