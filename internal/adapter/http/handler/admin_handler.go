package handler

import (
	"usedcar-market/internal/adapter/http/dto"
	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles the admin review queues.
type AdminHandler struct {
	reviewSvc ports.ReviewService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reviewSvc ports.ReviewService) *AdminHandler {
	return &AdminHandler{reviewSvc: reviewSvc}
}

func statusFilter(c *gin.Context) (*domain.ReviewStatus, bool) {
	s := c.Query("status")
	if s == "" {
		return nil, true
	}
	status := domain.ReviewStatus(s)
	switch status {
	case domain.ReviewStatusPending, domain.ReviewStatusApproved, domain.ReviewStatusRejected:
		return &status, true
	}
	response.Error(c, apperror.Validation("status must be pending, approved or rejected"))
	return nil, false
}

// ListVehicleReviews handles GET /api/v1/admin/vehicle-reviews.
func (h *AdminHandler) ListVehicleReviews(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	reviews, total, err := h.reviewSvc.ListVehicleReviews(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, reviews, total, page, pageSize)
}

// DecideVehicleReview handles POST /api/v1/admin/vehicle-reviews/:id/decision.
func (h *AdminHandler) DecideVehicleReview(c *gin.Context) {
	decision, ok := h.bindDecision(c)
	if !ok {
		return
	}

	review, err := h.reviewSvc.DecideVehicleReview(c.Request.Context(), decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, review)
}

// ListVerificationReviews handles GET /api/v1/admin/verification-reviews.
func (h *AdminHandler) ListVerificationReviews(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	reviews, total, err := h.reviewSvc.ListVerificationReviews(c.Request.Context(), status, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, reviews, total, page, pageSize)
}

// DecideVerificationReview handles POST /api/v1/admin/verification-reviews/:id/decision.
func (h *AdminHandler) DecideVerificationReview(c *gin.Context) {
	decision, ok := h.bindDecision(c)
	if !ok {
		return
	}

	review, err := h.reviewSvc.DecideVerificationReview(c.Request.Context(), decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, review)
}

func (h *AdminHandler) bindDecision(c *gin.Context) (ports.ReviewDecision, bool) {
	adminID, ok := currentAccount(c)
	if !ok {
		return ports.ReviewDecision{}, false
	}
	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return ports.ReviewDecision{}, false
	}

	var req dto.ReviewDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.ReviewDecision{}, false
	}
	dto.SanitizeStruct(&req)

	return ports.ReviewDecision{
		ReviewID:   reviewID,
		ReviewerID: adminID,
		Approve:    *req.Approve,
		Comment:    req.Comment,
	}, true
}
