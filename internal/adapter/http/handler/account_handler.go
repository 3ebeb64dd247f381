package handler

import (
	"usedcar-market/internal/adapter/http/dto"
	"usedcar-market/internal/adapter/http/middleware"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	authSvc   ports.AuthService
	reviewSvc ports.ReviewService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(authSvc ports.AuthService, reviewSvc ports.ReviewService) *AccountHandler {
	return &AccountHandler{authSvc: authSvc, reviewSvc: reviewSvc}
}

// Profile handles GET /api/v1/accounts/me.
func (h *AccountHandler) Profile(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	account, err := h.authSvc.Profile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToAccountResponse(account))
}

// SubmitVerification handles POST /api/v1/accounts/me/verification.
func (h *AccountHandler) SubmitVerification(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	review, err := h.reviewSvc.SubmitVerification(c.Request.Context(), accountID, req.RealName, req.IDNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, review.ID.String())
	response.Created(c, review)
}
