package handler

import (
	"usedcar-market/internal/adapter/http/dto"
	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet and payment password endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	guard     ports.PaymentPasswordGuard
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, guard ports.PaymentPasswordGuard) *WalletHandler {
	return &WalletHandler{
		walletSvc: walletSvc,
		guard:     guard,
	}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	summary, err := h.walletSvc.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WalletResponse{
		Balance:            domain.FormatAmount(summary.Balance),
		FrozenBalance:      domain.FormatAmount(summary.FrozenBalance),
		HasPaymentPassword: summary.HasPaymentPassword,
	})
}

// Recharge handles POST /api/v1/wallet/recharge.
func (h *WalletHandler) Recharge(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var hdr dto.IdempotencyHeader
	if err := c.ShouldBindHeader(&hdr); err != nil {
		response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
		return
	}
	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.walletSvc.Recharge(c.Request.Context(), ports.RechargeRequest{
		AccountID:       accountID,
		Amount:          amount,
		Method:          domain.PaymentMethod(req.PaymentMethod),
		PaymentPassword: req.PaymentPassword,
		IdempotencyKey:  hdr.Key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RechargeResponse{
		Balance:     domain.FormatAmount(result.Balance),
		Transaction: dto.ToTransactionResponse(result.Transaction),
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	txns, total, err := h.walletSvc.ListTransactions(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.ToTransactionResponse(&txns[i]))
	}
	response.Page(c, items, total, page, pageSize)
}

// SetPaymentPassword handles POST /api/v1/wallet/payment-password.
func (h *WalletHandler) SetPaymentPassword(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.SetPaymentPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.guard.Set(c.Request.Context(), accountID, req.Password, req.Confirm); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"has_payment_password": true})
}

// ChangePaymentPassword handles PUT /api/v1/wallet/payment-password.
func (h *WalletHandler) ChangePaymentPassword(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.ChangePaymentPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.guard.Change(c.Request.Context(), accountID, req.Current, req.New, req.Confirm); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"has_payment_password": true})
}

// VerifyPaymentPassword handles POST /api/v1/wallet/payment-password/verify.
func (h *WalletHandler) VerifyPaymentPassword(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.VerifyPaymentPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.guard.Check(c.Request.Context(), accountID, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"valid": true})
}
