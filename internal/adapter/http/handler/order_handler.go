package handler

import (
	"context"
	"net/http"

	"usedcar-market/internal/adapter/http/dto"
	"usedcar-market/internal/adapter/http/middleware"
	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles purchase, order lifecycle and feedback endpoints.
type OrderHandler struct {
	orderSvc     ports.OrderService
	feedbackSvc  ports.FeedbackService
	reportingSvc ports.ReportingService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService, feedbackSvc ports.FeedbackService, reportingSvc ports.ReportingService) *OrderHandler {
	return &OrderHandler{
		orderSvc:     orderSvc,
		feedbackSvc:  feedbackSvc,
		reportingSvc: reportingSvc,
	}
}

// orderActionRoutes binds each lifecycle route to exactly one state machine action.
var orderActionRoutes = []struct {
	Path   string
	Action domain.OrderAction
}{
	{"/confirm_payment", domain.ActionConfirmPayment},
	{"/confirm_receipt", domain.ActionConfirmReceipt},
	{"/cancel", domain.ActionCancel},
	{"/seller_confirm", domain.ActionSellerConfirm},
	{"/seller_cancel", domain.ActionSellerCancel},
	{"/complete", domain.ActionSellerComplete},
}

// CreateOrder handles POST /api/v1/orders.
// Payment password failures are reported as 400 on this route.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	buyerID, ok := currentAccount(c)
	if !ok {
		return
	}

	var hdr dto.IdempotencyHeader
	if err := c.ShouldBindHeader(&hdr); err != nil {
		response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
		return
	}
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	order, err := h.orderSvc.CreateOrder(c.Request.Context(), ports.CreateOrderRequest{
		BuyerID:          buyerID,
		VehicleID:        uuid.MustParse(req.VehicleID),
		Price:            price,
		PaymentPassword:  req.PaymentPassword,
		BuyerNote:        req.BuyerNote,
		BuyerPhone:       req.BuyerPhone,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryTime:     req.DeliveryTime,
		VehicleColor:     req.VehicleColor,
		VehicleModelType: req.VehicleModelType,
		IdempotencyKey:   hdr.Key,
	})
	if err != nil {
		if apperror.IsCredentialError(err) {
			err = apperror.WithStatus(err, http.StatusBadRequest)
		}
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, order.ID.String())
	response.Created(c, dto.ToOrderResponse(order, buyerID))
}

// ListOrders handles GET /api/v1/orders?role=buyer|seller&status=...
func (h *OrderHandler) ListOrders(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	params := ports.OrderListParams{
		AccountID: accountID,
		Page:      page,
		PageSize:  pageSize,
	}
	if r := c.Query("role"); r != "" {
		party := domain.Party(r)
		if party != domain.PartyBuyer && party != domain.PartySeller {
			response.Error(c, apperror.Validation("role must be buyer or seller"))
			return
		}
		params.Party = &party
	}
	if s := c.Query("status"); s != "" {
		status := domain.OrderStatus(s)
		if !status.IsValid() {
			response.Error(c, apperror.Validation("invalid status filter"))
			return
		}
		params.Status = &status
	}

	orders, total, err := h.orderSvc.ListOrders(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		item, err := h.orderResponse(c.Request.Context(), &orders[i], accountID)
		if err != nil {
			response.Error(c, err)
			return
		}
		items = append(items, item)
	}
	response.Page(c, items, total, page, pageSize)
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), orderID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.orderResponse(c.Request.Context(), order, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// orderResponse maps o for viewer and clears can_review once viewer has
// reviewed. Orders completed by a transition have no reviews yet, so
// Transition maps directly.
func (h *OrderHandler) orderResponse(ctx context.Context, o *domain.Order, viewer uuid.UUID) (dto.OrderResponse, error) {
	resp := dto.ToOrderResponse(o, viewer)
	if !resp.CanReview {
		return resp, nil
	}
	reviewed, err := h.feedbackSvc.HasReviewed(ctx, o.ID, viewer)
	if err != nil {
		return dto.OrderResponse{}, err
	}
	resp.CanReview = !reviewed
	return resp, nil
}

// Transition returns the handler for one order lifecycle action.
func (h *OrderHandler) Transition(action domain.OrderAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := currentAccount(c)
		if !ok {
			return
		}
		orderID, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var reason string
		if action == domain.ActionSellerCancel && c.Request.ContentLength > 0 {
			var req dto.SellerCancelRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				response.Error(c, apperror.Validation(err.Error()))
				return
			}
			dto.SanitizeStruct(&req)
			reason = req.Reason
		}

		order, err := h.orderSvc.Transition(c.Request.Context(), ports.TransitionRequest{
			OrderID: orderID,
			ActorID: accountID,
			Action:  action,
			Reason:  reason,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.ToOrderResponse(order, accountID))
	}
}

// SellerStats handles GET /api/v1/orders/stats?period=today|7d|30d|all.
func (h *OrderHandler) SellerStats(c *gin.Context) {
	sellerID, ok := currentAccount(c)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "all")
	stats, err := h.reportingSvc.GetSellerStats(c.Request.Context(), sellerID, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SellerStatsResponse{
		Period:         period,
		TotalOrders:    stats.TotalOrders,
		PendingPayment: stats.PendingPayment,
		Paid:           stats.Paid,
		Completed:      stats.Completed,
		Cancelled:      stats.Cancelled,
		TotalRevenue:   domain.FormatAmount(stats.TotalRevenue),
	})
}

// ListMessages handles GET /api/v1/orders/:id/messages.
func (h *OrderHandler) ListMessages(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	msgs, err := h.feedbackSvc.ListMessages(c.Request.Context(), orderID, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, msgs)
}

// PostMessage handles POST /api/v1/orders/:id/messages.
func (h *OrderHandler) PostMessage(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	msg, err := h.feedbackSvc.PostMessage(c.Request.Context(), orderID, accountID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// ListReviews handles GET /api/v1/orders/:id/reviews.
func (h *OrderHandler) ListReviews(c *gin.Context) {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	reviews, err := h.feedbackSvc.ListReviews(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reviews)
}

// PostReview handles POST /api/v1/orders/:id/reviews.
func (h *OrderHandler) PostReview(c *gin.Context) {
	accountID, ok := currentAccount(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.PostReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	review, err := h.feedbackSvc.PostReview(c.Request.Context(), orderID, accountID, req.Rating, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}
