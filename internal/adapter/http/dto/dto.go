package dto

import (
	"time"

	"usedcar-market/internal/core/domain"

	"github.com/google/uuid"
)

// ---- Auth ----

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Role     string `json:"role" binding:"required,oneof=buyer seller"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	Role               string  `json:"role"`
	Status             string  `json:"status"`
	Balance            string  `json:"balance"`
	FrozenBalance      string  `json:"frozen_balance"`
	HasPaymentPassword bool    `json:"has_payment_password"`
	VerificationStatus string  `json:"verification_status"`
	RealName           *string `json:"real_name,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

// ToAccountResponse maps an account for clients. Secrets never leave the server.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:                 a.ID.String(),
		Username:           a.Username,
		Role:               string(a.Role),
		Status:             string(a.Status),
		Balance:            domain.FormatAmount(a.Balance),
		FrozenBalance:      domain.FormatAmount(a.FrozenBalance),
		HasPaymentPassword: a.HasPaymentPassword(),
		VerificationStatus: string(a.VerificationStatus),
		RealName:           a.RealName,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// VerificationRequest submits identity details for admin review.
type VerificationRequest struct {
	RealName string `json:"real_name" binding:"required,min=2,max=50"`
	IDNumber string `json:"id_number" binding:"required,min=8,max=32,alphanum"`
}

// ---- Wallet ----

// IdempotencyHeader binds the optional Idempotency-Key request header.
type IdempotencyHeader struct {
	Key string `header:"Idempotency-Key" binding:"omitempty,max=64,safe_id"`
}

// RechargeRequest is the request body for a wallet top-up.
type RechargeRequest struct {
	Amount          string `json:"amount" binding:"required,money"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=wechat alipay bank"`
	PaymentPassword string `json:"payment_password" binding:"required" sanitize:"-"`
}

// SetPaymentPasswordRequest sets the payment password for the first time.
type SetPaymentPasswordRequest struct {
	Password string `json:"password" binding:"required" sanitize:"-"`
	Confirm  string `json:"confirm_password" binding:"required" sanitize:"-"`
}

// ChangePaymentPasswordRequest replaces an existing payment password.
type ChangePaymentPasswordRequest struct {
	Current string `json:"current_password" binding:"required" sanitize:"-"`
	New     string `json:"new_password" binding:"required" sanitize:"-"`
	Confirm string `json:"confirm_password" binding:"required" sanitize:"-"`
}

// VerifyPaymentPasswordRequest checks a payment password without spending.
type VerifyPaymentPasswordRequest struct {
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// WalletResponse is the response for the wallet summary.
type WalletResponse struct {
	Balance            string `json:"balance"`
	FrozenBalance      string `json:"frozen_balance"`
	HasPaymentPassword bool   `json:"has_payment_password"`
}

// RechargeResponse is returned after a successful top-up.
type RechargeResponse struct {
	Balance     string              `json:"balance"`
	Transaction TransactionResponse `json:"transaction"`
}

// TransactionResponse is one wallet ledger entry.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Amount        string  `json:"amount"`
	Type          string  `json:"transaction_type"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
	OrderNumber   *string `json:"order_number,omitempty"`
	BalanceAfter  string  `json:"balance_after"`
	CreatedAt     string  `json:"created_at"`
}

// ToTransactionResponse maps a ledger entry.
func ToTransactionResponse(t *domain.WalletTransaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID.String(),
		Amount:        domain.FormatAmount(t.Amount),
		Type:          string(t.Kind),
		PaymentMethod: string(t.Method),
		Status:        string(t.Status),
		Description:   t.Description,
		OrderNumber:   t.OrderNumber,
		BalanceAfter:  domain.FormatAmount(t.BalanceAfter),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ---- Vehicles ----

// CreateVehicleRequest is the request body for a new listing.
type CreateVehicleRequest struct {
	Brand       string `json:"brand" binding:"required,max=50"`
	Model       string `json:"model" binding:"required,max=100"`
	Year        int    `json:"year" binding:"required,gte=1950,lte=2100"`
	Mileage     int    `json:"mileage" binding:"gte=0"`
	Price       string `json:"price" binding:"required,money"`
	Description string `json:"description" binding:"max=2000"`
}

// VehicleResponse is the public view of a listing.
type VehicleResponse struct {
	ID          string  `json:"id"`
	SellerID    string  `json:"seller_id"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	Mileage     int     `json:"mileage"`
	Price       string  `json:"price"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	ListedAt    *string `json:"listed_at,omitempty"`
	SoldAt      *string `json:"sold_at,omitempty"`
}

// ToVehicleResponse maps a vehicle.
func ToVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:          v.ID.String(),
		SellerID:    v.SellerID.String(),
		Brand:       v.Brand,
		Model:       v.Model,
		Year:        v.Year,
		Mileage:     v.Mileage,
		Price:       domain.FormatAmount(v.Price),
		Description: v.Description,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
		ListedAt:    formatTimePtr(v.ListedAt),
		SoldAt:      formatTimePtr(v.SoldAt),
	}
}

// ---- Orders ----

// CreateOrderRequest is the request body for buying a vehicle.
type CreateOrderRequest struct {
	VehicleID        string     `json:"vehicle_id" binding:"required,uuid"`
	Price            string     `json:"price" binding:"required,money"`
	PaymentPassword  string     `json:"payment_password" binding:"required" sanitize:"-"`
	BuyerNote        string     `json:"buyer_note" binding:"max=500"`
	BuyerPhone       string     `json:"buyer_phone" binding:"omitempty,e164"`
	DeliveryAddress  string     `json:"delivery_address" binding:"max=255"`
	DeliveryTime     *time.Time `json:"delivery_time,omitempty"`
	VehicleColor     string     `json:"vehicle_color" binding:"max=30"`
	VehicleModelType string     `json:"vehicle_model_type" binding:"max=50"`
}

// SellerCancelRequest carries the optional reason for a seller cancellation.
type SellerCancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderResponse is an order as seen by one of its parties.
type OrderResponse struct {
	ID               string  `json:"id"`
	OrderNumber      string  `json:"order_number"`
	BuyerID          string  `json:"buyer_id"`
	SellerID         string  `json:"seller_id"`
	VehicleID        string  `json:"vehicle_id"`
	Price            string  `json:"price"`
	Deposit          string  `json:"deposit"`
	Status           string  `json:"status"`
	BuyerNote        string  `json:"buyer_note,omitempty"`
	SellerNote       string  `json:"seller_note,omitempty"`
	BuyerPhone       string  `json:"buyer_phone,omitempty"`
	DeliveryAddress  string  `json:"delivery_address,omitempty"`
	DeliveryTime     *string `json:"delivery_time,omitempty"`
	VehicleColor     string  `json:"vehicle_color,omitempty"`
	VehicleModelType string  `json:"vehicle_model_type,omitempty"`
	CreatedAt        string  `json:"created_at"`
	PaidAt           *string `json:"paid_at,omitempty"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	CancelledAt      *string `json:"cancelled_at,omitempty"`

	CanCancel         bool `json:"can_cancel"`
	CanConfirmReceipt bool `json:"can_confirm_receipt"`
	CanReview         bool `json:"can_review"`
}

// ToOrderResponse maps an order; the can_* flags are computed for viewer.
// CanReview only says the order is reviewable by viewer. The handler clears
// it when viewer has already left a review.
func ToOrderResponse(o *domain.Order, viewer uuid.UUID) OrderResponse {
	canCancel := o.CanPerform(domain.ActionCancel, viewer) == nil ||
		o.CanPerform(domain.ActionSellerCancel, viewer) == nil
	return OrderResponse{
		ID:                o.ID.String(),
		OrderNumber:       o.OrderNumber,
		BuyerID:           o.BuyerID.String(),
		SellerID:          o.SellerID.String(),
		VehicleID:         o.VehicleID.String(),
		Price:             domain.FormatAmount(o.Price),
		Deposit:           domain.FormatAmount(o.Deposit),
		Status:            string(o.Status),
		BuyerNote:         o.BuyerNote,
		SellerNote:        o.SellerNote,
		BuyerPhone:        o.BuyerPhone,
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryTime:      formatTimePtr(o.DeliveryTime),
		VehicleColor:      o.VehicleColor,
		VehicleModelType:  o.VehicleModelType,
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
		PaidAt:            formatTimePtr(o.PaidAt),
		CompletedAt:       formatTimePtr(o.CompletedAt),
		CancelledAt:       formatTimePtr(o.CancelledAt),
		CanCancel:         canCancel,
		CanConfirmReceipt: o.CanPerform(domain.ActionConfirmReceipt, viewer) == nil,
		CanReview:         o.Status == domain.OrderStatusCompleted && o.IsParticipant(viewer),
	}
}

// PostMessageRequest is a chat message between the order parties.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}

// PostReviewRequest rates a completed order.
type PostReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Content string `json:"content" binding:"max=1000"`
}

// SellerStatsResponse is the seller dashboard summary.
type SellerStatsResponse struct {
	Period         string `json:"period"`
	TotalOrders    int64  `json:"total_orders"`
	PendingPayment int64  `json:"pending_payment"`
	Paid           int64  `json:"paid"`
	Completed      int64  `json:"completed"`
	Cancelled      int64  `json:"cancelled"`
	TotalRevenue   string `json:"total_revenue"`
}

// ---- Admin ----

// ReviewDecisionRequest is an admin ruling on a pending review.
type ReviewDecisionRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Comment string `json:"comment" binding:"max=500"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
