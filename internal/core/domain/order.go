package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusTrading        OrderStatus = "trading"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusTrading,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for statuses an order never leaves.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Party identifies which side of an order an account is on.
type Party string

const (
	PartyBuyer  Party = "buyer"
	PartySeller Party = "seller"
)

// OrderAction names a state transition an actor may request.
type OrderAction string

const (
	ActionConfirmPayment OrderAction = "confirm_payment"
	ActionConfirmReceipt OrderAction = "confirm_receipt"
	ActionCancel         OrderAction = "cancel"
	ActionSellerConfirm  OrderAction = "seller_confirm"
	ActionSellerCancel   OrderAction = "seller_cancel"
	ActionSellerComplete OrderAction = "complete"
)

// Transition describes one row of the order state table.
type Transition struct {
	From  []OrderStatus
	To    OrderStatus
	Actor Party
}

// allows reports whether the transition may start from s.
func (t Transition) allows(s OrderStatus) bool {
	for _, from := range t.From {
		if from == s {
			return true
		}
	}
	return false
}

var orderTransitions = map[OrderAction]Transition{
	ActionConfirmPayment: {From: []OrderStatus{OrderStatusPendingPayment}, To: OrderStatusPaid, Actor: PartyBuyer},
	ActionConfirmReceipt: {From: []OrderStatus{OrderStatusPaid}, To: OrderStatusCompleted, Actor: PartyBuyer},
	ActionCancel:         {From: []OrderStatus{OrderStatusPendingPayment}, To: OrderStatusCancelled, Actor: PartyBuyer},
	ActionSellerConfirm:  {From: []OrderStatus{OrderStatusPendingPayment}, To: OrderStatusPaid, Actor: PartySeller},
	ActionSellerCancel:   {From: []OrderStatus{OrderStatusPendingPayment, OrderStatusPaid}, To: OrderStatusCancelled, Actor: PartySeller},
	ActionSellerComplete: {From: []OrderStatus{OrderStatusPaid}, To: OrderStatusCompleted, Actor: PartySeller},
}

var (
	ErrUnknownAction     = errors.New("unknown order action")
	ErrInvalidTransition = errors.New("order transition not allowed from current status")
	ErrActorNotAllowed   = errors.New("actor is not allowed to perform this action")
)

// LookupTransition returns the state table row for action.
func LookupTransition(action OrderAction) (Transition, bool) {
	t, ok := orderTransitions[action]
	return t, ok
}

// Order is one purchase of a vehicle by a buyer from a seller.
// Price is a snapshot taken at purchase time and never changes.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	BuyerID          uuid.UUID       `json:"buyer_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	VehicleID        uuid.UUID       `json:"vehicle_id"`
	Price            decimal.Decimal `json:"price"`
	Deposit          decimal.Decimal `json:"deposit"`
	Status           OrderStatus     `json:"status"`
	BuyerNote        string          `json:"buyer_note,omitempty"`
	SellerNote       string          `json:"seller_note,omitempty"`
	BuyerPhone       string          `json:"buyer_phone,omitempty"`
	DeliveryAddress  string          `json:"delivery_address,omitempty"`
	DeliveryTime     *time.Time      `json:"delivery_time,omitempty"`
	VehicleColor     string          `json:"vehicle_color,omitempty"`
	VehicleModelType string          `json:"vehicle_model_type,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PartyOf returns the side accountID is on, if any.
func (o *Order) PartyOf(accountID uuid.UUID) (Party, bool) {
	switch accountID {
	case o.BuyerID:
		return PartyBuyer, true
	case o.SellerID:
		return PartySeller, true
	}
	return "", false
}

// IsParticipant reports whether accountID is the buyer or the seller.
func (o *Order) IsParticipant(accountID uuid.UUID) bool {
	_, ok := o.PartyOf(accountID)
	return ok
}

// CanPerform checks action against the state table. The current status is
// checked before the actor, so a wrong-state request fails the same way
// for every caller.
func (o *Order) CanPerform(action OrderAction, actorID uuid.UUID) error {
	t, ok := orderTransitions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if !t.allows(o.Status) {
		return fmt.Errorf("%w: cannot %s an order that is %s", ErrInvalidTransition, strings.ReplaceAll(string(action), "_", " "), o.Status)
	}
	party, ok := o.PartyOf(actorID)
	if !ok || party != t.Actor {
		return fmt.Errorf("%w: only the %s can %s this order", ErrActorNotAllowed, t.Actor, strings.ReplaceAll(string(action), "_", " "))
	}
	return nil
}

// Apply performs action on the order, moving it to the target status and
// stamping the matching timestamp.
func (o *Order) Apply(action OrderAction, actorID uuid.UUID, now time.Time) error {
	if err := o.CanPerform(action, actorID); err != nil {
		return err
	}
	t := orderTransitions[action]
	o.Status = t.To
	switch t.To {
	case OrderStatusPaid:
		o.PaidAt = &now
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}
	o.UpdatedAt = now
	return nil
}

// NewOrderNumber builds an order number from the purchase time plus a random
// suffix so that orders placed within the same second stay unique.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "ORD" + now.UTC().Format("20060102150405") + suffix
}
