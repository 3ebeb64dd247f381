package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister              AuditAction = "REGISTER"
	AuditActionLogin                 AuditAction = "LOGIN"
	AuditActionPurchase              AuditAction = "PURCHASE"
	AuditActionOrderTransition       AuditAction = "ORDER_TRANSITION"
	AuditActionOrderMessage          AuditAction = "ORDER_MESSAGE"
	AuditActionOrderReview           AuditAction = "ORDER_REVIEW"
	AuditActionRecharge              AuditAction = "RECHARGE"
	AuditActionSetPaymentPassword    AuditAction = "SET_PAYMENT_PASSWORD"
	AuditActionChangePaymentPassword AuditAction = "CHANGE_PAYMENT_PASSWORD"
	AuditActionCreateListing         AuditAction = "CREATE_LISTING"
	AuditActionSubmitVerification    AuditAction = "SUBMIT_VERIFICATION"
	AuditActionReviewDecision        AuditAction = "REVIEW_DECISION"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	UserAgent    string      `json:"user_agent,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
