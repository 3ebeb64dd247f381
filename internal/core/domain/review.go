package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus is the state of an admin review record.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// IsDecided reports whether an admin has already ruled on the review.
func (s ReviewStatus) IsDecided() bool {
	return s == ReviewStatusApproved || s == ReviewStatusRejected
}

// VehicleReview is the admin check a new listing must pass before it is listed.
type VehicleReview struct {
	ID         uuid.UUID    `json:"id"`
	VehicleID  uuid.UUID    `json:"vehicle_id"`
	SellerID   uuid.UUID    `json:"seller_id"`
	Status     ReviewStatus `json:"status"`
	ReviewerID *uuid.UUID   `json:"reviewer_id,omitempty"`
	Comment    string       `json:"comment,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
}

// VerificationReview is the admin check of submitted identity documents.
type VerificationReview struct {
	ID         uuid.UUID    `json:"id"`
	AccountID  uuid.UUID    `json:"account_id"`
	RealName   string       `json:"real_name"`
	IDNumber   string       `json:"-"` // ciphertext
	MaskedID   string       `json:"id_number_masked,omitempty"`
	Status     ReviewStatus `json:"status"`
	ReviewerID *uuid.UUID   `json:"reviewer_id,omitempty"`
	Comment    string       `json:"comment,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
}

// decision maps an approve flag to the resulting status.
func decision(approve bool) ReviewStatus {
	if approve {
		return ReviewStatusApproved
	}
	return ReviewStatusRejected
}

// Decide records the admin ruling on the listing.
func (r *VehicleReview) Decide(reviewerID uuid.UUID, approve bool, comment string, now time.Time) {
	r.Status = decision(approve)
	r.ReviewerID = &reviewerID
	r.Comment = comment
	r.ReviewedAt = &now
}

// Decide records the admin ruling on the identity submission.
func (r *VerificationReview) Decide(reviewerID uuid.UUID, approve bool, comment string, now time.Time) {
	r.Status = decision(approve)
	r.ReviewerID = &reviewerID
	r.Comment = comment
	r.ReviewedAt = &now
}

// MaskIDNumber keeps the first 3 and last 4 characters of an identity number.
func MaskIDNumber(id string) string {
	r := []rune(id)
	if len(r) <= 7 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:3]) + strings.Repeat("*", len(r)-7) + string(r[len(r)-4:])
}
