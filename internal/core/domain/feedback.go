package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// OrderMessage is a note exchanged between buyer and seller on an order.
type OrderMessage struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderReview is a rating left by a participant of a completed order.
type OrderReview struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidRating reports whether r is within the rating scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
