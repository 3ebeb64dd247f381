package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleStatus represents where a listing is in its lifecycle.
type VehicleStatus string

const (
	VehicleStatusDraft         VehicleStatus = "draft"
	VehicleStatusPendingReview VehicleStatus = "pending_review"
	VehicleStatusListed        VehicleStatus = "listed"
	VehicleStatusSold          VehicleStatus = "sold"
	VehicleStatusDelisted      VehicleStatus = "delisted"
	VehicleStatusMaintenance   VehicleStatus = "maintenance"
	VehicleStatusRejected      VehicleStatus = "rejected"
)

// Vehicle is a car offered for sale by a seller.
type Vehicle struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Year        int             `json:"year"`
	Mileage     int             `json:"mileage"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Status      VehicleStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ListedAt    *time.Time      `json:"listed_at,omitempty"`
	SoldAt      *time.Time      `json:"sold_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsPurchasable reports whether the vehicle can be ordered.
func (v *Vehicle) IsPurchasable() bool {
	return v.Status == VehicleStatusListed
}

// DisplayName is the brand and model, used in ledger descriptions.
func (v *Vehicle) DisplayName() string {
	return v.Brand + " " + v.Model
}
