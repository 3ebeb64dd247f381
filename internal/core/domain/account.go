package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRole decides which surfaces an account may use.
type AccountRole string

const (
	RoleBuyer  AccountRole = "buyer"
	RoleSeller AccountRole = "seller"
	RoleAdmin  AccountRole = "admin"
)

// IsValid reports whether r is a known role.
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus represents whether the account may log in.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// VerificationStatus tracks identity verification.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// Account is a marketplace user together with its wallet.
// Balance and FrozenBalance are never negative.
type Account struct {
	ID                  uuid.UUID          `json:"id"`
	Username            string             `json:"username"`
	PasswordHash        string             `json:"-"`
	Role                AccountRole        `json:"role"`
	Status              AccountStatus      `json:"status"`
	Balance             decimal.Decimal    `json:"balance"`
	FrozenBalance       decimal.Decimal    `json:"frozen_balance"`
	PaymentPasswordHash *string            `json:"-"`
	VerificationStatus  VerificationStatus `json:"verification_status"`
	RealName            *string            `json:"real_name,omitempty"`
	IDNumber            *string            `json:"-"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// IsActive returns true if the account may log in and transact.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// HasPaymentPassword reports whether a payment password has been registered.
func (a *Account) HasPaymentPassword() bool {
	return a.PaymentPasswordHash != nil && *a.PaymentPasswordHash != ""
}

// CanAfford reports whether the balance covers amount.
func (a *Account) CanAfford(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// PaymentPasswordLength is the exact number of digits in a payment password.
const PaymentPasswordLength = 6

// IsValidPaymentPassword reports whether s is exactly six ASCII digits.
func IsValidPaymentPassword(s string) bool {
	if len(s) != PaymentPasswordLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
