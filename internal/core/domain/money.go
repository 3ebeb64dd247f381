package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for balances and prices.
const MoneyScale = 2

// ErrInvalidAmount is returned for non-positive amounts or amounts with sub-cent precision.
var ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places")

// ValidateAmount checks that amount is a positive value representable in cents.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmount parses a decimal string such as "100.00" and validates it.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
