package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind is the business reason for a balance change.
type LedgerKind string

const (
	LedgerKindRecharge LedgerKind = "recharge"
	LedgerKindPurchase LedgerKind = "purchase"
	LedgerKindRefund   LedgerKind = "refund"
)

// IsCredit reports whether entries of this kind increase the balance.
func (k LedgerKind) IsCredit() bool {
	return k == LedgerKindRecharge || k == LedgerKindRefund
}

// PaymentMethod is the channel funds moved through.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodWechat PaymentMethod = "wechat"
	PaymentMethodAlipay PaymentMethod = "alipay"
	PaymentMethodBank   PaymentMethod = "bank"
)

// IsRechargeMethod reports whether funds may be topped up through m.
func (m PaymentMethod) IsRechargeMethod() bool {
	switch m {
	case PaymentMethodWechat, PaymentMethodAlipay, PaymentMethodBank:
		return true
	}
	return false
}

// LedgerStatus is the outcome of a ledger entry.
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "pending"
	LedgerStatusSuccess LedgerStatus = "success"
	LedgerStatusFailed  LedgerStatus = "failed"
)

// WalletTransaction is an append-only ledger entry. It is written in the same
// database transaction as the balance change it records and never updated.
type WalletTransaction struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	Kind         LedgerKind      `json:"kind"`
	Method       PaymentMethod   `json:"method"`
	Status       LedgerStatus    `json:"status"`
	Description  string          `json:"description"`
	OrderNumber  *string         `json:"order_number,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SignedAmount returns the balance delta this entry represents.
func (t *WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Kind.IsCredit() {
		return t.Amount
	}
	return t.Amount.Neg()
}
