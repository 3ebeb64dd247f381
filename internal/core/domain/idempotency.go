package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the response of a wallet-affecting request so a
// retried request with the same key replays it instead of charging again.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "account_id:operation:client_key"
	AccountID    uuid.UUID `json:"account_id"`
	ResourceID   uuid.UUID `json:"resource_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	IdempotencyOpCreateOrder = "order"
	IdempotencyOpRecharge    = "recharge"
)

// BuildIdempotencyKey scopes a client supplied key to the account and operation.
func BuildIdempotencyKey(accountID uuid.UUID, operation, clientKey string) string {
	return accountID.String() + ":" + operation + ":" + clientKey
}
