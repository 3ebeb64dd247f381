package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_001", "Insufficient funds", http.StatusBadRequest),
			expected: "[WAL_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("WAL_001", "test", http.StatusBadRequest).Unwrap())
}

func TestCodeAndCredentialFamily(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", ErrPaymentPasswordMismatch())

	assert.Equal(t, "PWD_002", Code(wrapped))
	assert.True(t, IsCredentialError(wrapped))
	assert.False(t, IsCredentialError(ErrInsufficientFunds()))
	assert.Equal(t, "", Code(errors.New("plain")))
}

func TestWithStatus(t *testing.T) {
	orig := ErrPaymentPasswordMismatch()
	rewritten := WithStatus(orig, http.StatusBadRequest)

	var appErr *AppError
	assert.True(t, errors.As(rewritten, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Equal(t, "PWD_002", appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, orig.HTTPStatus, "original must not be mutated")

	plain := errors.New("plain")
	assert.Equal(t, plain, WithStatus(plain, http.StatusBadRequest))
}

func TestErrorCatalogue(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_001", 400},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_002", 400},
		{"InvalidPaymentMethod", ErrInvalidPaymentMethod(), "WAL_003", 400},
		{"RechargeLimit", ErrRechargeLimitExceeded(), "WAL_004", 400},
		{"PasswordNotSet", ErrPaymentPasswordNotSet(), "PWD_001", 400},
		{"PasswordMismatch", ErrPaymentPasswordMismatch(), "PWD_002", 401},
		{"PasswordMalformed", ErrPaymentPasswordMalformed(), "PWD_003", 400},
		{"PasswordAlreadySet", ErrPaymentPasswordAlreadySet(), "PWD_004", 400},
		{"PasswordReused", ErrPaymentPasswordReused(), "PWD_005", 400},
		{"PasswordConfirm", ErrPaymentPasswordConfirmMismatch(), "PWD_006", 400},
		{"PasswordLocked", ErrPaymentPasswordLocked(), "PWD_007", 429},
		{"OrderNotFound", ErrOrderNotFound(), "ORD_001", 404},
		{"InvalidState", ErrInvalidOrderState("bad"), "ORD_002", 400},
		{"Forbidden", ErrForbidden("no"), "ORD_003", 403},
		{"VehicleUnavailable", ErrVehicleUnavailable(), "ORD_004", 400},
		{"PriceMismatch", ErrPriceMismatch(), "ORD_005", 400},
		{"OwnVehicle", ErrOwnVehicle(), "ORD_006", 400},
		{"ReviewExists", ErrReviewExists(), "ORD_007", 409},
		{"NotFound", ErrNotFound("Vehicle"), "REV_001", 404},
		{"ReviewDecided", ErrReviewAlreadyDecided(), "REV_002", 409},
		{"VerificationInProgress", ErrVerificationInProgress(), "REV_003", 409},
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"UsernameExists", ErrUsernameExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"AccountSuspended", ErrAccountSuspended(), "AUTH_004", 403},
		{"RoleRequired", ErrRoleRequired("admin"), "AUTH_005", 403},
		{"RequestInProgress", ErrRequestInProgress(), "REQ_001", 409},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"Validation", Validation("bad input"), "VAL_001", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("db down")

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_002", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)
	assert.True(t, errors.Is(lockErr, inner))

	internal := InternalError(inner)
	assert.Equal(t, "SYS_001", internal.Code)
	assert.Equal(t, "Internal server error", internal.Message)
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Vehicle not found", ErrNotFound("Vehicle").Message)
	assert.Equal(t, "This action requires the seller role", ErrRoleRequired("seller").Message)
}
