package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Code returns the error code of err if it is an *AppError, or "".
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCredentialError reports whether err belongs to the payment password (PWD) family.
func IsCredentialError(err error) bool {
	return strings.HasPrefix(Code(err), "PWD_")
}

// WithStatus returns a copy of err carrying a different HTTP status.
// Errors that are not *AppError are returned unchanged.
func WithStatus(err error, httpStatus int) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err
	}
	cp := *appErr
	cp.HTTPStatus = httpStatus
	return &cp
}

// ---- Wallet (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient balance in wallet", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_002", "Amount must be positive with at most 2 decimal places", http.StatusBadRequest)
}

func ErrInvalidPaymentMethod() *AppError {
	return New("WAL_003", "Unsupported payment method", http.StatusBadRequest)
}

func ErrRechargeLimitExceeded() *AppError {
	return New("WAL_004", "Recharge amount exceeds the allowed maximum", http.StatusBadRequest)
}

// ---- Payment password (PWD) ----

func ErrPaymentPasswordNotSet() *AppError {
	return New("PWD_001", "Payment password has not been set", http.StatusBadRequest)
}

func ErrPaymentPasswordMismatch() *AppError {
	return New("PWD_002", "Payment password is incorrect", http.StatusUnauthorized)
}

func ErrPaymentPasswordMalformed() *AppError {
	return New("PWD_003", "Payment password must be exactly 6 digits", http.StatusBadRequest)
}

func ErrPaymentPasswordAlreadySet() *AppError {
	return New("PWD_004", "Payment password is already set", http.StatusBadRequest)
}

func ErrPaymentPasswordReused() *AppError {
	return New("PWD_005", "New payment password must differ from the current one", http.StatusBadRequest)
}

func ErrPaymentPasswordConfirmMismatch() *AppError {
	return New("PWD_006", "Payment password confirmation does not match", http.StatusBadRequest)
}

func ErrPaymentPasswordLocked() *AppError {
	return New("PWD_007", "Too many wrong payment password attempts, try again later", http.StatusTooManyRequests)
}

// ---- Orders (ORD) ----

func ErrOrderNotFound() *AppError {
	return New("ORD_001", "Order not found", http.StatusNotFound)
}

func ErrInvalidOrderState(message string) *AppError {
	return New("ORD_002", message, http.StatusBadRequest)
}

func ErrForbidden(message string) *AppError {
	return New("ORD_003", message, http.StatusForbidden)
}

func ErrVehicleUnavailable() *AppError {
	return New("ORD_004", "Vehicle is not available for purchase", http.StatusBadRequest)
}

func ErrPriceMismatch() *AppError {
	return New("ORD_005", "Price does not match the listed vehicle price", http.StatusBadRequest)
}

func ErrOwnVehicle() *AppError {
	return New("ORD_006", "You cannot buy your own vehicle", http.StatusBadRequest)
}

func ErrReviewExists() *AppError {
	return New("ORD_007", "You have already reviewed this order", http.StatusConflict)
}

// ---- Listings and admin review (REV) ----

func ErrNotFound(entity string) *AppError {
	return New("REV_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrReviewAlreadyDecided() *AppError {
	return New("REV_002", "Review has already been decided", http.StatusConflict)
}

func ErrVerificationInProgress() *AppError {
	return New("REV_003", "Identity verification is already pending or approved", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountSuspended() *AppError {
	return New("AUTH_004", "Account is suspended", http.StatusForbidden)
}

func ErrRoleRequired(role string) *AppError {
	return New("AUTH_005", fmt.Sprintf("This action requires the %s role", role), http.StatusForbidden)
}

// ---- Requests (REQ) ----

func ErrRequestInProgress() *AppError {
	return New("REQ_001", "A request with this idempotency key is already being processed", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrLockTimeout reports a row lock the database stopped waiting for.
func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
