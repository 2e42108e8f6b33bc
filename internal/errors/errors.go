// Package errors provides custom error types for the budgetbook API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// StatusMultiStatus is used for allocations that were only partially posted.
const StatusMultiStatus = http.StatusMultiStatus

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so wrapped
// copies still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// Pipeline errors.
var (
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// API key and passkey errors.
var (
	ErrAPIKeyNotFound  = &AppError{Code: "API_KEY_NOT_FOUND", Message: "API key not found", StatusCode: http.StatusNotFound}
	ErrPasskeyExists   = &AppError{Code: "PASSKEY_EXISTS", Message: "A passkey is already registered for this user", StatusCode: http.StatusConflict}
	ErrPasskeyNotFound = &AppError{Code: "PASSKEY_NOT_FOUND", Message: "Passkey not found", StatusCode: http.StatusNotFound}
	ErrPasskeySession  = &AppError{Code: "PASSKEY_SESSION_EXPIRED", Message: "Passkey session expired", StatusCode: http.StatusUnauthorized}
	ErrPasskeyRejected = &AppError{Code: "PASSKEY_REJECTED", Message: "Passkey verification failed", StatusCode: http.StatusUnauthorized}
)

// Budget errors.
var (
	ErrBudgetNotFound     = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrLastBudgetMember   = &AppError{Code: "LAST_BUDGET_MEMBER", Message: "The last member of a budget cannot be removed", StatusCode: http.StatusConflict}
	ErrAlreadyMember      = &AppError{Code: "ALREADY_MEMBER", Message: "User already has access to this budget", StatusCode: http.StatusConflict}
	ErrInvalidAutoBalance = &AppError{Code: "INVALID_AUTO_BALANCE", Message: "Invalid auto-balance configuration", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Allocation errors.
var (
	ErrInvalidAllocation = &AppError{Code: "INVALID_ALLOCATION", Message: "Invalid allocation", StatusCode: http.StatusBadRequest}
	ErrPartialPosting    = &AppError{Code: "PARTIAL_POSTING", Message: "Some postings failed; earlier postings were kept", StatusCode: StatusMultiStatus}
)
