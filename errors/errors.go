package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the application error type. Every failure surfaced by the API
// carries a stable reason code; the raw cause is logged, never returned.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements the error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the raw cause for errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return AppError{}, false
}

// IsCode reports whether err carries the given reason code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// General Errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrPermissionDenied(action string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_PERMISSION_DENIED,
		Message:  fmt.Sprintf("Permission denied: %s", action),
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

// Contract validation errors

// ErrValidationFailed reports every violated field, keyed by JSON path.
func ErrValidationFailed(violations map[string]string) AppError {
	return AppError{
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_VALIDATION_FAILED,
		Message:  "Extraction payload failed contract validation",
		Details:  violations,
	}
}

func ErrUnknownSchemaVersion(version string) AppError {
	return AppError{
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_UNKNOWN_SCHEMA_VERSION,
		Message:  "Unknown contract schema version",
	}.WithDetail("schema_version", version)
}

// Reconciliation errors

func ErrReconciliationConflict(reason string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_RECONCILIATION_CONFLICT,
		Message:  "Reconciliation conflict",
	}.WithDetail("reason", reason)
}

func ErrSupersedeCycle(decisionRef string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_SUPERSEDE_CYCLE,
		Message:  "Decision supersede chain would form a cycle",
	}.WithDetail("decision", decisionRef)
}

func ErrMeetingInvalidState(meetingID, currentState, expectedState string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_MEETING_INVALID_STATE,
		Message:  "Meeting is in invalid state for this operation",
	}.WithDetail("meeting_id", meetingID).
		WithDetail("current_state", currentState).
		WithDetail("expected_state", expectedState)
}

// Review lock errors

// ErrLockConflict is an expected, recoverable condition. The holder's id is
// included so the UI can show who is editing.
func ErrLockConflict(meetingID, holderID string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_LOCK_CONFLICT,
		Message:  "Meeting is locked by another reviewer",
	}.WithDetail("meeting_id", meetingID).
		WithDetail("held_by", holderID)
}

// Provider errors

func ErrProviderUnavailable(provider string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusServiceUnavailable,
		Code:     ErrorCode_PROVIDER_UNAVAILABLE,
		Message:  "External provider temporarily unavailable",
	}.WithDetail("provider", provider)
}

func ErrProviderQuota(provider string) AppError {
	return AppError{
		HTTPCode: http.StatusTooManyRequests,
		Code:     ErrorCode_PROVIDER_QUOTA,
		Message:  "External provider quota exceeded",
	}.WithDetail("provider", provider)
}

func ErrExtractionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_EXTRACTION_FAILED,
		Message:  "Extraction failed",
	}
}

// Storage errors

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrDBTransactionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_TRANSACTION,
		Message:  "Database transaction failed",
	}
}
