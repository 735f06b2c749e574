package errors

// ErrorCode is a stable, machine-readable reason code surfaced to API clients.
type ErrorCode string

const (
	ErrorCode_INTERNAL          ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT  ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_NOT_FOUND         ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS    ErrorCode = "ALREADY_EXISTS"
	ErrorCode_PERMISSION_DENIED ErrorCode = "PERMISSION_DENIED"
	ErrorCode_UNAUTHENTICATED   ErrorCode = "UNAUTHENTICATED"

	// Contract validation
	ErrorCode_VALIDATION_FAILED      ErrorCode = "VALIDATION_FAILED"
	ErrorCode_UNKNOWN_SCHEMA_VERSION ErrorCode = "UNKNOWN_SCHEMA_VERSION"

	// Reconciliation
	ErrorCode_RECONCILIATION_CONFLICT ErrorCode = "RECONCILIATION_CONFLICT"
	ErrorCode_SUPERSEDE_CYCLE         ErrorCode = "SUPERSEDE_CYCLE"
	ErrorCode_MEETING_INVALID_STATE   ErrorCode = "MEETING_INVALID_STATE"

	// Review locks
	ErrorCode_LOCK_CONFLICT ErrorCode = "LOCK_CONFLICT"

	// External providers
	ErrorCode_PROVIDER_UNAVAILABLE ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrorCode_PROVIDER_QUOTA       ErrorCode = "PROVIDER_QUOTA"
	ErrorCode_EXTRACTION_FAILED    ErrorCode = "EXTRACTION_FAILED"

	// Storage
	ErrorCode_STORAGE_FAILED ErrorCode = "STORAGE_FAILED"
	ErrorCode_DB_TRANSACTION ErrorCode = "DB_TRANSACTION_FAILED"
)

// String returns the code as a plain string.
func (c ErrorCode) String() string {
	return string(c)
}
