package jobcontext

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/recapcrew/recap-engine/errors"
)

type KeyContext string

var (
	keyBatchID       KeyContext = "batch_id"
	keyItemID        KeyContext = "item_id"
	keyMeetingID     KeyContext = "meeting_id"
	keyItemStartTime KeyContext = "item_start_time"
)

// ItemMetadata holds metadata for one batch item execution
type ItemMetadata struct {
	BatchID   uuid.UUID
	ItemID    uuid.UUID
	MeetingID uuid.UUID
	StartTime time.Time
}

// ItemBegin initializes a per-item context with metadata and timeout. The
// timeout bounds one item; a hung provider call cannot stall the whole batch.
func ItemBegin(parentCtx context.Context, batchID, itemID, meetingID uuid.UUID, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keyBatchID, batchID)
	ctx = context.WithValue(ctx, keyItemID, itemID)
	ctx = context.WithValue(ctx, keyMeetingID, meetingID)
	ctx = context.WithValue(ctx, keyItemStartTime, time.Now())

	return ctx, cancel
}

// GetBatchID extracts the batch ID from context
func GetBatchID(ctx context.Context) (uuid.UUID, bool) {
	batchID, ok := ctx.Value(keyBatchID).(uuid.UUID)
	return batchID, ok
}

// GetItemID extracts the item ID from context
func GetItemID(ctx context.Context) (uuid.UUID, bool) {
	itemID, ok := ctx.Value(keyItemID).(uuid.UUID)
	return itemID, ok
}

// GetMeetingID extracts the meeting ID from context
func GetMeetingID(ctx context.Context) (uuid.UUID, bool) {
	meetingID, ok := ctx.Value(keyMeetingID).(uuid.UUID)
	return meetingID, ok
}

// GetItemStartTime extracts the item start time from context
func GetItemStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyItemStartTime).(time.Time)
	return startTime, ok
}

// GetItemMetadata extracts all item metadata from context
func GetItemMetadata(ctx context.Context) *ItemMetadata {
	batchID, _ := GetBatchID(ctx)
	itemID, _ := GetItemID(ctx)
	meetingID, _ := GetMeetingID(ctx)
	startTime, _ := GetItemStartTime(ctx)

	return &ItemMetadata{
		BatchID:   batchID,
		ItemID:    itemID,
		MeetingID: meetingID,
		StartTime: startTime,
	}
}

// IsRetryableError checks if an error should trigger a retry on a later run.
// Typed errors are classified by reason code; untyped ones by message.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if appErr, ok := apperrors.AsAppError(err); ok {
		switch appErr.Code {
		case apperrors.ErrorCode_PROVIDER_UNAVAILABLE,
			apperrors.ErrorCode_STORAGE_FAILED,
			apperrors.ErrorCode_DB_TRANSACTION:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Database deadlock/lock errors (Postgres)
	if strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "40001") || // serialization_failure
		strings.Contains(errStr, "40p01") { // deadlock_detected
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	return false
}

// CalculateBackoff calculates exponential backoff duration
func CalculateBackoff(attempt int, baseDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// 2^attempt * baseDelay, max 60 seconds
	backoff := time.Duration(1<<uint(attempt)) * baseDelay

	maxBackoff := 60 * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}
