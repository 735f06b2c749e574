package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// LockRepository persists review locks. An expired row counts as absent for
// every operation.
type LockRepository interface {
	// Get returns the lock row for a meeting, or nil when none exists.
	// Callers interpret expiry; Get does not filter expired rows.
	Get(ctx context.Context, meetingID uuid.UUID) (*entities.ReviewLock, error)

	// TryAcquire atomically takes or refreshes the lock. It succeeds when no
	// row exists, the row is expired, or the row is already held by holderID
	// (idempotent re-acquire refreshes expiry). On failure the live holder's
	// lock is returned so callers can surface the holder identity.
	TryAcquire(ctx context.Context, meetingID, holderID uuid.UUID, ttl time.Duration) (acquired bool, current *entities.ReviewLock, err error)

	// Release deletes the lock if held by holderID. Returns false when no
	// matching row was deleted; that is not an error.
	Release(ctx context.Context, meetingID, holderID uuid.UUID) (bool, error)

	// ForceRelease deletes the lock regardless of holder.
	ForceRelease(ctx context.Context, meetingID uuid.UUID) (bool, error)
}
