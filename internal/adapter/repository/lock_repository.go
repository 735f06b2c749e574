package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// LockRepository persists review locks in Postgres. Atomicity comes from a
// single guarded upsert; there is no read-then-write window for two acquirers
// to slip through.
type LockRepository struct {
	db *gorm.DB
}

// NewLockRepository creates a new lock repository
func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{db: db}
}

// Get returns the lock row for a meeting, or nil when none exists.
func (r *LockRepository) Get(ctx context.Context, meetingID uuid.UUID) (*entities.ReviewLock, error) {
	var lock entities.ReviewLock
	if err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return &lock, nil
}

// TryAcquire atomically takes or refreshes the lock. The upsert only replaces
// a row that is expired or already held by the same user, so a live foreign
// lock survives untouched and RowsAffected tells the two cases apart.
func (r *LockRepository) TryAcquire(ctx context.Context, meetingID, holderID uuid.UUID, ttl time.Duration) (bool, *entities.ReviewLock, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO review_locks (meeting_id, holder_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (meeting_id) DO UPDATE
		SET holder_id = EXCLUDED.holder_id,
		    acquired_at = EXCLUDED.acquired_at,
		    expires_at = EXCLUDED.expires_at
		WHERE review_locks.holder_id = EXCLUDED.holder_id
		   OR review_locks.expires_at <= EXCLUDED.acquired_at`,
		meetingID, holderID, now, now.Add(ttl))
	if result.Error != nil {
		return false, nil, apperrors.ErrDBTransactionFailed(result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil, nil
	}

	current, err := r.Get(ctx, meetingID)
	if err != nil {
		return false, nil, err
	}
	if current == nil {
		// The holder released between the upsert and the read; the caller
		// can simply retry.
		return false, nil, apperrors.ErrDBTransactionFailed(errors.New("lock state changed during acquire"))
	}
	return false, current, nil
}

// Release deletes the lock if held by holderID. A non-matching or missing row
// deletes nothing, which is not an error.
func (r *LockRepository) Release(ctx context.Context, meetingID, holderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("meeting_id = ? AND holder_id = ?", meetingID, holderID).
		Delete(&entities.ReviewLock{})
	if result.Error != nil {
		return false, apperrors.ErrDBTransactionFailed(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ForceRelease deletes the lock regardless of holder.
func (r *LockRepository) ForceRelease(ctx context.Context, meetingID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Delete(&entities.ReviewLock{})
	if result.Error != nil {
		return false, apperrors.ErrDBTransactionFailed(result.Error)
	}
	return result.RowsAffected > 0, nil
}
