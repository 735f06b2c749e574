package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/internal/domain/repositories"
	"github.com/recapcrew/recap-engine/internal/usecase/authz"
)

// DefaultLockTTL is the inactivity window after which a review lock expires.
const DefaultLockTTL = 30 * time.Minute

// LockManager grants the single advisory writer lock a meeting carries during
// human review. At most one live lock exists per meeting; an expired lock is
// absent for every operation.
type LockManager struct {
	locks  repositories.LockRepository
	authz  authz.Authorizer
	ttl    time.Duration
	logger *zap.Logger
}

func NewLockManager(locks repositories.LockRepository, authorizer authz.Authorizer, ttl time.Duration, logger *zap.Logger) *LockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockManager{
		locks:  locks,
		authz:  authorizer,
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire takes or refreshes the review lock for userID. When another user
// holds a live lock the error carries that holder's identity for display.
func (m *LockManager) Acquire(ctx context.Context, meetingID, userID uuid.UUID) (*entities.ReviewLock, error) {
	acquired, current, err := m.locks.TryAcquire(ctx, meetingID, userID, m.ttl)
	if err != nil {
		return nil, err
	}
	if !acquired {
		m.logger.Info("review lock contended",
			zap.String("meeting_id", meetingID.String()),
			zap.String("requested_by", userID.String()),
			zap.String("held_by", current.HolderID.String()))
		return nil, apperrors.ErrLockConflict(meetingID.String(), current.HolderID.String())
	}
	return &entities.ReviewLock{
		MeetingID:  meetingID,
		HolderID:   userID,
		AcquiredAt: time.Now(),
		ExpiresAt:  time.Now().Add(m.ttl),
	}, nil
}

// Release drops the lock if userID holds it. Releasing a lock held by someone
// else, or no lock at all, is a no-op.
func (m *LockManager) Release(ctx context.Context, meetingID, userID uuid.UUID) error {
	released, err := m.locks.Release(ctx, meetingID, userID)
	if err != nil {
		return err
	}
	if !released {
		m.logger.Debug("release was a no-op",
			zap.String("meeting_id", meetingID.String()),
			zap.String("user_id", userID.String()))
	}
	return nil
}

// ForceUnlock removes any lock on the meeting regardless of holder. Only
// administrators may call it.
func (m *LockManager) ForceUnlock(ctx context.Context, meetingID, adminID uuid.UUID) error {
	admin, err := m.authz.IsAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.ErrPermissionDenied("force-unlock requires administrator privilege")
	}
	removed, err := m.locks.ForceRelease(ctx, meetingID)
	if err != nil {
		return err
	}
	if removed {
		m.logger.Info("review lock force-unlocked",
			zap.String("meeting_id", meetingID.String()),
			zap.String("admin_id", adminID.String()))
	}
	return nil
}

// Holder returns the live lock on the meeting, or nil when the meeting is
// unlocked or the lock has expired.
func (m *LockManager) Holder(ctx context.Context, meetingID uuid.UUID) (*entities.ReviewLock, error) {
	lock, err := m.locks.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if lock == nil || lock.Expired(time.Now()) {
		return nil, nil
	}
	return lock, nil
}
