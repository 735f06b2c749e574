package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// memoryLockRepo mirrors the database repository's atomic semantics with a
// mutex so contention tests are deterministic.
type memoryLockRepo struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entities.ReviewLock
	now   func() time.Time
}

func newMemoryLockRepo() *memoryLockRepo {
	return &memoryLockRepo{
		locks: make(map[uuid.UUID]*entities.ReviewLock),
		now:   time.Now,
	}
}

func (r *memoryLockRepo) Get(_ context.Context, meetingID uuid.UUID) (*entities.ReviewLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[meetingID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryLockRepo) TryAcquire(_ context.Context, meetingID, holderID uuid.UUID, ttl time.Duration) (bool, *entities.ReviewLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if l, ok := r.locks[meetingID]; ok && !l.Expired(now) && l.HolderID != holderID {
		cp := *l
		return false, &cp, nil
	}
	r.locks[meetingID] = &entities.ReviewLock{
		MeetingID:  meetingID,
		HolderID:   holderID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	return true, nil, nil
}

func (r *memoryLockRepo) Release(_ context.Context, meetingID, holderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[meetingID]; ok && l.HolderID == holderID {
		delete(r.locks, meetingID)
		return true, nil
	}
	return false, nil
}

func (r *memoryLockRepo) ForceRelease(_ context.Context, meetingID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[meetingID]; ok {
		delete(r.locks, meetingID)
		return true, nil
	}
	return false, nil
}

type stubAuthorizer struct {
	admin bool
}

func (s *stubAuthorizer) IsProjectMember(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubAuthorizer) IsAdmin(context.Context, uuid.UUID) (bool, error) {
	return s.admin, nil
}

func TestAcquireIsExclusive(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{}, time.Minute, nil)
	meetingID := uuid.New()
	userA, userB := uuid.New(), uuid.New()

	_, err := mgr.Acquire(context.Background(), meetingID, userA)
	require.NoError(t, err)

	_, err = mgr.Acquire(context.Background(), meetingID, userB)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_LOCK_CONFLICT))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, userA.String(), appErr.Details["held_by"])
}

func TestAcquireConcurrentExactlyOneWins(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{}, time.Minute, nil)
	meetingID := uuid.New()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = mgr.Acquire(context.Background(), meetingID, uuid.New())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_LOCK_CONFLICT))
		}
	}
	assert.Equal(t, 1, wins)
}

func TestAcquireIdempotentRefresh(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{}, time.Minute, nil)
	meetingID := uuid.New()
	user := uuid.New()

	first, err := mgr.Acquire(context.Background(), meetingID, user)
	require.NoError(t, err)

	second, err := mgr.Acquire(context.Background(), meetingID, user)
	require.NoError(t, err)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))
}

func TestExpiredLockBehavesAsAbsent(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{}, time.Minute, nil)
	meetingID := uuid.New()
	userA, userB := uuid.New(), uuid.New()

	_, err := mgr.Acquire(context.Background(), meetingID, userA)
	require.NoError(t, err)

	// Shift the repository clock past the TTL.
	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = mgr.Acquire(context.Background(), meetingID, userB)
	require.NoError(t, err)

	lock, err := mgr.Holder(context.Background(), meetingID)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, userB, lock.HolderID)
}

func TestReleaseByNonHolderIsNoOp(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{}, time.Minute, nil)
	meetingID := uuid.New()
	userA, userB := uuid.New(), uuid.New()

	_, err := mgr.Acquire(context.Background(), meetingID, userA)
	require.NoError(t, err)

	require.NoError(t, mgr.Release(context.Background(), meetingID, userB))

	lock, err := mgr.Holder(context.Background(), meetingID)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, userA, lock.HolderID)

	require.NoError(t, mgr.Release(context.Background(), meetingID, userA))
	lock, err = mgr.Holder(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestForceUnlockRequiresAdmin(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{admin: false}, time.Minute, nil)
	meetingID := uuid.New()

	_, err := mgr.Acquire(context.Background(), meetingID, uuid.New())
	require.NoError(t, err)

	err = mgr.ForceUnlock(context.Background(), meetingID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_PERMISSION_DENIED))
}

func TestForceUnlockAsAdmin(t *testing.T) {
	repo := newMemoryLockRepo()
	mgr := NewLockManager(repo, &stubAuthorizer{admin: true}, time.Minute, nil)
	meetingID := uuid.New()

	_, err := mgr.Acquire(context.Background(), meetingID, uuid.New())
	require.NoError(t, err)

	require.NoError(t, mgr.ForceUnlock(context.Background(), meetingID, uuid.New()))

	lock, err := mgr.Holder(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Nil(t, lock)
}
