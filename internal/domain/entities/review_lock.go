package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLock is the single advisory writer lock over a meeting during human
// review. The meeting id is the primary key, so at most one row can exist per
// meeting; an expired row is treated as absent everywhere.
type ReviewLock struct {
	MeetingID  uuid.UUID `gorm:"type:uuid;primary_key" json:"meeting_id"`
	HolderID   uuid.UUID `gorm:"type:uuid;not null" json:"holder_id"`
	AcquiredAt time.Time `gorm:"not null" json:"acquired_at"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName specifies the table name for ReviewLock
func (ReviewLock) TableName() string {
	return "review_locks"
}

// Expired reports whether the lock has passed its expiry at the given instant.
func (l *ReviewLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// ActiveFor reports whether the lock is live and held by userID.
func (l *ReviewLock) ActiveFor(userID uuid.UUID, now time.Time) bool {
	return !l.Expired(now) && l.HolderID == userID
}
