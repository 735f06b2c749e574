package entities

import (
	"time"

	"github.com/google/uuid"
)

// MeetingUpdateKind distinguishes the typed records in a meeting's update log.
type MeetingUpdateKind string

const (
	MeetingUpdateStatusChange MeetingUpdateKind = "status_change"
	MeetingUpdateReviewNote   MeetingUpdateKind = "review_note"
)

// MeetingUpdate is one record of the append-only per-meeting update log.
// Records are only ever inserted, never modified or removed.
type MeetingUpdate struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"meeting_id"`
	Kind       MeetingUpdateKind `gorm:"type:varchar(30);not null" json:"kind"`
	FromStatus *MeetingStatus    `gorm:"type:varchar(20)" json:"from_status,omitempty"`
	ToStatus   *MeetingStatus    `gorm:"type:varchar(20)" json:"to_status,omitempty"`
	Note       string            `gorm:"type:text" json:"note"`
	ActorID    *uuid.UUID        `gorm:"type:uuid" json:"actor_id,omitempty"` // nil for pipeline transitions
	CreatedAt  time.Time         `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for MeetingUpdate
func (MeetingUpdate) TableName() string {
	return "meeting_updates"
}

// NewStatusChange builds a status-change log record.
func NewStatusChange(meetingID uuid.UUID, from, to MeetingStatus, note string, actorID *uuid.UUID) *MeetingUpdate {
	return &MeetingUpdate{
		ID:         uuid.New(),
		MeetingID:  meetingID,
		Kind:       MeetingUpdateStatusChange,
		FromStatus: &from,
		ToStatus:   &to,
		Note:       note,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	}
}

// NewReviewNote builds a reviewer note log record.
func NewReviewNote(meetingID, actorID uuid.UUID, note string) *MeetingUpdate {
	return &MeetingUpdate{
		ID:        uuid.New(),
		MeetingID: meetingID,
		Kind:      MeetingUpdateReviewNote,
		Note:      note,
		ActorID:   &actorID,
		CreatedAt: time.Now(),
	}
}
