package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingCategory classifies a meeting; the category steers which contract
// sections the model must produce.
type MeetingCategory string

const (
	MeetingCategoryPlanning      MeetingCategory = "planning"
	MeetingCategoryStandup       MeetingCategory = "standup"
	MeetingCategoryRetrospective MeetingCategory = "retrospective"
	MeetingCategoryRemediation   MeetingCategory = "remediation"
	MeetingCategoryGeneral       MeetingCategory = "general"
)

// MeetingCategories lists all valid categories.
var MeetingCategories = []MeetingCategory{
	MeetingCategoryPlanning,
	MeetingCategoryStandup,
	MeetingCategoryRetrospective,
	MeetingCategoryRemediation,
	MeetingCategoryGeneral,
}

// MeetingStatus is the lifecycle state of a meeting record.
type MeetingStatus string

const (
	MeetingStatusDraft      MeetingStatus = "draft"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusReview     MeetingStatus = "review"
	MeetingStatusPublished  MeetingStatus = "published"
	MeetingStatusFailed     MeetingStatus = "failed"
	MeetingStatusDeleted    MeetingStatus = "deleted"
)

// Meeting represents one ingested meeting record. Rows are never physically
// deleted; soft delete flips status to deleted.
type Meeting struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	Category      MeetingCategory `gorm:"type:varchar(30);not null;default:'general';index" json:"category"`
	Status        MeetingStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	TranscriptKey string          `gorm:"type:varchar(512)" json:"transcript_key"` // object key in the transcript bucket
	Recap         datatypes.JSON  `gorm:"type:jsonb;default:'{}'" json:"recap"`
	FailureCode   *string         `gorm:"type:varchar(64)" json:"failure_code,omitempty"`
	FailureReason *string         `gorm:"type:text" json:"failure_reason,omitempty"`
	Updates       []MeetingUpdate `gorm:"foreignKey:MeetingID" json:"updates,omitempty"`
	CreatedAt     time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// NewMeeting creates a Draft meeting for an uploaded transcript.
func NewMeeting(projectID uuid.UUID, title string, category MeetingCategory, transcriptKey string) *Meeting {
	return &Meeting{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Title:         title,
		Category:      category,
		Status:        MeetingStatusDraft,
		TranscriptKey: transcriptKey,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

// IsDeleted checks whether the meeting has been soft-deleted.
func (m *Meeting) IsDeleted() bool {
	return m.Status == MeetingStatusDeleted
}

// IsPublished checks whether review finished.
func (m *Meeting) IsPublished() bool {
	return m.Status == MeetingStatusPublished
}

// MarkFailed records the failure reason code and message.
func (m *Meeting) MarkFailed(code, reason string) {
	m.Status = MeetingStatusFailed
	m.FailureCode = &code
	m.FailureReason = &reason
	m.UpdatedAt = time.Now()
}
