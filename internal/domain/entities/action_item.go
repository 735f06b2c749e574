package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind tags the three extractable entity kinds.
type EntityKind string

const (
	KindActionItem EntityKind = "action_item"
	KindDecision   EntityKind = "decision"
	KindRisk       EntityKind = "risk"
)

// EntitySource marks provenance: entered by hand or derived from a meeting.
type EntitySource string

const (
	SourceManual  EntitySource = "manual"
	SourceMeeting EntitySource = "meeting"
)

// ActionItemStatus represents the status of an action item
type ActionItemStatus string

const (
	ActionItemStatusOpen       ActionItemStatus = "open"
	ActionItemStatusInProgress ActionItemStatus = "in_progress"
	ActionItemStatusBlocked    ActionItemStatus = "blocked"
	ActionItemStatusClosed     ActionItemStatus = "closed"
)

// ActionItemStatuses lists all valid action item statuses.
var ActionItemStatuses = []ActionItemStatus{
	ActionItemStatusOpen,
	ActionItemStatusInProgress,
	ActionItemStatusBlocked,
	ActionItemStatusClosed,
}

// ActionItem is a task extracted from a meeting or entered manually.
type ActionItem struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"project_id"`
	MeetingID   *uuid.UUID       `gorm:"type:uuid;index" json:"meeting_id,omitempty"` // source meeting when derived
	Title       string           `gorm:"type:varchar(512);not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	OwnerName   string           `gorm:"type:varchar(255)" json:"owner_name"`
	OwnerEmail  string           `gorm:"type:varchar(255)" json:"owner_email"`
	OwnerUserID *uuid.UUID       `gorm:"type:uuid" json:"owner_user_id,omitempty"`
	Status      ActionItemStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Source      EntitySource     `gorm:"type:varchar(20);not null;default:'meeting'" json:"source"`
	ExternalID  *string          `gorm:"type:varchar(128);index" json:"external_id,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Evidence    []Evidence       `gorm:"type:jsonb;serializer:json" json:"evidence"`
	Embedding   []float32        `gorm:"type:jsonb;serializer:json" json:"-"`
	Deleted     bool             `gorm:"not null;default:false;index" json:"deleted"` // cascade marker from meeting soft delete
	CreatedAt   time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for ActionItem
func (ActionItem) TableName() string {
	return "action_items"
}

// IsClosed reports whether the item has been closed.
func (a *ActionItem) IsClosed() bool {
	return a.Status == ActionItemStatusClosed
}

// Close closes the item. Closing an already-closed item is a no-op.
func (a *ActionItem) Close() {
	if a.IsClosed() {
		return
	}
	a.Status = ActionItemStatusClosed
	a.UpdatedAt = time.Now()
}
