package entities

import (
	"time"

	"github.com/google/uuid"
)

// RiskStatus represents the status of a risk
type RiskStatus string

const (
	RiskStatusOpen       RiskStatus = "open"
	RiskStatusMitigating RiskStatus = "mitigating"
	RiskStatusAccepted   RiskStatus = "accepted"
	RiskStatusClosed     RiskStatus = "closed"
)

// RiskStatuses lists all valid risk statuses.
var RiskStatuses = []RiskStatus{
	RiskStatusOpen,
	RiskStatusMitigating,
	RiskStatusAccepted,
	RiskStatusClosed,
}

// RiskSeverity grades a risk.
type RiskSeverity string

const (
	RiskSeverityLow    RiskSeverity = "low"
	RiskSeverityMedium RiskSeverity = "medium"
	RiskSeverityHigh   RiskSeverity = "high"
)

// Risk is a project risk surfaced in a meeting or entered manually.
type Risk struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"project_id"`
	MeetingID   *uuid.UUID   `gorm:"type:uuid;index" json:"meeting_id,omitempty"`
	Title       string       `gorm:"type:varchar(512);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	OwnerName   string       `gorm:"type:varchar(255)" json:"owner_name"`
	OwnerEmail  string       `gorm:"type:varchar(255)" json:"owner_email"`
	OwnerUserID *uuid.UUID   `gorm:"type:uuid" json:"owner_user_id,omitempty"`
	Status      RiskStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Severity    RiskSeverity `gorm:"type:varchar(10);not null;default:'medium'" json:"severity"`
	Source      EntitySource `gorm:"type:varchar(20);not null;default:'meeting'" json:"source"`
	ExternalID  *string      `gorm:"type:varchar(128);index" json:"external_id,omitempty"`
	Evidence    []Evidence   `gorm:"type:jsonb;serializer:json" json:"evidence"`
	Embedding   []float32    `gorm:"type:jsonb;serializer:json" json:"-"`
	Deleted     bool         `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt   time.Time    `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Risk
func (Risk) TableName() string {
	return "risks"
}

// IsClosed reports whether the risk has been closed.
func (r *Risk) IsClosed() bool {
	return r.Status == RiskStatusClosed
}

// Close closes the risk. Closing an already-closed risk is a no-op.
func (r *Risk) Close() {
	if r.IsClosed() {
		return
	}
	r.Status = RiskStatusClosed
	r.UpdatedAt = time.Now()
}
