package entities

import (
	"time"

	"github.com/google/uuid"
)

// DecisionStatus represents the status of a decision
type DecisionStatus string

const (
	DecisionStatusActive     DecisionStatus = "active"
	DecisionStatusSuperseded DecisionStatus = "superseded"
)

// DecisionCategory classifies a decision.
type DecisionCategory string

const (
	DecisionCategoryTechnical      DecisionCategory = "technical"
	DecisionCategoryProcess        DecisionCategory = "process"
	DecisionCategoryProduct        DecisionCategory = "product"
	DecisionCategoryOrganizational DecisionCategory = "organizational"
)

// DecisionCategories lists all valid decision categories.
var DecisionCategories = []DecisionCategory{
	DecisionCategoryTechnical,
	DecisionCategoryProcess,
	DecisionCategoryProduct,
	DecisionCategoryOrganizational,
}

// ImpactAreas lists the valid impact area values.
var ImpactAreas = []string{
	"engineering", "product", "design", "operations", "finance", "customer",
}

// Decision is a recorded project decision. A decision is never created in the
// superseded state; superseded is reachable only through an explicit supersede
// operation that records the successor as a back-reference.
type Decision struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"project_id"`
	MeetingID      *uuid.UUID       `gorm:"type:uuid;index" json:"meeting_id,omitempty"`
	Title          string           `gorm:"type:varchar(512);not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	OwnerName      string           `gorm:"type:varchar(255)" json:"owner_name"`
	OwnerEmail     string           `gorm:"type:varchar(255)" json:"owner_email"`
	OwnerUserID    *uuid.UUID       `gorm:"type:uuid" json:"owner_user_id,omitempty"`
	Status         DecisionStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Category       DecisionCategory `gorm:"type:varchar(30);not null" json:"category"`
	ImpactAreas    []string         `gorm:"type:jsonb;serializer:json" json:"impact_areas"`
	SupersededByID *uuid.UUID       `gorm:"type:uuid" json:"superseded_by_id,omitempty"`
	Source         EntitySource     `gorm:"type:varchar(20);not null;default:'meeting'" json:"source"`
	ExternalID     *string          `gorm:"type:varchar(128);index" json:"external_id,omitempty"`
	Evidence       []Evidence       `gorm:"type:jsonb;serializer:json" json:"evidence"`
	Embedding      []float32        `gorm:"type:jsonb;serializer:json" json:"-"`
	Deleted        bool             `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt      time.Time        `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for Decision
func (Decision) TableName() string {
	return "decisions"
}

// IsSuperseded reports whether this decision has been replaced.
func (d *Decision) IsSuperseded() bool {
	return d.Status == DecisionStatusSuperseded
}

// Supersede marks the decision as replaced by successorID.
func (d *Decision) Supersede(successorID uuid.UUID) {
	d.Status = DecisionStatusSuperseded
	d.SupersededByID = &successorID
	d.UpdatedAt = time.Now()
}
