package recap

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// MeetingResponse is the API view of a meeting record.
type MeetingResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	Title         string          `json:"title"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	Recap         json.RawMessage `json:"recap,omitempty"`
	FailureCode   *string         `json:"failure_code,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewMeetingResponse maps a meeting entity to its API view.
func NewMeetingResponse(m *entities.Meeting) *MeetingResponse {
	return &MeetingResponse{
		ID:            m.ID,
		ProjectID:     m.ProjectID,
		Title:         m.Title,
		Category:      string(m.Category),
		Status:        string(m.Status),
		Recap:         json.RawMessage(m.Recap),
		FailureCode:   m.FailureCode,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ReconciliationResponse summarizes a committed reconciliation batch.
type ReconciliationResponse struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Closed     int       `json:"closed"`
	Superseded int       `json:"superseded"`
	Skipped    int       `json:"skipped"`
}

// NewReconciliationResponse maps a reconciliation result to its API view.
func NewReconciliationResponse(r *entities.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		MeetingID:  r.MeetingID,
		Created:    r.Created,
		Updated:    r.Updated,
		Closed:     r.Closed,
		Superseded: r.Superseded,
		Skipped:    r.Skipped,
	}
}

// LockResponse is the API view of a review lock.
type LockResponse struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	HolderID   uuid.UUID `json:"holder_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewLockResponse maps a review lock to its API view.
func NewLockResponse(l *entities.ReviewLock) *LockResponse {
	return &LockResponse{
		MeetingID:  l.MeetingID,
		HolderID:   l.HolderID,
		AcquiredAt: l.AcquiredAt,
		ExpiresAt:  l.ExpiresAt,
	}
}

// MeetingUpdateResponse is one record of the meeting's update log.
type MeetingUpdateResponse struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	FromStatus *string    `json:"from_status,omitempty"`
	ToStatus   *string    `json:"to_status,omitempty"`
	Note       string     `json:"note,omitempty"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewMeetingUpdateResponses maps the update log to its API view.
func NewMeetingUpdateResponses(updates []*entities.MeetingUpdate) []MeetingUpdateResponse {
	out := make([]MeetingUpdateResponse, 0, len(updates))
	for _, u := range updates {
		resp := MeetingUpdateResponse{
			ID:        u.ID,
			Kind:      string(u.Kind),
			Note:      u.Note,
			ActorID:   u.ActorID,
			CreatedAt: u.CreatedAt,
		}
		if u.FromStatus != nil {
			s := string(*u.FromStatus)
			resp.FromStatus = &s
		}
		if u.ToStatus != nil {
			s := string(*u.ToStatus)
			resp.ToStatus = &s
		}
		out = append(out, resp)
	}
	return out
}
