package recap

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CreateMeetingRequest registers an uploaded transcript as a Draft meeting.
type CreateMeetingRequest struct {
	ProjectID  uuid.UUID `json:"project_id" validate:"required"`
	Title      string    `json:"title" validate:"required,max=255"`
	Category   string    `json:"category" validate:"required,oneof=planning standup retrospective remediation general"`
	Transcript string    `json:"transcript" validate:"required"`
}

// SubmitExtractionRequest carries a raw model payload for reconciliation. The
// payload is deliberately untyped here; the contract validator owns its shape.
type SubmitExtractionRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// ReviewNoteRequest appends a reviewer note to the meeting's update log.
type ReviewNoteRequest struct {
	Note string `json:"note" validate:"required,max=4000"`
}

// IngestItemRequest is one source item in a batch ingestion request.
type IngestItemRequest struct {
	MeetingID uuid.UUID `json:"meeting_id" validate:"required"`
	ObjectKey string    `json:"object_key" validate:"required"`
}

// IngestBatchRequest runs a batch of pending source items.
type IngestBatchRequest struct {
	Items []IngestItemRequest `json:"items" validate:"required,min=1,dive"`
}
