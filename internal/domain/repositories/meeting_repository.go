package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// Create creates a new meeting in Draft
	Create(ctx context.Context, meeting *entities.Meeting) error

	// FindByID retrieves a meeting by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)

	// TransitionStatus atomically moves the meeting from->to and appends a
	// status-change record. Returns MEETING_INVALID_STATE when the row is no
	// longer in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entities.MeetingStatus, note string, actorID *uuid.UUID) error

	// MarkFailed moves Processing->Failed retaining the failure reason code.
	MarkFailed(ctx context.Context, id uuid.UUID, code, reason string) error

	// SoftDelete flips the meeting to Deleted and cascades a logical deletion
	// marker to the meeting's derived entities. Rows are never removed.
	SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error

	// Publish atomically checks the review lock and moves Review->Published,
	// consuming the caller's lock if held. Returns LOCK_CONFLICT when another
	// active holder exists.
	Publish(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error

	// AppendReviewNote appends a reviewer note to the meeting's update log.
	AppendReviewNote(ctx context.Context, meetingID, actorID uuid.UUID, note string) error

	// ListUpdates returns the meeting's append-only update log in order.
	ListUpdates(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingUpdate, error)
}
