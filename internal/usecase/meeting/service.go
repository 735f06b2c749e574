package meeting

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/internal/domain/repositories"
	"github.com/recapcrew/recap-engine/internal/usecase/contract"
	"github.com/recapcrew/recap-engine/internal/usecase/recon"
)

// Service drives the meeting lifecycle: extraction submission, review
// transitions, publish and soft delete.
type Service struct {
	meetings  repositories.MeetingRepository
	entities  repositories.ProjectEntityRepository
	recon     repositories.ReconciliationRepository
	validator *contract.Validator
	engine    *recon.Engine
	logger    *zap.Logger
}

func NewService(
	meetings repositories.MeetingRepository,
	projectEntities repositories.ProjectEntityRepository,
	reconRepo repositories.ReconciliationRepository,
	validator *contract.Validator,
	engine *recon.Engine,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		meetings:  meetings,
		entities:  projectEntities,
		recon:     reconRepo,
		validator: validator,
		engine:    engine,
		logger:    logger,
	}
}

// Create registers an uploaded meeting in Draft.
func (s *Service) Create(ctx context.Context, projectID uuid.UUID, title string, category entities.MeetingCategory, transcriptKey string) (*entities.Meeting, error) {
	m := entities.NewMeeting(projectID, title, category, transcriptKey)
	if err := s.meetings.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns one meeting.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	return s.meetings.FindByID(ctx, id)
}

// ListUpdates returns the meeting's ordered update log.
func (s *Service) ListUpdates(ctx context.Context, id uuid.UUID) ([]*entities.MeetingUpdate, error) {
	return s.meetings.ListUpdates(ctx, id)
}

// StartProcessing moves a Draft meeting to Processing ahead of text
// extraction. A meeting already in Processing passes through.
func (s *Service) StartProcessing(ctx context.Context, meetingID uuid.UUID, actorID *uuid.UUID) error {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	switch m.Status {
	case entities.MeetingStatusDraft:
		return s.transition(ctx, m, entities.MeetingStatusProcessing, "extraction started", actorID)
	case entities.MeetingStatusProcessing:
		return nil
	default:
		return apperrors.ErrMeetingInvalidState(meetingID.String(), string(m.Status), string(entities.MeetingStatusDraft))
	}
}

// FailExtraction records a pipeline failure against a Processing meeting.
func (s *Service) FailExtraction(ctx context.Context, meetingID uuid.UUID, code apperrors.ErrorCode, cause error) {
	s.fail(ctx, meetingID, code, cause)
}

// SubmitExtraction validates the model payload, plans reconciliation against
// the project's current entities and commits the plan in one transaction,
// moving the meeting to Review. Validation and reconciliation failures move
// the meeting to Failed with a stable reason code; the raw diagnostic stays
// in the logs.
func (s *Service) SubmitExtraction(ctx context.Context, meetingID uuid.UUID, payload []byte, actorID *uuid.UUID) (*entities.ReconciliationResult, error) {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	switch m.Status {
	case entities.MeetingStatusDraft:
		if err := s.transition(ctx, m, entities.MeetingStatusProcessing, "extraction started", actorID); err != nil {
			return nil, err
		}
	case entities.MeetingStatusProcessing:
		// A re-submitted payload for an in-flight meeting races on the row
		// lock inside ApplyBatch; only one commit wins.
	default:
		return nil, apperrors.ErrMeetingInvalidState(meetingID.String(), string(m.Status), string(entities.MeetingStatusDraft))
	}

	validated, err := s.validator.Validate(payload, m.Category)
	if err != nil {
		s.fail(ctx, meetingID, apperrors.ErrorCode_VALIDATION_FAILED, err)
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, m.ProjectID)
	if err != nil {
		return nil, err
	}

	ops, skipped, err := s.engine.Plan(ctx, validated, snap)
	if err != nil {
		s.fail(ctx, meetingID, apperrors.ErrorCode_RECONCILIATION_CONFLICT, err)
		return nil, err
	}

	recap, err := json.Marshal(validated)
	if err != nil {
		return nil, apperrors.ErrInternal(err)
	}

	if err := s.recon.ApplyBatch(ctx, meetingID, recap, ops); err != nil {
		return nil, err
	}

	result := &entities.ReconciliationResult{
		MeetingID:  meetingID,
		Skipped:    skipped,
		Operations: ops,
	}
	result.Count()

	s.logger.Info("reconciliation committed",
		zap.String("meeting_id", meetingID.String()),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("closed", result.Closed),
		zap.Int("superseded", result.Superseded),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// Publish moves Review->Published, consuming the caller's review lock. A lock
// held by someone else rejects the publish.
func (s *Service) Publish(ctx context.Context, meetingID, actorID uuid.UUID) error {
	return s.meetings.Publish(ctx, meetingID, actorID)
}

// Reprocess explicitly discards pending review edits and moves Review back to
// Processing for a fresh extraction run.
func (s *Service) Reprocess(ctx context.Context, meetingID uuid.UUID, actorID uuid.UUID) error {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.Status != entities.MeetingStatusReview {
		return apperrors.ErrMeetingInvalidState(meetingID.String(), string(m.Status), string(entities.MeetingStatusReview))
	}
	return s.transition(ctx, m, entities.MeetingStatusProcessing, "re-run requested, pending review edits discarded", &actorID)
}

// SoftDelete flags the meeting Deleted and marks its derived entities.
func (s *Service) SoftDelete(ctx context.Context, meetingID, actorID uuid.UUID) error {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.IsDeleted() {
		return nil
	}
	return s.meetings.SoftDelete(ctx, meetingID, actorID)
}

// AddReviewNote appends a reviewer note to the update log of a meeting in
// Review.
func (s *Service) AddReviewNote(ctx context.Context, meetingID, actorID uuid.UUID, note string) error {
	m, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.Status != entities.MeetingStatusReview {
		return apperrors.ErrMeetingInvalidState(meetingID.String(), string(m.Status), string(entities.MeetingStatusReview))
	}
	return s.meetings.AppendReviewNote(ctx, meetingID, actorID, note)
}

// transition routes every status change through the lifecycle graph before
// handing it to storage; the repository re-checks the from-status under the
// row guard, so a stale read loses there rather than here.
func (s *Service) transition(ctx context.Context, m *entities.Meeting, to entities.MeetingStatus, note string, actorID *uuid.UUID) error {
	if !CanTransition(m.Status, to) {
		return apperrors.ErrMeetingInvalidState(m.ID.String(), string(m.Status), string(to))
	}
	return s.meetings.TransitionStatus(ctx, m.ID, m.Status, to, note, actorID)
}

func (s *Service) loadSnapshot(ctx context.Context, projectID uuid.UUID) (*recon.Snapshot, error) {
	items, err := s.entities.OpenActionItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	decisions, err := s.entities.ActiveDecisions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	risks, err := s.entities.OpenRisks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &recon.Snapshot{ActionItems: items, Decisions: decisions, Risks: risks}, nil
}

func (s *Service) fail(ctx context.Context, meetingID uuid.UUID, code apperrors.ErrorCode, cause error) {
	s.logger.Warn("extraction pipeline failed",
		zap.String("meeting_id", meetingID.String()),
		zap.String("code", code.String()),
		zap.Error(cause))
	if err := s.meetings.MarkFailed(ctx, meetingID, code.String(), cause.Error()); err != nil {
		s.logger.Error("could not mark meeting failed",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err))
	}
}
