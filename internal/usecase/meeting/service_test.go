package meeting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/internal/usecase/contract"
	"github.com/recapcrew/recap-engine/internal/usecase/recon"
	"github.com/recapcrew/recap-engine/internal/usecase/similarity"
)

// memoryStore backs the meeting, entity and reconciliation repositories with
// maps, mirroring the transactional repository's observable behavior.
type memoryStore struct {
	meetings map[uuid.UUID]*entities.Meeting
	updates  map[uuid.UUID][]*entities.MeetingUpdate
	items    []*entities.ActionItem
	decision []*entities.Decision
	risks    []*entities.Risk
	locked   map[uuid.UUID]uuid.UUID // meeting -> active lock holder
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		meetings: make(map[uuid.UUID]*entities.Meeting),
		updates:  make(map[uuid.UUID][]*entities.MeetingUpdate),
		locked:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *memoryStore) Create(_ context.Context, m *entities.Meeting) error {
	s.meetings[m.ID] = m
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*entities.Meeting, error) {
	m, ok := s.meetings[id]
	if !ok {
		return nil, apperrors.ErrNotFound("meeting")
	}
	return m, nil
}

func (s *memoryStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to entities.MeetingStatus, note string, actorID *uuid.UUID) error {
	m, ok := s.meetings[id]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	if m.Status != from {
		return apperrors.ErrMeetingInvalidState(id.String(), string(m.Status), string(from))
	}
	m.Status = to
	s.updates[id] = append(s.updates[id], entities.NewStatusChange(id, from, to, note, actorID))
	return nil
}

func (s *memoryStore) MarkFailed(_ context.Context, id uuid.UUID, code, reason string) error {
	m, ok := s.meetings[id]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	m.MarkFailed(code, reason)
	return nil
}

func (s *memoryStore) SoftDelete(_ context.Context, id uuid.UUID, actorID uuid.UUID) error {
	m, ok := s.meetings[id]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	from := m.Status
	m.Status = entities.MeetingStatusDeleted
	s.updates[id] = append(s.updates[id], entities.NewStatusChange(id, from, entities.MeetingStatusDeleted, "soft delete", &actorID))
	for _, it := range s.items {
		if it.MeetingID != nil && *it.MeetingID == id {
			it.Deleted = true
		}
	}
	return nil
}

func (s *memoryStore) Publish(_ context.Context, id uuid.UUID, actorID uuid.UUID) error {
	m, ok := s.meetings[id]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	if m.Status != entities.MeetingStatusReview {
		return apperrors.ErrMeetingInvalidState(id.String(), string(m.Status), string(entities.MeetingStatusReview))
	}
	if holder, held := s.locked[id]; held && holder != actorID {
		return apperrors.ErrLockConflict(id.String(), holder.String())
	}
	delete(s.locked, id)
	m.Status = entities.MeetingStatusPublished
	return nil
}

func (s *memoryStore) AppendReviewNote(_ context.Context, meetingID, actorID uuid.UUID, note string) error {
	s.updates[meetingID] = append(s.updates[meetingID], entities.NewReviewNote(meetingID, actorID, note))
	return nil
}

func (s *memoryStore) ListUpdates(_ context.Context, meetingID uuid.UUID) ([]*entities.MeetingUpdate, error) {
	return s.updates[meetingID], nil
}

func (s *memoryStore) OpenActionItems(_ context.Context, projectID uuid.UUID) ([]*entities.ActionItem, error) {
	var out []*entities.ActionItem
	for _, it := range s.items {
		if it.ProjectID == projectID && !it.Deleted && !it.IsClosed() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *memoryStore) ActiveDecisions(_ context.Context, projectID uuid.UUID) ([]*entities.Decision, error) {
	var out []*entities.Decision
	for _, d := range s.decision {
		if d.ProjectID == projectID && !d.Deleted && !d.IsSuperseded() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memoryStore) OpenRisks(_ context.Context, projectID uuid.UUID) ([]*entities.Risk, error) {
	var out []*entities.Risk
	for _, r := range s.risks {
		if r.ProjectID == projectID && !r.Deleted && !r.IsClosed() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryStore) ApplyBatch(_ context.Context, meetingID uuid.UUID, recap []byte, ops []entities.ReconOp) error {
	m, ok := s.meetings[meetingID]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	if m.Status != entities.MeetingStatusProcessing {
		return apperrors.ErrMeetingInvalidState(meetingID.String(), string(m.Status), string(entities.MeetingStatusProcessing))
	}
	for _, op := range ops {
		switch op.Kind {
		case entities.KindActionItem:
			s.applyActionItem(m, op)
		case entities.KindDecision:
			s.applyDecision(m, op)
		case entities.KindRisk:
			s.applyRisk(m, op)
		}
	}
	m.Recap = recap
	m.Status = entities.MeetingStatusReview
	return nil
}

func (s *memoryStore) applyActionItem(m *entities.Meeting, op entities.ReconOp) {
	switch op.Type {
	case entities.OpCreate:
		s.items = append(s.items, &entities.ActionItem{
			ID:         uuid.New(),
			ProjectID:  m.ProjectID,
			MeetingID:  &m.ID,
			Title:      op.Item.Title,
			Status:     entities.ActionItemStatusOpen,
			Source:     entities.SourceMeeting,
			ExternalID: op.Item.ExternalID,
			Evidence:   op.Item.Evidence,
			Embedding:  op.Embedding,
		})
	case entities.OpUpdate:
		for _, it := range s.items {
			if it.ID == *op.TargetID {
				it.Evidence = entities.MergeEvidence(it.Evidence, op.Item.Evidence)
				it.UpdatedAt = time.Now()
			}
		}
	case entities.OpClose:
		for _, it := range s.items {
			if it.ID == *op.TargetID {
				it.Close()
			}
		}
	}
}

func (s *memoryStore) applyDecision(m *entities.Meeting, op entities.ReconOp) {
	create := func() {
		s.decision = append(s.decision, &entities.Decision{
			ID:          uuid.New(),
			ProjectID:   m.ProjectID,
			MeetingID:   &m.ID,
			Title:       op.Item.Title,
			Status:      entities.DecisionStatusActive,
			Source:      entities.SourceMeeting,
			Category:    op.Item.Category,
			ImpactAreas: op.Item.ImpactAreas,
			ExternalID:  op.Item.ExternalID,
			Evidence:    op.Item.Evidence,
			Embedding:   op.Embedding,
		})
	}
	switch op.Type {
	case entities.OpCreate:
		create()
	case entities.OpUpdate:
		for _, d := range s.decision {
			if d.ID == *op.TargetID {
				d.Evidence = entities.MergeEvidence(d.Evidence, op.Item.Evidence)
			}
		}
	case entities.OpSupersede:
		create()
		successor := s.decision[len(s.decision)-1].ID
		for _, d := range s.decision {
			if d.ID == successor {
				continue
			}
			switch {
			case op.TargetID != nil && d.ID == *op.TargetID:
				d.Supersede(successor)
			case op.TargetID == nil && op.TargetExternalID != nil &&
				d.ExternalID != nil && *d.ExternalID == *op.TargetExternalID:
				d.Supersede(successor)
			}
		}
	}
}

func (s *memoryStore) applyRisk(m *entities.Meeting, op entities.ReconOp) {
	switch op.Type {
	case entities.OpCreate:
		s.risks = append(s.risks, &entities.Risk{
			ID:         uuid.New(),
			ProjectID:  m.ProjectID,
			MeetingID:  &m.ID,
			Title:      op.Item.Title,
			Status:     entities.RiskStatusOpen,
			Severity:   op.Item.Severity,
			Source:     entities.SourceMeeting,
			ExternalID: op.Item.ExternalID,
			Evidence:   op.Item.Evidence,
			Embedding:  op.Embedding,
		})
	case entities.OpUpdate:
		for _, r := range s.risks {
			if r.ID == *op.TargetID {
				r.Evidence = entities.MergeEvidence(r.Evidence, op.Item.Evidence)
			}
		}
	case entities.OpClose:
		for _, r := range s.risks {
			if r.ID == *op.TargetID {
				r.Close()
			}
		}
	}
}

func newTestService(store *memoryStore) *Service {
	engine := recon.NewEngine(similarity.NewService(nil, 0, nil), nil)
	return NewService(store, store, store, contract.NewValidator(), engine, nil)
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"schema_version": entities.ContractSchemaVersion,
		"summary":        "Sprint planning for the payments squad.",
		"action_items": []map[string]any{{
			"operation":   "create",
			"external_id": "ai-1",
			"title":       "Fix login bug",
			"description": "Users with long emails cannot sign in.",
			"owner":       map[string]any{"name": "Ana", "email": "ana@example.com"},
			"status":      "open",
			"evidence": []map[string]any{{
				"quote":     "the login form rejects emails over 64 chars",
				"speaker":   "Ana",
				"timestamp": "00:04:12",
			}},
		}},
		"decisions": []map[string]any{},
		"risks":     []map[string]any{},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func TestSubmitExtractionHappyPath(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)

	result, err := svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Updated)
	assert.Equal(t, entities.MeetingStatusReview, store.meetings[m.ID].Status)
	require.Len(t, store.items, 1)
	assert.Equal(t, "Fix login bug", store.items[0].Title)
}

func TestSubmitExtractionIdempotentResubmit(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)

	_, err = svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	// Explicit re-run, then the identical payload again.
	actor := uuid.New()
	require.NoError(t, svc.Reprocess(context.Background(), m.ID, actor))

	result, err := svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	assert.Zero(t, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Len(t, store.items, 1, "re-submitting the same payload must not duplicate entities")
}

func TestSubmitExtractionValidationFailureMarksFailed(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)

	_, err = svc.SubmitExtraction(context.Background(), m.ID, []byte(`{"schema_version":"nope"}`), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_UNKNOWN_SCHEMA_VERSION))

	failed := store.meetings[m.ID]
	assert.Equal(t, entities.MeetingStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureCode)
	assert.Equal(t, apperrors.ErrorCode_VALIDATION_FAILED.String(), *failed.FailureCode)
}

func TestReprocessOnlyFromReview(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	actor := uuid.New()

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)

	for _, status := range []entities.MeetingStatus{
		entities.MeetingStatusDraft,
		entities.MeetingStatusProcessing,
		entities.MeetingStatusPublished,
		entities.MeetingStatusFailed,
	} {
		store.meetings[m.ID].Status = status
		err := svc.Reprocess(context.Background(), m.ID, actor)
		require.Error(t, err, "status %s", status)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_MEETING_INVALID_STATE))
	}

	store.meetings[m.ID].Status = entities.MeetingStatusReview
	require.NoError(t, svc.Reprocess(context.Background(), m.ID, actor))
	assert.Equal(t, entities.MeetingStatusProcessing, store.meetings[m.ID].Status)
}

func TestSubmitExtractionRejectsPublishedMeeting(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)
	store.meetings[m.ID].Status = entities.MeetingStatusPublished

	_, err = svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_MEETING_INVALID_STATE))
}

func TestPublishRespectsForeignLock(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)
	_, err = svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	userA, userB := uuid.New(), uuid.New()
	store.locked[m.ID] = userA

	err = svc.Publish(context.Background(), m.ID, userB)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_LOCK_CONFLICT))

	require.NoError(t, svc.Publish(context.Background(), m.ID, userA))
	assert.Equal(t, entities.MeetingStatusPublished, store.meetings[m.ID].Status)
	_, stillLocked := store.locked[m.ID]
	assert.False(t, stillLocked, "publish consumes the holder's lock")
}

func TestSoftDeleteCascadesAndIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)
	_, err = svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	actor := uuid.New()
	require.NoError(t, svc.SoftDelete(context.Background(), m.ID, actor))
	assert.Equal(t, entities.MeetingStatusDeleted, store.meetings[m.ID].Status)
	require.Len(t, store.items, 1)
	assert.True(t, store.items[0].Deleted, "derived entities carry the deletion marker")

	// Deleting again stays a no-op.
	require.NoError(t, svc.SoftDelete(context.Background(), m.ID, actor))
}

func TestAddReviewNoteOnlyInReview(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	m, err := svc.Create(context.Background(), uuid.New(), "Sprint planning", entities.MeetingCategoryPlanning, "transcripts/m1.txt")
	require.NoError(t, err)

	err = svc.AddReviewNote(context.Background(), m.ID, uuid.New(), "tighten the summary")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_MEETING_INVALID_STATE))

	_, err = svc.SubmitExtraction(context.Background(), m.ID, validPayload(t), nil)
	require.NoError(t, err)

	require.NoError(t, svc.AddReviewNote(context.Background(), m.ID, uuid.New(), "tighten the summary"))
	updates, err := svc.ListUpdates(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotEmpty(t, updates)
	assert.Equal(t, entities.MeetingUpdateReviewNote, updates[len(updates)-1].Kind)
}
