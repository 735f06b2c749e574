package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

type fakePipeline struct {
	meetings  map[uuid.UUID]*entities.Meeting
	submitted map[uuid.UUID]int
	failed    map[uuid.UUID]apperrors.ErrorCode
	submitErr error
}

func newFakePipeline(meetingIDs ...uuid.UUID) *fakePipeline {
	p := &fakePipeline{
		meetings:  make(map[uuid.UUID]*entities.Meeting),
		submitted: make(map[uuid.UUID]int),
		failed:    make(map[uuid.UUID]apperrors.ErrorCode),
	}
	for _, id := range meetingIDs {
		m := entities.NewMeeting(uuid.New(), "m", entities.MeetingCategoryGeneral, "transcripts/x.txt")
		m.ID = id
		p.meetings[id] = m
	}
	return p
}

func (p *fakePipeline) Get(_ context.Context, id uuid.UUID) (*entities.Meeting, error) {
	m, ok := p.meetings[id]
	if !ok {
		return nil, apperrors.ErrNotFound("meeting")
	}
	return m, nil
}

func (p *fakePipeline) StartProcessing(_ context.Context, meetingID uuid.UUID, _ *uuid.UUID) error {
	m, ok := p.meetings[meetingID]
	if !ok {
		return apperrors.ErrNotFound("meeting")
	}
	m.Status = entities.MeetingStatusProcessing
	return nil
}

func (p *fakePipeline) FailExtraction(_ context.Context, meetingID uuid.UUID, code apperrors.ErrorCode, _ error) {
	p.failed[meetingID] = code
	if m, ok := p.meetings[meetingID]; ok {
		m.Status = entities.MeetingStatusFailed
	}
}

func (p *fakePipeline) SubmitExtraction(_ context.Context, meetingID uuid.UUID, _ []byte, _ *uuid.UUID) (*entities.ReconciliationResult, error) {
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	p.submitted[meetingID]++
	if m, ok := p.meetings[meetingID]; ok {
		m.Status = entities.MeetingStatusReview
	}
	return &entities.ReconciliationResult{MeetingID: meetingID}, nil
}

type fakeExtractor struct {
	failKeys map[string]error
}

func (f *fakeExtractor) ExtractText(_ context.Context, objectKey string) (string, error) {
	if err, ok := f.failKeys[objectKey]; ok {
		return "", err
	}
	return "transcript for " + objectKey, nil
}

type fakeModel struct {
	err error
}

func (f *fakeModel) ExtractRecap(context.Context, string, entities.MeetingCategory) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"schema_version":"recap.v1","summary":"ok"}`), nil
}

type fakeDeduper struct {
	seen map[string]bool
}

func (f *fakeDeduper) MarkSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func item(meetingID uuid.UUID, key string) SourceItem {
	return SourceItem{ID: uuid.New(), MeetingID: meetingID, ObjectKey: key}
}

func TestRunProcessesAllItems(t *testing.T) {
	m1, m2 := uuid.New(), uuid.New()
	pipeline := newFakePipeline(m1, m2)
	c := NewCoordinator(pipeline, &fakeExtractor{}, &fakeModel{}, &fakeDeduper{}, time.Minute, time.Hour, nil)

	summary := c.Run(context.Background(), []SourceItem{
		item(m1, "transcripts/a.txt"),
		item(m2, "transcripts/b.txt"),
	})

	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 1, pipeline.submitted[m1])
	assert.Equal(t, 1, pipeline.submitted[m2])
}

func TestRunIsolatesItemFailures(t *testing.T) {
	m1, m2, m3 := uuid.New(), uuid.New(), uuid.New()
	pipeline := newFakePipeline(m1, m2, m3)
	extractor := &fakeExtractor{failKeys: map[string]error{
		"transcripts/bad.pdf": errors.New("unsupported file format"),
	}}
	c := NewCoordinator(pipeline, extractor, &fakeModel{}, &fakeDeduper{}, time.Minute, time.Hour, nil)

	summary := c.Run(context.Background(), []SourceItem{
		item(m1, "transcripts/a.txt"),
		item(m2, "transcripts/bad.pdf"),
		item(m3, "transcripts/c.txt"),
	})

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Items, 3)
	assert.Equal(t, ItemFailed, summary.Items[1].Status)
	assert.Contains(t, summary.Items[1].Reason, "unsupported file format")

	// The bad item's meeting is failed with the extraction reason code; the
	// items after it still went through.
	assert.Equal(t, apperrors.ErrorCode_EXTRACTION_FAILED, pipeline.failed[m2])
	assert.Equal(t, 1, pipeline.submitted[m3])
}

func TestRunDistinguishesQuotaFromTransient(t *testing.T) {
	m1 := uuid.New()
	pipeline := newFakePipeline(m1)
	model := &fakeModel{err: apperrors.ErrProviderQuota("extraction")}
	c := NewCoordinator(pipeline, &fakeExtractor{}, model, &fakeDeduper{}, time.Minute, time.Hour, nil)

	summary := c.Run(context.Background(), []SourceItem{item(m1, "transcripts/a.txt")})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, apperrors.ErrorCode_PROVIDER_QUOTA, pipeline.failed[m1])
}

func TestRunSkipsDuplicateItems(t *testing.T) {
	m1 := uuid.New()
	pipeline := newFakePipeline(m1)
	dedup := &fakeDeduper{}
	c := NewCoordinator(pipeline, &fakeExtractor{}, &fakeModel{}, dedup, time.Minute, time.Hour, nil)

	first := c.Run(context.Background(), []SourceItem{item(m1, "transcripts/a.txt")})
	assert.Equal(t, 1, first.Processed)

	second := c.Run(context.Background(), []SourceItem{item(m1, "transcripts/a.txt")})
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, pipeline.submitted[m1], "duplicate source item must not re-submit")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	m1, m2 := uuid.New(), uuid.New()
	pipeline := newFakePipeline(m1, m2)
	c := NewCoordinator(pipeline, &fakeExtractor{}, &fakeModel{}, &fakeDeduper{}, time.Minute, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := c.Run(ctx, []SourceItem{
		item(m1, "transcripts/a.txt"),
		item(m2, "transcripts/b.txt"),
	})

	assert.Zero(t, summary.Processed)
	assert.Equal(t, 2, summary.Skipped)
	for _, res := range summary.Items {
		assert.Equal(t, "batch cancelled", res.Reason)
	}
}

func TestRunMissingMeetingFailsItemOnly(t *testing.T) {
	known := uuid.New()
	pipeline := newFakePipeline(known)
	c := NewCoordinator(pipeline, &fakeExtractor{}, &fakeModel{}, &fakeDeduper{}, time.Minute, time.Hour, nil)

	summary := c.Run(context.Background(), []SourceItem{
		item(uuid.New(), "transcripts/ghost.txt"),
		item(known, "transcripts/a.txt"),
	})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
}
