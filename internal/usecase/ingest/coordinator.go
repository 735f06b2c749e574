package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/pkg/ai"
	"github.com/recapcrew/recap-engine/pkg/jobcontext"
)

// MeetingPipeline is the slice of the meeting service the coordinator drives.
type MeetingPipeline interface {
	Get(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)
	StartProcessing(ctx context.Context, meetingID uuid.UUID, actorID *uuid.UUID) error
	FailExtraction(ctx context.Context, meetingID uuid.UUID, code apperrors.ErrorCode, cause error)
	SubmitExtraction(ctx context.Context, meetingID uuid.UUID, payload []byte, actorID *uuid.UUID) (*entities.ReconciliationResult, error)
}

// SourceItem is one pending transcript discovered by folder polling or pushed
// by a webhook.
type SourceItem struct {
	ID        uuid.UUID `json:"id"`
	MeetingID uuid.UUID `json:"meeting_id"`
	ObjectKey string    `json:"object_key"` // transcript object in the storage bucket
}

// ItemStatus classifies one item's outcome within a batch.
type ItemStatus string

const (
	ItemProcessed ItemStatus = "processed"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
)

// ItemResult records one item's outcome.
type ItemResult struct {
	ItemID    uuid.UUID  `json:"item_id"`
	MeetingID uuid.UUID  `json:"meeting_id"`
	Status    ItemStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
}

// BatchSummary reports a whole ingestion run. Committed items stay committed
// even when later items fail or the batch is cancelled.
type BatchSummary struct {
	BatchID   uuid.UUID    `json:"batch_id"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// TextExtractor turns a stored source object into plain transcript text.
type TextExtractor interface {
	ExtractText(ctx context.Context, objectKey string) (string, error)
}

// Deduper remembers which source items were already ingested recently.
type Deduper interface {
	// MarkSeen returns true when the key was not seen within the ttl window.
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Coordinator runs batches of source items through text extraction, model
// extraction and reconciliation. Failures are isolated per item: one bad file
// never aborts the rest of the batch.
type Coordinator struct {
	meetings    MeetingPipeline
	extractor   TextExtractor
	model       ai.ExtractionClient
	dedup       Deduper
	itemTimeout time.Duration
	dedupTTL    time.Duration
	logger      *zap.Logger
}

func NewCoordinator(
	meetings MeetingPipeline,
	extractor TextExtractor,
	model ai.ExtractionClient,
	dedup Deduper,
	itemTimeout, dedupTTL time.Duration,
	logger *zap.Logger,
) *Coordinator {
	if itemTimeout <= 0 {
		itemTimeout = 5 * time.Minute
	}
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		meetings:    meetings,
		extractor:   extractor,
		model:       model,
		dedup:       dedup,
		itemTimeout: itemTimeout,
		dedupTTL:    dedupTTL,
		logger:      logger,
	}
}

// Run processes the batch sequentially. Cancelling ctx stops before the next
// item; items already committed are not rolled back.
func (c *Coordinator) Run(ctx context.Context, items []SourceItem) *BatchSummary {
	summary := &BatchSummary{BatchID: uuid.New()}

	for _, item := range items {
		if ctx.Err() != nil {
			summary.record(item, ItemSkipped, "batch cancelled")
			continue
		}

		fresh := true
		if c.dedup != nil {
			seen, err := c.dedup.MarkSeen(ctx, dedupKey(item), c.dedupTTL)
			if err != nil {
				// Dedup is advisory; a cache outage must not stop ingestion.
				c.logger.Warn("dedup check unavailable",
					zap.String("item_id", item.ID.String()),
					zap.Error(err))
			} else {
				fresh = seen
			}
		}
		if !fresh {
			summary.record(item, ItemSkipped, "source item already ingested")
			continue
		}

		itemCtx, cancel := jobcontext.ItemBegin(ctx, summary.BatchID, item.ID, item.MeetingID, c.itemTimeout)
		err := c.processItem(itemCtx, item)
		cancel()

		if err != nil {
			summary.record(item, ItemFailed, err.Error())
			c.logger.Warn("batch item failed",
				zap.String("batch_id", summary.BatchID.String()),
				zap.String("item_id", item.ID.String()),
				zap.String("meeting_id", item.MeetingID.String()),
				zap.Bool("retryable", jobcontext.IsRetryableError(err)),
				zap.Error(err))
			continue
		}
		summary.record(item, ItemProcessed, "")
	}

	c.logger.Info("ingestion batch finished",
		zap.String("batch_id", summary.BatchID.String()),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))

	return summary
}

func (c *Coordinator) processItem(ctx context.Context, item SourceItem) error {
	m, err := c.meetings.Get(ctx, item.MeetingID)
	if err != nil {
		return err
	}

	if err := c.meetings.StartProcessing(ctx, item.MeetingID, nil); err != nil {
		return err
	}

	text, err := c.extractor.ExtractText(ctx, item.ObjectKey)
	if err != nil {
		c.meetings.FailExtraction(ctx, item.MeetingID, apperrors.ErrorCode_EXTRACTION_FAILED, err)
		return apperrors.ErrExtractionFailed(err)
	}

	payload, err := c.model.ExtractRecap(ctx, text, m.Category)
	if err != nil {
		code := apperrors.ErrorCode_PROVIDER_UNAVAILABLE
		if apperrors.IsCode(err, apperrors.ErrorCode_PROVIDER_QUOTA) {
			code = apperrors.ErrorCode_PROVIDER_QUOTA
		}
		c.meetings.FailExtraction(ctx, item.MeetingID, code, err)
		return err
	}

	if _, err := c.meetings.SubmitExtraction(ctx, item.MeetingID, payload, nil); err != nil {
		return err
	}
	return nil
}

func (s *BatchSummary) record(item SourceItem, status ItemStatus, reason string) {
	switch status {
	case ItemProcessed:
		s.Processed++
	case ItemSkipped:
		s.Skipped++
	case ItemFailed:
		s.Failed++
	}
	s.Items = append(s.Items, ItemResult{
		ItemID:    item.ID,
		MeetingID: item.MeetingID,
		Status:    status,
		Reason:    reason,
	})
}

func dedupKey(item SourceItem) string {
	return fmt.Sprintf("ingest:%s:%s", item.MeetingID, item.ObjectKey)
}
