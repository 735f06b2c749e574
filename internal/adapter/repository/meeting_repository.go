package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// MeetingRepository handles meeting data operations
type MeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create creates a new meeting in Draft
func (r *MeetingRepository) Create(ctx context.Context, meeting *entities.Meeting) error {
	if meeting == nil {
		return errors.New("meeting cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(meeting).Error; err != nil {
		return apperrors.ErrDBTransactionFailed(err)
	}
	return nil
}

// FindByID retrieves a meeting by ID
func (r *MeetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	var meeting entities.Meeting
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("meeting")
		}
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return &meeting, nil
}

// TransitionStatus atomically moves the meeting between lifecycle states. The
// guarded UPDATE makes concurrent transitions race on the row: only the caller
// that observes the expected status wins, everyone else gets
// MEETING_INVALID_STATE.
func (r *MeetingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to entities.MeetingStatus, note string, actorID *uuid.UUID) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&entities.Meeting{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":     to,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.invalidState(tx, id, from)
		}
		return tx.Create(entities.NewStatusChange(id, from, to, note, actorID)).Error
	})
}

// MarkFailed moves Processing->Failed retaining the failure reason code.
func (r *MeetingRepository) MarkFailed(ctx context.Context, id uuid.UUID, code, reason string) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&entities.Meeting{}).
			Where("id = ? AND status = ?", id, entities.MeetingStatusProcessing).
			Updates(map[string]interface{}{
				"status":         entities.MeetingStatusFailed,
				"failure_code":   code,
				"failure_reason": reason,
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.invalidState(tx, id, entities.MeetingStatusProcessing)
		}
		return tx.Create(entities.NewStatusChange(id, entities.MeetingStatusProcessing, entities.MeetingStatusFailed, code, nil)).Error
	})
}

// SoftDelete flips the meeting to Deleted and cascades a logical deletion
// marker to the meeting's derived entities. Rows are never removed.
func (r *MeetingRepository) SoftDelete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		var meeting entities.Meeting
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&meeting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound("meeting")
			}
			return err
		}
		if meeting.IsDeleted() {
			return nil
		}
		from := meeting.Status

		if err := tx.Model(&entities.Meeting{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     entities.MeetingStatusDeleted,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{&entities.ActionItem{}, &entities.Decision{}, &entities.Risk{}} {
			if err := tx.Model(model).Where("meeting_id = ?", id).
				Update("deleted", true).Error; err != nil {
				return err
			}
		}

		// An orphaned lock on a deleted meeting serves nobody.
		if err := tx.Where("meeting_id = ?", id).Delete(&entities.ReviewLock{}).Error; err != nil {
			return err
		}

		return tx.Create(entities.NewStatusChange(id, from, entities.MeetingStatusDeleted, "meeting deleted", &actorID)).Error
	})
}

// Publish atomically checks the review lock and moves Review->Published,
// consuming the caller's lock if held. The meeting and lock rows are both
// taken FOR UPDATE so a concurrent acquire cannot slip between the check and
// the transition.
func (r *MeetingRepository) Publish(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		var meeting entities.Meeting
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&meeting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound("meeting")
			}
			return err
		}
		if meeting.Status != entities.MeetingStatusReview {
			return apperrors.ErrMeetingInvalidState(id.String(), string(meeting.Status), string(entities.MeetingStatusReview))
		}

		var lock entities.ReviewLock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("meeting_id = ?", id).First(&lock).Error
		switch {
		case err == nil:
			if !lock.Expired(time.Now()) && lock.HolderID != actorID {
				return apperrors.ErrLockConflict(id.String(), lock.HolderID.String())
			}
			if err := tx.Where("meeting_id = ?", id).Delete(&entities.ReviewLock{}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No lock, publish proceeds.
		default:
			return err
		}

		if err := tx.Model(&entities.Meeting{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     entities.MeetingStatusPublished,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		return tx.Create(entities.NewStatusChange(id, entities.MeetingStatusReview, entities.MeetingStatusPublished, "review complete", &actorID)).Error
	})
}

// AppendReviewNote appends a reviewer note to the meeting's update log.
func (r *MeetingRepository) AppendReviewNote(ctx context.Context, meetingID, actorID uuid.UUID, note string) error {
	if err := r.db.WithContext(ctx).Create(entities.NewReviewNote(meetingID, actorID, note)).Error; err != nil {
		return apperrors.ErrDBTransactionFailed(err)
	}
	return nil
}

// ListUpdates returns the meeting's append-only update log in insertion order.
func (r *MeetingRepository) ListUpdates(ctx context.Context, meetingID uuid.UUID) ([]*entities.MeetingUpdate, error) {
	var updates []*entities.MeetingUpdate
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&updates).Error; err != nil {
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return updates, nil
}

func (r *MeetingRepository) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ErrDBTransactionFailed(err)
}

// invalidState builds the MEETING_INVALID_STATE error with the status the row
// actually holds.
func (r *MeetingRepository) invalidState(tx *gorm.DB, id uuid.UUID, expected entities.MeetingStatus) error {
	var meeting entities.Meeting
	if err := tx.Select("status").Where("id = ?", id).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound("meeting")
		}
		return err
	}
	return apperrors.ErrMeetingInvalidState(id.String(), string(meeting.Status), string(expected))
}
