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

// ProjectEntityRepository loads the per-project entity snapshot used for
// duplicate matching.
type ProjectEntityRepository struct {
	db *gorm.DB
}

// NewProjectEntityRepository creates a new project entity repository
func NewProjectEntityRepository(db *gorm.DB) *ProjectEntityRepository {
	return &ProjectEntityRepository{db: db}
}

// OpenActionItems retrieves the project's non-closed, non-deleted action items
func (r *ProjectEntityRepository) OpenActionItems(ctx context.Context, projectID uuid.UUID) ([]*entities.ActionItem, error) {
	var items []*entities.ActionItem
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND deleted = false AND status <> ?", projectID, entities.ActionItemStatusClosed).
		Order("updated_at DESC").
		Find(&items).Error; err != nil {
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return items, nil
}

// ActiveDecisions retrieves the project's non-superseded, non-deleted decisions
func (r *ProjectEntityRepository) ActiveDecisions(ctx context.Context, projectID uuid.UUID) ([]*entities.Decision, error) {
	var decisions []*entities.Decision
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND deleted = false AND status <> ?", projectID, entities.DecisionStatusSuperseded).
		Order("updated_at DESC").
		Find(&decisions).Error; err != nil {
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return decisions, nil
}

// OpenRisks retrieves the project's non-closed, non-deleted risks
func (r *ProjectEntityRepository) OpenRisks(ctx context.Context, projectID uuid.UUID) ([]*entities.Risk, error) {
	var risks []*entities.Risk
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND deleted = false AND status <> ?", projectID, entities.RiskStatusClosed).
		Order("updated_at DESC").
		Find(&risks).Error; err != nil {
		return nil, apperrors.ErrDBTransactionFailed(err)
	}
	return risks, nil
}

// ReconciliationRepository commits reconciliation batches.
type ReconciliationRepository struct {
	db *gorm.DB
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// ApplyBatch applies every operation for one meeting in a single transaction.
// The meeting row is locked FOR UPDATE first, serializing concurrent batches
// for the same meeting: the loser finds the row no longer in Processing and
// rolls back without touching any entity.
func (r *ReconciliationRepository) ApplyBatch(ctx context.Context, meetingID uuid.UUID, recap []byte, ops []entities.ReconOp) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meeting entities.Meeting
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", meetingID).First(&meeting).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound("meeting")
			}
			return err
		}
		if meeting.Status != entities.MeetingStatusProcessing {
			return apperrors.ErrMeetingInvalidState(meetingID.String(), string(meeting.Status), string(entities.MeetingStatusProcessing))
		}

		for _, op := range ops {
			if err := r.applyOp(tx, &meeting, op); err != nil {
				return err
			}
		}

		if err := tx.Model(&entities.Meeting{}).Where("id = ?", meetingID).
			Updates(map[string]interface{}{
				"recap":      recap,
				"status":     entities.MeetingStatusReview,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		return tx.Create(entities.NewStatusChange(meetingID, entities.MeetingStatusProcessing, entities.MeetingStatusReview, "reconciliation committed", nil)).Error
	})
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.ErrDBTransactionFailed(err)
}

func (r *ReconciliationRepository) applyOp(tx *gorm.DB, meeting *entities.Meeting, op entities.ReconOp) error {
	switch op.Kind {
	case entities.KindActionItem:
		return r.applyActionItem(tx, meeting, op)
	case entities.KindDecision:
		return r.applyDecision(tx, meeting, op)
	case entities.KindRisk:
		return r.applyRisk(tx, meeting, op)
	}
	return apperrors.ErrReconciliationConflict("unknown entity kind " + string(op.Kind))
}

func (r *ReconciliationRepository) applyActionItem(tx *gorm.DB, meeting *entities.Meeting, op entities.ReconOp) error {
	switch op.Type {
	case entities.OpCreate:
		item := &entities.ActionItem{
			ID:          uuid.New(),
			ProjectID:   meeting.ProjectID,
			MeetingID:   &meeting.ID,
			Title:       op.Item.Title,
			Description: op.Item.Description,
			OwnerName:   op.Item.OwnerName,
			OwnerEmail:  op.Item.OwnerEmail,
			Status:      entities.ActionItemStatus(op.Item.Status),
			Source:      entities.SourceMeeting,
			ExternalID:  op.Item.ExternalID,
			DueDate:     op.Item.DueDate,
			Evidence:    op.Item.Evidence,
			Embedding:   op.Embedding,
		}
		return tx.Create(item).Error

	case entities.OpUpdate:
		var item entities.ActionItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", op.TargetID).First(&item).Error; err != nil {
			return err
		}
		item.Evidence = entities.MergeEvidence(item.Evidence, op.Item.Evidence)
		if op.Item.Description != "" {
			item.Description = op.Item.Description
		}
		if op.Item.DueDate != nil {
			item.DueDate = op.Item.DueDate
		}
		if op.Item.OwnerName != "" {
			item.OwnerName = op.Item.OwnerName
			item.OwnerEmail = op.Item.OwnerEmail
		}
		if op.Item.ExternalID != nil {
			item.ExternalID = op.Item.ExternalID
		}
		item.UpdatedAt = time.Now()
		return tx.Save(&item).Error

	case entities.OpClose:
		return tx.Model(&entities.ActionItem{}).
			Where("id = ?", op.TargetID).
			Updates(map[string]interface{}{
				"status":     entities.ActionItemStatusClosed,
				"updated_at": time.Now(),
			}).Error
	}
	return apperrors.ErrReconciliationConflict("unsupported action item operation " + string(op.Type))
}

func (r *ReconciliationRepository) applyDecision(tx *gorm.DB, meeting *entities.Meeting, op entities.ReconOp) error {
	create := func() (*entities.Decision, error) {
		decision := &entities.Decision{
			ID:          uuid.New(),
			ProjectID:   meeting.ProjectID,
			MeetingID:   &meeting.ID,
			Title:       op.Item.Title,
			Description: op.Item.Description,
			OwnerName:   op.Item.OwnerName,
			OwnerEmail:  op.Item.OwnerEmail,
			Status:      entities.DecisionStatusActive,
			Category:    op.Item.Category,
			ImpactAreas: op.Item.ImpactAreas,
			Source:      entities.SourceMeeting,
			ExternalID:  op.Item.ExternalID,
			Evidence:    op.Item.Evidence,
			Embedding:   op.Embedding,
		}
		return decision, tx.Create(decision).Error
	}

	switch op.Type {
	case entities.OpCreate:
		_, err := create()
		return err

	case entities.OpUpdate:
		var decision entities.Decision
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", op.TargetID).First(&decision).Error; err != nil {
			return err
		}
		decision.Evidence = entities.MergeEvidence(decision.Evidence, op.Item.Evidence)
		if op.Item.Description != "" {
			decision.Description = op.Item.Description
		}
		if len(op.Item.ImpactAreas) > 0 {
			decision.ImpactAreas = op.Item.ImpactAreas
		}
		if op.Item.ExternalID != nil {
			decision.ExternalID = op.Item.ExternalID
		}
		decision.UpdatedAt = time.Now()
		return tx.Save(&decision).Error

	case entities.OpSupersede:
		var predecessor entities.Decision
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		if op.TargetID != nil {
			query = query.Where("id = ?", op.TargetID)
		} else {
			// Same-run predecessor: its create committed earlier in this
			// transaction, so it resolves by external id.
			query = query.Where("project_id = ? AND external_id = ? AND deleted = false",
				meeting.ProjectID, op.TargetExternalID)
		}
		if err := query.First(&predecessor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrReconciliationConflict("supersede predecessor vanished")
			}
			return err
		}
		if predecessor.ProjectID != meeting.ProjectID {
			return apperrors.ErrReconciliationConflict("supersede predecessor belongs to another project")
		}
		if predecessor.IsSuperseded() {
			return apperrors.ErrReconciliationConflict("supersede predecessor already superseded")
		}
		successor, err := create()
		if err != nil {
			return err
		}
		return tx.Model(&entities.Decision{}).
			Where("id = ?", predecessor.ID).
			Updates(map[string]interface{}{
				"status":           entities.DecisionStatusSuperseded,
				"superseded_by_id": successor.ID,
				"updated_at":       time.Now(),
			}).Error
	}
	return apperrors.ErrReconciliationConflict("unsupported decision operation " + string(op.Type))
}

func (r *ReconciliationRepository) applyRisk(tx *gorm.DB, meeting *entities.Meeting, op entities.ReconOp) error {
	switch op.Type {
	case entities.OpCreate:
		risk := &entities.Risk{
			ID:          uuid.New(),
			ProjectID:   meeting.ProjectID,
			MeetingID:   &meeting.ID,
			Title:       op.Item.Title,
			Description: op.Item.Description,
			OwnerName:   op.Item.OwnerName,
			OwnerEmail:  op.Item.OwnerEmail,
			Status:      entities.RiskStatus(op.Item.Status),
			Severity:    op.Item.Severity,
			Source:      entities.SourceMeeting,
			ExternalID:  op.Item.ExternalID,
			Evidence:    op.Item.Evidence,
			Embedding:   op.Embedding,
		}
		return tx.Create(risk).Error

	case entities.OpUpdate:
		var risk entities.Risk
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", op.TargetID).First(&risk).Error; err != nil {
			return err
		}
		risk.Evidence = entities.MergeEvidence(risk.Evidence, op.Item.Evidence)
		if op.Item.Description != "" {
			risk.Description = op.Item.Description
		}
		if op.Item.Severity != "" {
			risk.Severity = op.Item.Severity
		}
		if op.Item.ExternalID != nil {
			risk.ExternalID = op.Item.ExternalID
		}
		risk.UpdatedAt = time.Now()
		return tx.Save(&risk).Error

	case entities.OpClose:
		return tx.Model(&entities.Risk{}).
			Where("id = ?", op.TargetID).
			Updates(map[string]interface{}{
				"status":     entities.RiskStatusClosed,
				"updated_at": time.Now(),
			}).Error
	}
	return apperrors.ErrReconciliationConflict("unsupported risk operation " + string(op.Type))
}
