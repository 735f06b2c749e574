package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// ProjectEntityRepository loads the current per-project entity snapshot the
// reconciliation engine matches against. Soft-deleted rows are excluded.
type ProjectEntityRepository interface {
	// OpenActionItems returns the project's non-closed action items.
	OpenActionItems(ctx context.Context, projectID uuid.UUID) ([]*entities.ActionItem, error)

	// ActiveDecisions returns the project's non-superseded decisions.
	ActiveDecisions(ctx context.Context, projectID uuid.UUID) ([]*entities.Decision, error)

	// OpenRisks returns the project's non-closed risks.
	OpenRisks(ctx context.Context, projectID uuid.UUID) ([]*entities.Risk, error)
}

// ReconciliationRepository commits a proposed operation set.
type ReconciliationRepository interface {
	// ApplyBatch applies all operations for one meeting in a single
	// transaction: the meeting row is locked, the expected status verified,
	// every operation applied, the recap payload stored, and the meeting moved
	// to Review. Partial application is never possible; any failure rolls the
	// whole batch back.
	ApplyBatch(ctx context.Context, meetingID uuid.UUID, recap []byte, ops []entities.ReconOp) error
}
