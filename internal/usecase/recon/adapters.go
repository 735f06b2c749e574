package recon

import (
	"time"

	"github.com/google/uuid"

	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// Snapshot is the current set of matchable entities for one project, loaded
// before planning. Closed/superseded and soft-deleted rows are excluded by
// the repository.
type Snapshot struct {
	ActionItems []*entities.ActionItem
	Decisions   []*entities.Decision
	Risks       []*entities.Risk
}

// Candidate is the kind-independent view of an existing entity the planner
// matches extracted items against.
type Candidate struct {
	ID         uuid.UUID
	ExternalID *string
	Title      string
	Resolved   bool // closed action item/risk or superseded decision
	Embedding  []float32
	UpdatedAt  time.Time
}

// KindAdapter supplies the kind-specific pieces of the otherwise generic
// reconciliation routine.
type KindAdapter interface {
	Kind() entities.EntityKind
	Candidates(snap *Snapshot) []Candidate
}

type actionItemAdapter struct{}

func (actionItemAdapter) Kind() entities.EntityKind { return entities.KindActionItem }

func (actionItemAdapter) Candidates(snap *Snapshot) []Candidate {
	out := make([]Candidate, 0, len(snap.ActionItems))
	for _, it := range snap.ActionItems {
		out = append(out, Candidate{
			ID:         it.ID,
			ExternalID: it.ExternalID,
			Title:      it.Title,
			Resolved:   it.IsClosed(),
			Embedding:  it.Embedding,
			UpdatedAt:  it.UpdatedAt,
		})
	}
	return out
}

type decisionAdapter struct{}

func (decisionAdapter) Kind() entities.EntityKind { return entities.KindDecision }

func (decisionAdapter) Candidates(snap *Snapshot) []Candidate {
	out := make([]Candidate, 0, len(snap.Decisions))
	for _, d := range snap.Decisions {
		out = append(out, Candidate{
			ID:         d.ID,
			ExternalID: d.ExternalID,
			Title:      d.Title,
			Resolved:   d.IsSuperseded(),
			Embedding:  d.Embedding,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	return out
}

type riskAdapter struct{}

func (riskAdapter) Kind() entities.EntityKind { return entities.KindRisk }

func (riskAdapter) Candidates(snap *Snapshot) []Candidate {
	out := make([]Candidate, 0, len(snap.Risks))
	for _, r := range snap.Risks {
		out = append(out, Candidate{
			ID:         r.ID,
			ExternalID: r.ExternalID,
			Title:      r.Title,
			Resolved:   r.IsClosed(),
			Embedding:  r.Embedding,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return out
}

// kindAdapters is the fixed reconciliation order: action items, decisions,
// risks.
var kindAdapters = []KindAdapter{
	actionItemAdapter{},
	decisionAdapter{},
	riskAdapter{},
}
