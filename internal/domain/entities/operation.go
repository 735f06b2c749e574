package entities

import "github.com/google/uuid"

// ReconOp is one proposed reconciliation operation. It is the engine's output
// unit and the unit the storage layer commits; all operations for a meeting
// commit together or not at all.
type ReconOp struct {
	Kind EntityKind `json:"kind"`
	Type OpKind     `json:"type"`

	// TargetID references the existing entity for update/close, or the
	// predecessor decision for supersede. Nil for create.
	TargetID *uuid.UUID `json:"target_id,omitempty"`

	// TargetExternalID names a supersede predecessor introduced earlier in
	// the same batch, which has no persisted id at planning time. Exactly one
	// of TargetID and TargetExternalID is set for supersede.
	TargetExternalID *string `json:"target_external_id,omitempty"`

	// Item carries the payload for create/update and the successor decision
	// for supersede. Zero value for close.
	Item ExtractedItem `json:"item"`

	// Embedding is the similarity vector computed for the item's text; empty
	// when the embedding provider was unavailable.
	Embedding []float32 `json:"-"`

	// MatchScore is set when a create was converted to an update by duplicate
	// detection.
	MatchScore float64 `json:"match_score,omitempty"`
}

// ReconciliationResult summarizes one committed reconciliation batch.
type ReconciliationResult struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Closed     int       `json:"closed"`
	Superseded int       `json:"superseded"`
	Skipped    int       `json:"skipped"` // close requests that resolved to nothing
	Operations []ReconOp `json:"operations"`
}

// Count tallies the result counters from the final operation set.
func (r *ReconciliationResult) Count() {
	r.Created, r.Updated, r.Closed, r.Superseded = 0, 0, 0, 0
	for _, op := range r.Operations {
		switch op.Type {
		case OpCreate:
			r.Created++
		case OpUpdate:
			r.Updated++
		case OpClose:
			r.Closed++
		case OpSupersede:
			r.Superseded++
		}
	}
}
