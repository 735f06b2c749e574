package entities

import "time"

// ContractSchemaVersion is the contract version this engine accepts from the
// extraction model. Unknown versions are rejected before reconciliation.
const ContractSchemaVersion = "recap.v1"

// OpKind is the operation the model requested for one extracted entity.
type OpKind string

const (
	OpCreate    OpKind = "create"
	OpUpdate    OpKind = "update"
	OpClose     OpKind = "close"
	OpSupersede OpKind = "supersede"
)

// ExtractedItem is one normalized entity from a validated contract. The same
// shape serves action items, decisions and risks; the decision- and risk-only
// fields are zero for the other kinds.
type ExtractedItem struct {
	Operation   OpKind     `json:"operation"`
	ExternalID  *string    `json:"external_id,omitempty"` // model-side correlation id within one extraction run
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerName   string     `json:"owner_name"`
	OwnerEmail  string     `json:"owner_email"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Evidence    []Evidence `json:"evidence"`

	// Risks only
	Severity RiskSeverity `json:"severity,omitempty"`

	// Decisions only
	Category    DecisionCategory `json:"category,omitempty"`
	ImpactAreas []string         `json:"impact_areas,omitempty"`
	Supersedes  *string          `json:"supersedes,omitempty"` // external id or decision uuid of the predecessor
}

// FishboneCategory is one branch of a root-cause analysis.
type FishboneCategory struct {
	Name   string   `json:"name"`
	Causes []string `json:"causes"`
}

// Fishbone is the root-cause analysis section. It is mandatory for
// remediation meetings and forbidden for every other category.
type Fishbone struct {
	Enabled          bool               `json:"enabled"`
	ProblemStatement string             `json:"problem_statement"`
	Categories       []FishboneCategory `json:"categories"`
}

// RecapContract is a validated, normalized extraction payload. Instances are
// only produced by the contract validator; nothing downstream re-checks field
// constraints.
type RecapContract struct {
	SchemaVersion string          `json:"schema_version"`
	Summary       string          `json:"summary"`
	ActionItems   []ExtractedItem `json:"action_items"`
	Decisions     []ExtractedItem `json:"decisions"`
	Risks         []ExtractedItem `json:"risks"`
	Fishbone      *Fishbone       `json:"fishbone,omitempty"`
}

// ByKind returns the contract's entity list for the given kind.
func (c *RecapContract) ByKind(kind EntityKind) []ExtractedItem {
	switch kind {
	case KindActionItem:
		return c.ActionItems
	case KindDecision:
		return c.Decisions
	case KindRisk:
		return c.Risks
	}
	return nil
}
