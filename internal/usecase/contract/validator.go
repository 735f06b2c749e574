package contract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// Validator checks a raw model-output payload against the recap.v1 contract
// and normalizes it. Validation is a pure function over its input: no side
// effects, and every violated field is reported, not just the first, so
// callers can request a targeted re-generation.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a contract validator.
func NewValidator() *Validator {
	v := validator.New()

	// Report violations under json field names, matching the payload the
	// model actually produced.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{v: v}
}

// Raw payload shapes. Field constraints live in validate tags; the per-kind
// types differ only where the contract differs (operations, statuses,
// decision/risk-specific fields).

type rawOwner struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type rawEvidence struct {
	Quote     string `json:"quote" validate:"required"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp" validate:"omitempty,datetime=15:04:05"`
}

type rawActionItem struct {
	Operation   string        `json:"operation" validate:"required,oneof=create update close"`
	ExternalID  *string       `json:"external_id"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Owner       *rawOwner     `json:"owner" validate:"omitempty"`
	Status      string        `json:"status" validate:"omitempty,oneof=open in_progress blocked closed"`
	DueDate     string        `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Evidence    []rawEvidence `json:"evidence" validate:"dive"`
}

type rawDecision struct {
	Operation   string        `json:"operation" validate:"required,oneof=create update supersede"`
	ExternalID  *string       `json:"external_id"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Owner       *rawOwner     `json:"owner" validate:"omitempty"`
	Category    string        `json:"category" validate:"required,oneof=technical process product organizational"`
	ImpactAreas []string      `json:"impact_areas" validate:"required,min=1,dive,oneof=engineering product design operations finance customer"`
	Supersedes  *string       `json:"supersedes"`
	Evidence    []rawEvidence `json:"evidence" validate:"dive"`
}

type rawRisk struct {
	Operation   string        `json:"operation" validate:"required,oneof=create update close"`
	ExternalID  *string       `json:"external_id"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Owner       *rawOwner     `json:"owner" validate:"omitempty"`
	Status      string        `json:"status" validate:"omitempty,oneof=open mitigating accepted closed"`
	Severity    string        `json:"severity" validate:"omitempty,oneof=low medium high"`
	Evidence    []rawEvidence `json:"evidence" validate:"dive"`
}

type rawFishboneCategory struct {
	Name   string   `json:"name" validate:"required"`
	Causes []string `json:"causes" validate:"required,min=1,dive,required"`
}

type rawFishbone struct {
	Enabled          bool                  `json:"enabled"`
	ProblemStatement string                `json:"problem_statement"`
	Categories       []rawFishboneCategory `json:"categories" validate:"dive"`
}

type rawContract struct {
	SchemaVersion string          `json:"schema_version"`
	Summary       string          `json:"summary" validate:"required"`
	ActionItems   []rawActionItem `json:"action_items" validate:"dive"`
	Decisions     []rawDecision   `json:"decisions" validate:"dive"`
	Risks         []rawRisk       `json:"risks" validate:"dive"`
	Fishbone      *rawFishbone    `json:"fishbone"`
}

// Validate parses and validates a raw payload for the given meeting category,
// returning the normalized contract or a VALIDATION_FAILED error listing
// every violation keyed by field path.
func (cv *Validator) Validate(payload []byte, category entities.MeetingCategory) (*entities.RecapContract, error) {
	// Models occasionally wrap JSON in markdown fences despite instructions.
	cleaned := extractJSON(payload)

	var raw rawContract
	if err := json.Unmarshal(cleaned, &raw); err != nil {
		return nil, apperrors.ErrValidationFailed(map[string]string{
			"payload": fmt.Sprintf("not valid JSON: %v", err),
		})
	}

	if raw.SchemaVersion != entities.ContractSchemaVersion {
		return nil, apperrors.ErrUnknownSchemaVersion(raw.SchemaVersion)
	}

	violations := make(map[string]string)

	if err := cv.v.Struct(&raw); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, apperrors.ErrInternal(err)
		}
		for _, fe := range verrs {
			violations[fieldPath(fe)] = violationReason(fe)
		}
	}

	cv.checkEvidence(&raw, violations)
	cv.checkFishbone(&raw, category, violations)

	if len(violations) > 0 {
		return nil, apperrors.ErrValidationFailed(violations)
	}

	return normalize(&raw), nil
}

// checkEvidence enforces evidence presence by length: a present-but-empty
// array fails exactly like a missing one. Slice tags cannot express this
// (`required` passes any non-nil slice), so the check runs after Struct.
func (cv *Validator) checkEvidence(raw *rawContract, violations map[string]string) {
	for i, it := range raw.ActionItems {
		if it.Operation != string(entities.OpClose) && len(it.Evidence) == 0 {
			violations[fmt.Sprintf("action_items[%d].evidence", i)] = "at least one evidence item is required for create/update"
		}
	}
	for i, it := range raw.Decisions {
		if len(it.Evidence) == 0 {
			violations[fmt.Sprintf("decisions[%d].evidence", i)] = "at least one evidence item is required"
		}
	}
	for i, it := range raw.Risks {
		if it.Operation != string(entities.OpClose) && len(it.Evidence) == 0 {
			violations[fmt.Sprintf("risks[%d].evidence", i)] = "at least one evidence item is required for create/update"
		}
	}
}

// checkFishbone enforces the cross-field rule: a populated fishbone root-cause
// section must be present exactly when the meeting category is remediation.
func (cv *Validator) checkFishbone(raw *rawContract, category entities.MeetingCategory, violations map[string]string) {
	if category == entities.MeetingCategoryRemediation {
		switch {
		case raw.Fishbone == nil:
			violations["fishbone"] = "required for remediation meetings"
		case !raw.Fishbone.Enabled:
			violations["fishbone.enabled"] = "must be true for remediation meetings"
		default:
			if strings.TrimSpace(raw.Fishbone.ProblemStatement) == "" {
				violations["fishbone.problem_statement"] = "required for remediation meetings"
			}
			if len(raw.Fishbone.Categories) == 0 {
				violations["fishbone.categories"] = "at least one category with causes is required"
			}
		}
		return
	}

	if raw.Fishbone != nil && (raw.Fishbone.Enabled || len(raw.Fishbone.Categories) > 0) {
		violations["fishbone"] = fmt.Sprintf("not allowed for %s meetings", category)
	}
}

func normalize(raw *rawContract) *entities.RecapContract {
	c := &entities.RecapContract{
		SchemaVersion: raw.SchemaVersion,
		Summary:       raw.Summary,
	}

	for _, it := range raw.ActionItems {
		item := baseItem(it.Operation, it.ExternalID, it.Title, it.Description, it.Owner, it.Evidence)
		item.Status = defaultString(it.Status, string(entities.ActionItemStatusOpen))
		if it.DueDate != "" {
			if d, err := time.Parse("2006-01-02", it.DueDate); err == nil {
				item.DueDate = &d
			}
		}
		c.ActionItems = append(c.ActionItems, item)
	}

	for _, it := range raw.Decisions {
		item := baseItem(it.Operation, it.ExternalID, it.Title, it.Description, it.Owner, it.Evidence)
		item.Status = string(entities.DecisionStatusActive)
		item.Category = entities.DecisionCategory(it.Category)
		item.ImpactAreas = it.ImpactAreas
		item.Supersedes = it.Supersedes
		c.Decisions = append(c.Decisions, item)
	}

	for _, it := range raw.Risks {
		item := baseItem(it.Operation, it.ExternalID, it.Title, it.Description, it.Owner, it.Evidence)
		item.Status = defaultString(it.Status, string(entities.RiskStatusOpen))
		item.Severity = entities.RiskSeverity(defaultString(it.Severity, string(entities.RiskSeverityMedium)))
		c.Risks = append(c.Risks, item)
	}

	if raw.Fishbone != nil {
		fb := &entities.Fishbone{
			Enabled:          raw.Fishbone.Enabled,
			ProblemStatement: raw.Fishbone.ProblemStatement,
		}
		for _, cat := range raw.Fishbone.Categories {
			fb.Categories = append(fb.Categories, entities.FishboneCategory{
				Name:   cat.Name,
				Causes: cat.Causes,
			})
		}
		c.Fishbone = fb
	}

	return c
}

func baseItem(op string, externalID *string, title, description string, owner *rawOwner, evidence []rawEvidence) entities.ExtractedItem {
	item := entities.ExtractedItem{
		Operation:   entities.OpKind(op),
		ExternalID:  normalizeExternalID(externalID),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	if owner != nil {
		item.OwnerName = strings.TrimSpace(owner.Name)
		item.OwnerEmail = strings.ToLower(strings.TrimSpace(owner.Email))
	}
	for _, ev := range evidence {
		item.Evidence = append(item.Evidence, entities.Evidence{
			Quote:     strings.TrimSpace(ev.Quote),
			Speaker:   strings.TrimSpace(ev.Speaker),
			Timestamp: ev.Timestamp,
		})
	}
	return item
}

func normalizeExternalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// fieldPath converts validator's namespace (RawContract.ActionItems[0].Title)
// to the payload's json path (action_items[0].title).
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx != -1 {
		ns = ns[idx+1:]
	}
	return ns
}

func violationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "email":
		return "must be a valid email address"
	case "datetime":
		switch fe.Param() {
		case "2006-01-02":
			return "must be a date in YYYY-MM-DD format"
		case "15:04:05":
			return "must be a timestamp in HH:MM:SS format"
		}
		return "invalid date/time format"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// extractJSON strips markdown code fences the model may wrap around the
// payload.
func extractJSON(content []byte) []byte {
	s := strings.TrimSpace(string(content))

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return content
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return []byte(strings.TrimSpace(s))
}
