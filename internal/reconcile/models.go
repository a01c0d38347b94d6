// Package reconcile compares the sources' views of each prospect field,
// records conflicts, and resolves them by source authority or escalates
// them to a human.
package reconcile

import (
	"time"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// Severity classifies how bad a conflict is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Status is the conflict lifecycle state.
type Status string

const (
	StatusDetected          Status = "DETECTED"
	StatusResolvedAutomatic Status = "RESOLVED_AUTOMATIC"
	StatusEscalated         Status = "ESCALATED"
	StatusResolvedManual    Status = "RESOLVED_MANUAL"
	StatusSuppressed        Status = "SUPPRESSED"
)

// validTransitions is the conflict state machine. RESOLVED_MANUAL and
// SUPPRESSED are terminal; nothing ever returns to DETECTED.
var validTransitions = map[Status]map[Status]bool{
	StatusDetected: {
		StatusResolvedAutomatic: true,
		StatusEscalated:         true,
		StatusResolvedManual:    true,
		StatusSuppressed:        true,
	},
	StatusResolvedAutomatic: {
		StatusResolvedManual: true,
		StatusSuppressed:     true,
	},
	StatusEscalated: {
		StatusResolvedManual: true,
		StatusSuppressed:     true,
	},
	StatusResolvedManual: {},
	StatusSuppressed:     {},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// ConflictRecord is one reconciliation-time comparison between exactly
// two sources' values for one field of one prospect.
type ConflictRecord struct {
	ID          domain.ConflictID `json:"id"`
	ProspectID  domain.ProspectID `json:"prospect_id"`
	Field       string            `json:"field"`
	SourceA     domain.Source     `json:"source_a"`
	ValueA      domain.FieldValue `json:"value_a"`
	SourceB     domain.Source     `json:"source_b"`
	ValueB      domain.FieldValue `json:"value_b"`
	Severity    Severity          `json:"severity"`
	PercentDiff float64           `json:"percent_diff,omitempty"`
	Status      Status            `json:"status"`

	ResolvedValue  domain.FieldValue `json:"resolved_value,omitempty"`
	ResolvedSource domain.Source     `json:"resolved_source,omitempty"`
	ResolutionRule string            `json:"resolution_rule,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	ResolvedBy     string            `json:"resolved_by,omitempty"`

	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Transition moves the record to a new status, enforcing the state
// machine. Timestamps and actor are the caller's to fill.
func (c *ConflictRecord) Transition(to Status) error {
	if !CanTransition(c.Status, to) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"conflict %s cannot move %s -> %s", c.ID, c.Status, to)
	}
	c.Status = to
	return nil
}

// Recommendation summarizes what a reconciliation run wants from its
// reader.
type Recommendation string

const (
	RecommendationConsistent    Recommendation = "consistent"
	RecommendationInformational Recommendation = "informational"
	RecommendationReview        Recommendation = "review"
	RecommendationHumanReview   Recommendation = "human_review_required"
)

// Result is the outcome of reconciling one prospect.
type Result struct {
	ProspectID     domain.ProspectID
	Conflicts      []*ConflictRecord
	Resolved       map[string]domain.FieldValue
	Recommendation Recommendation
}

// Recommend derives the recommendation from the conflict mix. Critical
// conflicts force human review no matter how they resolved.
func Recommend(conflicts []*ConflictRecord) Recommendation {
	if len(conflicts) == 0 {
		return RecommendationConsistent
	}
	hasCritical := false
	hasEscalated := false
	for _, c := range conflicts {
		if c.Severity == SeverityCritical {
			hasCritical = true
		}
		if c.Status == StatusEscalated {
			hasEscalated = true
		}
	}
	switch {
	case hasCritical:
		return RecommendationHumanReview
	case hasEscalated:
		return RecommendationReview
	default:
		return RecommendationInformational
	}
}
