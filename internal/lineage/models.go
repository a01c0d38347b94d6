// Package lineage is the append-only ledger of every field value this
// service ever produced, with full source and transformation
// attribution. Entries are never updated or deleted; history is the
// ordered read of all entries for an (entity, field).
package lineage

import (
	"time"

	"draftline/pkg/domain"
)

// EntityTypeProspect is the only entity type the core currently tracks;
// the ledger schema is deliberately entity-agnostic.
const EntityTypeProspect = "prospect"

// ActorSystem marks entries produced by the pipeline rather than an
// operator.
const ActorSystem = "system"

// Entry is one persisted field change. Keep it wide enough that "who
// said what, when, and why was it chosen" never needs a join beyond the
// entity id.
type Entry struct {
	ID             domain.LineageID         `json:"id"`
	EntityType     string                   `json:"entity_type"`
	EntityID       string                   `json:"entity_id"`
	Field          string                   `json:"field"`
	Value          domain.FieldValue        `json:"value"`
	PreviousValue  domain.FieldValue        `json:"previous_value"`
	ExtractionID   domain.ExtractionID      `json:"extraction_id"`
	Source         domain.Source            `json:"source"`
	SourceRowRef   string                   `json:"source_row_ref"`
	RuleID         string                   `json:"rule_id"`
	RuleLogic      string                   `json:"rule_logic"`
	Conflict       bool                     `json:"conflict"`
	ConflictWith   map[domain.Source]string `json:"conflict_with,omitempty"`
	ResolutionRule string                   `json:"resolution_rule,omitempty"`
	Actor          string                   `json:"actor"`
	Reason         string                   `json:"reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// BatchResult reports the outcome of one entry in a batch append.
// Partial batches commit what succeeded.
type BatchResult struct {
	Index int
	ID    domain.LineageID
	Err   error
}
