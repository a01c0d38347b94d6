// Package staging holds each source's raw view of each prospect, exactly
// as the acquisition layer delivered it. Rows are immutable: a new
// extraction supersedes, never updates.
package staging

import (
	"time"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
)

// StagedRecord is one source's raw view of one prospect at one
// extraction. Fields carry source-native scales; RawScale records the
// grade scale the source reported on so lineage stays self-describing.
type StagedRecord struct {
	ExtractionID domain.ExtractionID          `json:"extraction_id"`
	Source       domain.Source                `json:"source"`
	NativeID     string                       `json:"native_id"`
	Fields       map[string]domain.FieldValue `json:"fields"`
	RawScale     string                       `json:"raw_scale"`
	ScrapedAt    time.Time                    `json:"scraped_at"`
}

// RowRef identifies a staged row in failure records and lineage entries.
func (r *StagedRecord) RowRef() string {
	return string(r.ExtractionID) + "/" + string(r.Source) + "/" + r.NativeID
}

// Validate enforces the structural minimum the staging area accepts.
// Field-level validation belongs to the per-source transformers.
func (r *StagedRecord) Validate() error {
	if r.ExtractionID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "extraction id is required")
	}
	if !r.Source.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "source is missing or unknown")
	}
	if r.NativeID == "" {
		return dErrors.New(dErrors.CodeValidation, "native id is required")
	}
	return nil
}
