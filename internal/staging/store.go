package staging

import (
	"context"

	"draftline/pkg/domain"
)

// Store persists staged records. Inserts are idempotent on the
// (extraction, source, native id) key: acquisition guarantees
// at-least-once delivery, so re-delivery of the same row is a no-op.
type Store interface {
	Insert(ctx context.Context, record *StagedRecord) error
	ListByExtraction(ctx context.Context, extractionID domain.ExtractionID, source domain.Source) ([]*StagedRecord, error)
	// Extractions lists distinct extraction ids present, newest first.
	Extractions(ctx context.Context) ([]domain.ExtractionID, error)
}
