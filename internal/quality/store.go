package quality

import (
	"context"
	"time"

	"draftline/pkg/domain"
)

// ReportStore persists quality reports, one per extraction. Saving a
// report for an extraction that already has one replaces it.
//
// Errors: FindByExtraction returns sentinel.ErrNotFound when no report
// exists for the extraction.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
	FindByExtraction(ctx context.Context, extractionID domain.ExtractionID) (*Report, error)
}

// MetricStore persists daily quality metrics for trend queries.
type MetricStore interface {
	Record(ctx context.Context, metric Metric) error
	// Series returns metrics with the given name whose date falls in
	// [from, to], ordered by date ascending. Zero position and source
	// match only metrics without those dimensions.
	Series(ctx context.Context, name string, position domain.Position, source domain.Source, from, to time.Time) ([]Metric, error)
}
