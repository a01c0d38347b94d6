package reconcile

import (
	"context"

	"draftline/pkg/domain"
)

// Store persists conflict records.
type Store interface {
	// Save inserts or updates a conflict record.
	Save(ctx context.Context, c *ConflictRecord) error
	FindByID(ctx context.Context, id domain.ConflictID) (*ConflictRecord, error)
	// FindByPair returns the most recent conflict for one (prospect,
	// field, source pair), regardless of pair order.
	FindByPair(ctx context.Context, prospectID domain.ProspectID, field string, a, b domain.Source) (*ConflictRecord, error)
	ListByProspect(ctx context.Context, prospectID domain.ProspectID) ([]*ConflictRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]*ConflictRecord, error)
}
