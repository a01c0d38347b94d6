package snapshot

import (
	"context"
	"time"
)

// MetadataStore persists snapshot metadata. The id doubles as the
// one-snapshot-per-day lock: Create must fail on a duplicate id.
//
// Errors: Create returns sentinel.ErrConflict for a duplicate id;
// FindByID returns sentinel.ErrNotFound.
type MetadataStore interface {
	Create(ctx context.Context, meta *Metadata) error
	Update(ctx context.Context, meta *Metadata) error
	FindByID(ctx context.Context, id string) (*Metadata, error)
	// List returns all metadata ordered by date ascending.
	List(ctx context.Context) ([]*Metadata, error)
	// ListOlderThan returns non-archived snapshots dated before cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*Metadata, error)
}
