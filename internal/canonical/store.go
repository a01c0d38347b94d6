package canonical

import (
	"context"
	"time"

	"draftline/pkg/domain"
)

// Stores are interface-driven to keep the domain logic testable and to
// allow swapping in-memory and Postgres persistence without rewiring
// business code.

// Store persists canonical prospects.
type Store interface {
	// Create inserts a prospect, enforcing identity-cluster uniqueness.
	// Returns sentinel.ErrConflict when the cluster already exists.
	Create(ctx context.Context, p *Prospect) error
	Update(ctx context.Context, p *Prospect) error
	FindByID(ctx context.Context, id domain.ProspectID) (*Prospect, error)
	// FindByNativeID resolves a source-native id to its bound prospect.
	FindByNativeID(ctx context.Context, source domain.Source, nativeID string) (*Prospect, error)
	// FindByIdentityKey resolves an identity cluster key to its prospect.
	FindByIdentityKey(ctx context.Context, key string) (*Prospect, error)
	// BindNativeID writes a native id onto an existing prospect so the
	// next match for that id is an O(1) lookup.
	BindNativeID(ctx context.Context, id domain.ProspectID, source domain.Source, nativeID string) error
	ListByPosition(ctx context.Context, position domain.Position) ([]*Prospect, error)
	List(ctx context.Context) ([]*Prospect, error)
	// CountDuplicateIdentityClusters reports how many cluster keys map to
	// more than one prospect. The quality validator requires zero.
	CountDuplicateIdentityClusters(ctx context.Context) (int, error)
}

// SourceValueStore persists each source's current view of each field,
// post-normalization. One row per (prospect, source, field).
type SourceValueStore interface {
	// Upsert writes the current value and returns the value it replaced.
	Upsert(ctx context.Context, id domain.ProspectID, source domain.Source, field string, value domain.FieldValue, at time.Time) (previous domain.FieldValue, hadPrevious bool, err error)
	Get(ctx context.Context, id domain.ProspectID, source domain.Source, field string) (domain.FieldValue, error)
	// ViewsByProspect returns every source's current field map for one
	// prospect, the reconciliation engine's input shape.
	ViewsByProspect(ctx context.Context, id domain.ProspectID) (map[domain.Source]map[string]domain.FieldValue, error)
	// CohortValues returns the current numeric values of a field across
	// all prospects sharing a position, for one source. Non-numeric
	// values are skipped.
	CohortValues(ctx context.Context, position domain.Position, source domain.Source, field string) ([]float64, error)
	// AllValues returns every (prospect, value) pair for a (source,
	// field), for table-level bounds checks.
	AllValues(ctx context.Context, source domain.Source, field string) (map[domain.ProspectID]domain.FieldValue, error)
	// SourcesWithField lists the sources currently holding a value for
	// (prospect, field); the completeness check uses this.
	SourcesWithField(ctx context.Context, id domain.ProspectID, field string) ([]domain.Source, error)
}

// ResolvedValueStore persists the post-reconciliation canonical value per
// (prospect, field). Snapshots capture these.
type ResolvedValueStore interface {
	Upsert(ctx context.Context, id domain.ProspectID, field string, value domain.FieldValue, at time.Time) error
	ByProspect(ctx context.Context, id domain.ProspectID) (map[string]domain.FieldValue, error)
}
