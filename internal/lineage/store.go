package lineage

import "context"

// Store persists ledger entries. Append-only: implementations expose no
// update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// History returns entries for an (entity, field) ordered by time
	// ascending. Empty field means all fields.
	History(ctx context.Context, entityType, entityID, field string) ([]Entry, error)
	// ConflictsForField returns conflict-flagged entries for a field
	// across all entities of a type, newest first.
	ConflictsForField(ctx context.Context, entityType, field string) ([]Entry, error)
}
