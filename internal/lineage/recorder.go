package lineage

import (
	"context"

	"github.com/google/uuid"

	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/requestcontext"
)

// Recorder is the write path into the ledger. Callers hand it a
// partially filled Entry; it assigns the id and timestamp, validates
// the attribution fields, and persists. Append failures propagate so
// the caller can fail the row that produced the entry.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record validates and persists one entry, returning its assigned id.
// Entries with a missing entity type, entity id, or field name are
// rejected before any write.
func (r *Recorder) Record(ctx context.Context, entry Entry) (domain.LineageID, error) {
	if err := validateEntry(entry); err != nil {
		return domain.LineageID{}, err
	}
	entry.ID = domain.LineageID(uuid.New())
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.Actor == "" {
		entry.Actor = ActorSystem
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return domain.LineageID{}, dErrors.Wrap(err, dErrors.CodeInternal, "append lineage entry")
	}
	return entry.ID, nil
}

// RecordBatch persists entries independently. A failed entry does not
// roll back the ones already written; each result carries the per-entry
// outcome.
func (r *Recorder) RecordBatch(ctx context.Context, entries []Entry) []BatchResult {
	results := make([]BatchResult, len(entries))
	for i, entry := range entries {
		id, err := r.Record(ctx, entry)
		results[i] = BatchResult{Index: i, ID: id, Err: err}
	}
	return results
}

// History reads the ordered ledger for an entity; field narrows to one
// field when non-empty.
func (r *Recorder) History(ctx context.Context, entityType, entityID, field string) ([]Entry, error) {
	if entityType == "" || entityID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity type and id are required")
	}
	entries, err := r.store.History(ctx, entityType, entityID, field)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read lineage history")
	}
	return entries, nil
}

// Conflicts lists conflict-flagged entries for a field across all
// entities of a type, newest first.
func (r *Recorder) Conflicts(ctx context.Context, entityType, field string) ([]Entry, error) {
	if entityType == "" || field == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity type and field are required")
	}
	entries, err := r.store.ConflictsForField(ctx, entityType, field)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read lineage conflicts")
	}
	return entries, nil
}

func validateEntry(entry Entry) error {
	switch {
	case entry.EntityType == "":
		return dErrors.New(dErrors.CodeValidation, "lineage entry missing entity type")
	case entry.EntityID == "":
		return dErrors.New(dErrors.CodeValidation, "lineage entry missing entity id")
	case entry.Field == "":
		return dErrors.New(dErrors.CodeValidation, "lineage entry missing field name")
	}
	return nil
}
