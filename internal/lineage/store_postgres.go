package lineage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"draftline/pkg/domain"
	txcontext "draftline/pkg/platform/tx"
)

// PostgresStore persists ledger entries. Every Append writes the entry
// and its outbox row in one transaction, so the outbox worker can
// mirror the entry to Kafka without dual-write races.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const entryColumns = `
	id, entity_type, entity_id, field, value, previous_value,
	extraction_id, source, source_row_ref, rule_id, rule_logic,
	conflict, conflict_with, resolution_rule, actor, reason, created_at
`

// Append inserts a ledger entry plus its outbox row, atomically.
// Idempotent on entry id via ON CONFLICT DO NOTHING; the outbox row is
// skipped when the entry was a duplicate. When the caller already
// carries a transaction in context both inserts join it; otherwise
// Append opens its own.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if _, ok := txcontext.From(ctx); ok {
		return s.append(ctx, entry)
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lineage append: %w", err)
	}
	if err := s.append(txcontext.WithTx(ctx, dbtx), entry); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit lineage append: %w", err)
	}
	return nil
}

func (s *PostgresStore) append(ctx context.Context, entry Entry) error {
	valueJSON, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("marshal lineage value: %w", err)
	}
	prevJSON, err := json.Marshal(entry.PreviousValue)
	if err != nil {
		return fmt.Errorf("marshal lineage previous value: %w", err)
	}
	var conflictWith []byte
	if entry.ConflictWith != nil {
		conflictWith, err = json.Marshal(entry.ConflictWith)
		if err != nil {
			return fmt.Errorf("marshal conflict sources: %w", err)
		}
	}

	query := `
		INSERT INTO lineage_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		entry.EntityType,
		entry.EntityID,
		entry.Field,
		valueJSON,
		prevJSON,
		string(entry.ExtractionID),
		string(entry.Source),
		entry.SourceRowRef,
		entry.RuleID,
		entry.RuleLogic,
		entry.Conflict,
		conflictWith,
		entry.ResolutionRule,
		entry.Actor,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lineage entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	outbox := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, outbox,
		uuid.New(),
		entry.EntityType,
		entry.EntityID,
		"lineage.appended",
		payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, entityType, entityID, field string) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM lineage_entries
		WHERE entity_type = $1 AND entity_id = $2
	`
	args := []any{entityType, entityID}
	if field != "" {
		query += ` AND field = $3`
		args = append(args, field)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lineage history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) ConflictsForField(ctx context.Context, entityType, field string) ([]Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM lineage_entries
		WHERE entity_type = $1 AND field = $2 AND conflict = TRUE
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, entityType, field)
	if err != nil {
		return nil, fmt.Errorf("query lineage conflicts: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry

	for rows.Next() {
		var (
			entry        Entry
			entryID      uuid.UUID
			valueJSON    []byte
			prevJSON     []byte
			conflictWith []byte
			extractionID string
			source       string
		)

		err := rows.Scan(
			&entryID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Field,
			&valueJSON,
			&prevJSON,
			&extractionID,
			&source,
			&entry.SourceRowRef,
			&entry.RuleID,
			&entry.RuleLogic,
			&entry.Conflict,
			&conflictWith,
			&entry.ResolutionRule,
			&entry.Actor,
			&entry.Reason,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lineage entry: %w", err)
		}

		entry.ID = domain.LineageID(entryID)
		entry.ExtractionID = domain.ExtractionID(extractionID)
		entry.Source = domain.Source(source)
		if err := json.Unmarshal(valueJSON, &entry.Value); err != nil {
			return nil, fmt.Errorf("decode lineage value: %w", err)
		}
		if err := json.Unmarshal(prevJSON, &entry.PreviousValue); err != nil {
			return nil, fmt.Errorf("decode lineage previous value: %w", err)
		}
		if len(conflictWith) > 0 {
			if err := json.Unmarshal(conflictWith, &entry.ConflictWith); err != nil {
				return nil, fmt.Errorf("decode conflict sources: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lineage entries: %w", err)
	}

	return entries, nil
}
