package reconcile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
	txcontext "draftline/pkg/platform/tx"
)

// PostgresStore persists conflict records in PostgreSQL.
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

const conflictColumns = `
	id, prospect_id, field, source_a, value_a, source_b, value_b,
	severity, percent_diff, status, resolved_value, resolved_source,
	resolution_rule, notes, resolved_by, detected_at, resolved_at
`

func (s *PostgresStore) Save(ctx context.Context, c *ConflictRecord) error {
	valueA, err := json.Marshal(c.ValueA)
	if err != nil {
		return fmt.Errorf("marshal conflict value a: %w", err)
	}
	valueB, err := json.Marshal(c.ValueB)
	if err != nil {
		return fmt.Errorf("marshal conflict value b: %w", err)
	}
	var resolvedValue []byte
	if c.Status == StatusResolvedAutomatic || c.Status == StatusResolvedManual {
		resolvedValue, err = json.Marshal(c.ResolvedValue)
		if err != nil {
			return fmt.Errorf("marshal resolved value: %w", err)
		}
	}

	query := `
		INSERT INTO conflicts (` + conflictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			percent_diff = EXCLUDED.percent_diff,
			status = EXCLUDED.status,
			resolved_value = EXCLUDED.resolved_value,
			resolved_source = EXCLUDED.resolved_source,
			resolution_rule = EXCLUDED.resolution_rule,
			notes = EXCLUDED.notes,
			resolved_by = EXCLUDED.resolved_by,
			resolved_at = EXCLUDED.resolved_at
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.ProspectID),
		c.Field,
		string(c.SourceA),
		valueA,
		string(c.SourceB),
		valueB,
		string(c.Severity),
		c.PercentDiff,
		string(c.Status),
		resolvedValue,
		nullableString(string(c.ResolvedSource)),
		nullableString(c.ResolutionRule),
		nullableString(c.Notes),
		nullableString(c.ResolvedBy),
		c.DetectedAt,
		c.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("save conflict: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ConflictID) (*ConflictRecord, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(id))
	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) FindByPair(ctx context.Context, prospectID domain.ProspectID, field string, a, b domain.Source) (*ConflictRecord, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE prospect_id = $1 AND field = $2
		  AND ((source_a = $3 AND source_b = $4) OR (source_a = $4 AND source_b = $3))
		ORDER BY detected_at DESC
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(prospectID), field, string(a), string(b))
	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) ListByProspect(ctx context.Context, prospectID domain.ProspectID) ([]*ConflictRecord, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE prospect_id = $1
		ORDER BY detected_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(prospectID))
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]*ConflictRecord, error) {
	query := `
		SELECT ` + conflictColumns + `
		FROM conflicts
		WHERE status = $1
		ORDER BY detected_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query conflicts by status: %w", err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*ConflictRecord, error) {
	var (
		c              ConflictRecord
		conflictID     uuid.UUID
		prospectID     uuid.UUID
		sourceA        string
		sourceB        string
		valueA         []byte
		valueB         []byte
		severity       string
		status         string
		resolvedValue  []byte
		resolvedSource sql.NullString
		resolutionRule sql.NullString
		notes          sql.NullString
		resolvedBy     sql.NullString
	)

	err := row.Scan(
		&conflictID,
		&prospectID,
		&c.Field,
		&sourceA,
		&valueA,
		&sourceB,
		&valueB,
		&severity,
		&c.PercentDiff,
		&status,
		&resolvedValue,
		&resolvedSource,
		&resolutionRule,
		&notes,
		&resolvedBy,
		&c.DetectedAt,
		&c.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID = domain.ConflictID(conflictID)
	c.ProspectID = domain.ProspectID(prospectID)
	c.SourceA = domain.Source(sourceA)
	c.SourceB = domain.Source(sourceB)
	c.Severity = Severity(severity)
	c.Status = Status(status)
	c.ResolvedSource = domain.Source(resolvedSource.String)
	c.ResolutionRule = resolutionRule.String
	c.Notes = notes.String
	c.ResolvedBy = resolvedBy.String

	if err := json.Unmarshal(valueA, &c.ValueA); err != nil {
		return nil, fmt.Errorf("decode conflict value a: %w", err)
	}
	if err := json.Unmarshal(valueB, &c.ValueB); err != nil {
		return nil, fmt.Errorf("decode conflict value b: %w", err)
	}
	if len(resolvedValue) > 0 {
		if err := json.Unmarshal(resolvedValue, &c.ResolvedValue); err != nil {
			return nil, fmt.Errorf("decode resolved value: %w", err)
		}
	}
	return &c, nil
}

func scanConflicts(rows *sql.Rows) ([]*ConflictRecord, error) {
	var out []*ConflictRecord
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
