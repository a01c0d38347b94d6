package canonical

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
	txcontext "draftline/pkg/platform/tx"
)

// PostgresStore persists prospects in PostgreSQL. The identity-cluster
// invariant is enforced by a unique index on identity_key; concurrent
// creates for the same cluster surface as sentinel.ErrConflict and the
// matcher retries as a lookup.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nativeColumns maps sources onto their prospects-table columns. Adding
// a source means adding a column here and in the schema.
var nativeColumns = map[domain.Source]string{
	domain.SourceNFL:  "nfl_id",
	domain.SourceESPN: "espn_id",
	domain.SourceCBS:  "cbs_id",
}

func (s *PostgresStore) Create(ctx context.Context, p *Prospect) error {
	query := `
		INSERT INTO prospects (
			id, first_name, last_name, position, college, identity_key,
			nfl_id, espn_id, cbs_id, status, quality_score, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.FirstName,
		p.LastName,
		string(p.Position),
		p.College,
		p.IdentityKey(),
		nullable(p.NativeIDs[domain.SourceNFL]),
		nullable(p.NativeIDs[domain.SourceESPN]),
		nullable(p.NativeIDs[domain.SourceCBS]),
		string(p.Status),
		p.QualityScore,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert prospect: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Prospect) error {
	query := `
		UPDATE prospects
		SET first_name = $2, last_name = $3, position = $4, college = $5,
			identity_key = $6, nfl_id = $7, espn_id = $8, cbs_id = $9,
			status = $10, quality_score = $11, updated_at = $12
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.FirstName,
		p.LastName,
		string(p.Position),
		p.College,
		p.IdentityKey(),
		nullable(p.NativeIDs[domain.SourceNFL]),
		nullable(p.NativeIDs[domain.SourceESPN]),
		nullable(p.NativeIDs[domain.SourceCBS]),
		string(p.Status),
		p.QualityScore,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update prospect: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update prospect rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const prospectColumns = `
	id, first_name, last_name, position, college,
	nfl_id, espn_id, cbs_id, status, quality_score, created_at, updated_at
`

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProspectID) (*Prospect, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, uuid.UUID(id))
	return scanProspect(row)
}

func (s *PostgresStore) FindByNativeID(ctx context.Context, source domain.Source, nativeID string) (*Prospect, error) {
	col, ok := nativeColumns[source]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE `+col+` = $1`, nativeID)
	return scanProspect(row)
}

func (s *PostgresStore) FindByIdentityKey(ctx context.Context, key string) (*Prospect, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE identity_key = $1`, key)
	return scanProspect(row)
}

func (s *PostgresStore) BindNativeID(ctx context.Context, id domain.ProspectID, source domain.Source, nativeID string) error {
	col, ok := nativeColumns[source]
	if !ok {
		return fmt.Errorf("no native id column for source %q", source)
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE prospects SET `+col+` = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(id), nativeID, time.Now())
	if err != nil {
		return fmt.Errorf("bind native id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind native id rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByPosition(ctx context.Context, position domain.Position) ([]*Prospect, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE position = $1`, string(position))
	if err != nil {
		return nil, fmt.Errorf("query prospects by position: %w", err)
	}
	defer rows.Close()
	return scanProspects(rows)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Prospect, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("query prospects: %w", err)
	}
	defer rows.Close()
	return scanProspects(rows)
}

func (s *PostgresStore) CountDuplicateIdentityClusters(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT identity_key FROM prospects GROUP BY identity_key HAVING COUNT(*) > 1
		) dup
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count duplicate clusters: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProspect(row rowScanner) (*Prospect, error) {
	var (
		p                    Prospect
		id                   uuid.UUID
		position, status     string
		nflID, espnID, cbsID sql.NullString
	)
	err := row.Scan(
		&id, &p.FirstName, &p.LastName, &position, &p.College,
		&nflID, &espnID, &cbsID, &status, &p.QualityScore, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prospect: %w", err)
	}
	p.ID = domain.ProspectID(id)
	p.Position = domain.Position(position)
	p.Status = ProspectStatus(status)
	p.NativeIDs = make(map[domain.Source]string)
	if nflID.Valid {
		p.NativeIDs[domain.SourceNFL] = nflID.String
	}
	if espnID.Valid {
		p.NativeIDs[domain.SourceESPN] = espnID.String
	}
	if cbsID.Valid {
		p.NativeIDs[domain.SourceCBS] = cbsID.String
	}
	return &p, nil
}

func scanProspects(rows *sql.Rows) ([]*Prospect, error) {
	var out []*Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prospects: %w", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// PostgresSourceValueStore persists per-source current field values.
type PostgresSourceValueStore struct {
	db *sql.DB
}

func NewPostgresSourceValueStore(db *sql.DB) *PostgresSourceValueStore {
	return &PostgresSourceValueStore{db: db}
}

func (s *PostgresSourceValueStore) Upsert(ctx context.Context, id domain.ProspectID, source domain.Source, field string, value domain.FieldValue, at time.Time) (domain.FieldValue, bool, error) {
	var (
		prevKind sql.NullString
		prevRaw  sql.NullString
	)
	// Returning the old value from the upsert keeps read-then-write
	// atomic without an explicit transaction.
	query := `
		INSERT INTO source_values (prospect_id, source, field, kind, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (prospect_id, source, field) DO UPDATE
		SET kind = EXCLUDED.kind, value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		RETURNING (SELECT kind FROM source_values old
			WHERE old.prospect_id = $1 AND old.source = $2 AND old.field = $3),
			(SELECT value FROM source_values old
			WHERE old.prospect_id = $1 AND old.source = $2 AND old.field = $3)
	`
	err := s.db.QueryRowContext(ctx, query,
		uuid.UUID(id), string(source), field, string(value.Kind()), value.String(), at,
	).Scan(&prevKind, &prevRaw)
	if err != nil {
		return domain.FieldValue{}, false, fmt.Errorf("upsert source value: %w", err)
	}
	if !prevKind.Valid {
		return domain.FieldValue{}, false, nil
	}
	prev, err := domain.ParseFieldValue(domain.ValueKind(prevKind.String), prevRaw.String)
	if err != nil {
		return domain.FieldValue{}, false, fmt.Errorf("decode previous value: %w", err)
	}
	return prev, true, nil
}

func (s *PostgresSourceValueStore) Get(ctx context.Context, id domain.ProspectID, source domain.Source, field string) (domain.FieldValue, error) {
	var kind, raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, value FROM source_values
		WHERE prospect_id = $1 AND source = $2 AND field = $3
	`, uuid.UUID(id), string(source), field).Scan(&kind, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FieldValue{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.FieldValue{}, fmt.Errorf("get source value: %w", err)
	}
	return domain.ParseFieldValue(domain.ValueKind(kind), raw)
}

func (s *PostgresSourceValueStore) ViewsByProspect(ctx context.Context, id domain.ProspectID) (map[domain.Source]map[string]domain.FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, field, kind, value FROM source_values WHERE prospect_id = $1
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("query source views: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Source]map[string]domain.FieldValue)
	for rows.Next() {
		var source, field, kind, raw string
		if err := rows.Scan(&source, &field, &kind, &raw); err != nil {
			return nil, fmt.Errorf("scan source value: %w", err)
		}
		v, err := domain.ParseFieldValue(domain.ValueKind(kind), raw)
		if err != nil {
			return nil, err
		}
		src := domain.Source(source)
		if out[src] == nil {
			out[src] = make(map[string]domain.FieldValue)
		}
		out[src][field] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source views: %w", err)
	}
	return out, nil
}

func (s *PostgresSourceValueStore) CohortValues(ctx context.Context, position domain.Position, source domain.Source, field string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sv.kind, sv.value
		FROM source_values sv
		JOIN prospects p ON p.id = sv.prospect_id
		WHERE p.position = $1 AND sv.source = $2 AND sv.field = $3
	`, string(position), string(source), field)
	if err != nil {
		return nil, fmt.Errorf("query cohort values: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var kind, raw string
		if err := rows.Scan(&kind, &raw); err != nil {
			return nil, fmt.Errorf("scan cohort value: %w", err)
		}
		v, err := domain.ParseFieldValue(domain.ValueKind(kind), raw)
		if err != nil {
			return nil, err
		}
		if f, numeric := v.AsFloat(); numeric {
			out = append(out, f)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cohort values: %w", err)
	}
	return out, nil
}

func (s *PostgresSourceValueStore) AllValues(ctx context.Context, source domain.Source, field string) (map[domain.ProspectID]domain.FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prospect_id, kind, value FROM source_values
		WHERE source = $1 AND field = $2
	`, string(source), field)
	if err != nil {
		return nil, fmt.Errorf("query source field values: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ProspectID]domain.FieldValue)
	for rows.Next() {
		var (
			id        uuid.UUID
			kind, raw string
		)
		if err := rows.Scan(&id, &kind, &raw); err != nil {
			return nil, fmt.Errorf("scan source field value: %w", err)
		}
		v, err := domain.ParseFieldValue(domain.ValueKind(kind), raw)
		if err != nil {
			return nil, err
		}
		out[domain.ProspectID(id)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source field values: %w", err)
	}
	return out, nil
}

func (s *PostgresSourceValueStore) SourcesWithField(ctx context.Context, id domain.ProspectID, field string) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source FROM source_values WHERE prospect_id = $1 AND field = $2
	`, uuid.UUID(id), field)
	if err != nil {
		return nil, fmt.Errorf("query sources with field: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, domain.Source(source))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

// PostgresResolvedValueStore persists post-reconciliation values.
type PostgresResolvedValueStore struct {
	db *sql.DB
}

func NewPostgresResolvedValueStore(db *sql.DB) *PostgresResolvedValueStore {
	return &PostgresResolvedValueStore{db: db}
}

func (s *PostgresResolvedValueStore) Upsert(ctx context.Context, id domain.ProspectID, field string, value domain.FieldValue, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolved_values (prospect_id, field, kind, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (prospect_id, field) DO UPDATE
		SET kind = EXCLUDED.kind, value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, uuid.UUID(id), field, string(value.Kind()), value.String(), at)
	if err != nil {
		return fmt.Errorf("upsert resolved value: %w", err)
	}
	return nil
}

func (s *PostgresResolvedValueStore) ByProspect(ctx context.Context, id domain.ProspectID) (map[string]domain.FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field, kind, value FROM resolved_values WHERE prospect_id = $1
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("query resolved values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.FieldValue)
	for rows.Next() {
		var field, kind, raw string
		if err := rows.Scan(&field, &kind, &raw); err != nil {
			return nil, fmt.Errorf("scan resolved value: %w", err)
		}
		v, err := domain.ParseFieldValue(domain.ValueKind(kind), raw)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolved values: %w", err)
	}
	return out, nil
}
