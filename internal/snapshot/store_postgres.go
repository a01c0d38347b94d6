package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"draftline/pkg/platform/sentinel"
)

// PostgresMetadataStore persists snapshot metadata. The primary key on
// id is what makes snapshot creation single-writer per day.
type PostgresMetadataStore struct {
	db *sql.DB
}

func NewPostgresMetadataStore(db *sql.DB) *PostgresMetadataStore {
	return &PostgresMetadataStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const metadataColumns = `
	id, date, state, record_count, changed_count, size_bytes,
	compressed_bytes, checksum, location, created_at, updated_at
`

func (s *PostgresMetadataStore) Create(ctx context.Context, meta *Metadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (`+metadataColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		meta.ID, meta.Date, string(meta.State), meta.RecordCount, meta.ChangedCount,
		meta.SizeBytes, meta.CompressedBytes, meta.Checksum, meta.Location,
		meta.CreatedAt, meta.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert snapshot metadata: %w", err)
	}
	return nil
}

func (s *PostgresMetadataStore) Update(ctx context.Context, meta *Metadata) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE snapshots SET
			state = $2, record_count = $3, changed_count = $4, size_bytes = $5,
			compressed_bytes = $6, checksum = $7, location = $8, updated_at = $9
		WHERE id = $1
	`,
		meta.ID, string(meta.State), meta.RecordCount, meta.ChangedCount,
		meta.SizeBytes, meta.CompressedBytes, meta.Checksum, meta.Location,
		meta.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update snapshot metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update snapshot metadata: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresMetadataStore) FindByID(ctx context.Context, id string) (*Metadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+metadataColumns+` FROM snapshots WHERE id = $1
	`, id)
	meta, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return meta, err
}

func (s *PostgresMetadataStore) List(ctx context.Context) ([]*Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metadataColumns+` FROM snapshots ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	return scanMetadataRows(rows)
}

func (s *PostgresMetadataStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+metadataColumns+` FROM snapshots
		WHERE state <> $1 AND date < $2
		ORDER BY date ASC
	`, string(StateArchived), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list old snapshots: %w", err)
	}
	defer rows.Close()
	return scanMetadataRows(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*Metadata, error) {
	var meta Metadata
	var state string
	err := row.Scan(
		&meta.ID, &meta.Date, &state, &meta.RecordCount, &meta.ChangedCount,
		&meta.SizeBytes, &meta.CompressedBytes, &meta.Checksum, &meta.Location,
		&meta.CreatedAt, &meta.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	meta.State = State(state)
	return &meta, nil
}

func scanMetadataRows(rows *sql.Rows) ([]*Metadata, error) {
	var out []*Metadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot metadata: %w", err)
		}
		out = append(out, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot metadata: %w", err)
	}
	return out, nil
}
