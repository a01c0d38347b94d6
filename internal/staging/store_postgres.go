package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"draftline/pkg/domain"
)

// PostgresStore persists staged rows. The primary key (extraction_id,
// source, native_id) plus ON CONFLICT DO NOTHING makes re-delivery of
// the same extraction row a no-op.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, record *StagedRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("marshal staged fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staged_records (extraction_id, source, native_id, fields, raw_scale, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (extraction_id, source, native_id) DO NOTHING
	`, string(record.ExtractionID), string(record.Source), record.NativeID, fields, record.RawScale, record.ScrapedAt)
	if err != nil {
		return fmt.Errorf("insert staged record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByExtraction(ctx context.Context, extractionID domain.ExtractionID, source domain.Source) ([]*StagedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT extraction_id, source, native_id, fields, raw_scale, scraped_at
		FROM staged_records
		WHERE extraction_id = $1 AND source = $2
		ORDER BY native_id
	`, string(extractionID), string(source))
	if err != nil {
		return nil, fmt.Errorf("query staged records: %w", err)
	}
	defer rows.Close()

	var out []*StagedRecord
	for rows.Next() {
		var (
			r         StagedRecord
			ext, src  string
			fieldsRaw []byte
		)
		if err := rows.Scan(&ext, &src, &r.NativeID, &fieldsRaw, &r.RawScale, &r.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan staged record: %w", err)
		}
		r.ExtractionID = domain.ExtractionID(ext)
		r.Source = domain.Source(src)
		if err := json.Unmarshal(fieldsRaw, &r.Fields); err != nil {
			return nil, fmt.Errorf("decode staged fields: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staged records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Extractions(ctx context.Context) ([]domain.ExtractionID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT extraction_id FROM staged_records
		GROUP BY extraction_id
		ORDER BY MAX(scraped_at) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer rows.Close()

	var out []domain.ExtractionID
	for rows.Next() {
		var ext string
		if err := rows.Scan(&ext); err != nil {
			return nil, fmt.Errorf("scan extraction id: %w", err)
		}
		out = append(out, domain.ExtractionID(ext))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return out, nil
}
