package quality

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
	txcontext "draftline/pkg/platform/tx"
)

// PostgresReportStore persists reports as a row per extraction with the
// full report body as jsonb. Reports are read back whole, so a document
// column beats seventeen check columns.
type PostgresReportStore struct {
	db *sql.DB
}

func NewPostgresReportStore(db *sql.DB) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

func (s *PostgresReportStore) execer(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresReportStore) Save(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal quality report: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO quality_reports (extraction_id, status, report, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (extraction_id) DO UPDATE SET
			status = EXCLUDED.status,
			report = EXCLUDED.report,
			generated_at = EXCLUDED.generated_at
	`, report.ExtractionID.String(), string(report.Status), body, report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save quality report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) FindByExtraction(ctx context.Context, extractionID domain.ExtractionID) (*Report, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT report FROM quality_reports WHERE extraction_id = $1
	`, extractionID.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find quality report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("unmarshal quality report: %w", err)
	}
	return &report, nil
}

// PostgresMetricStore persists one row per (date, name, position,
// source) measurement.
type PostgresMetricStore struct {
	db *sql.DB
}

func NewPostgresMetricStore(db *sql.DB) *PostgresMetricStore {
	return &PostgresMetricStore{db: db}
}

func (s *PostgresMetricStore) Record(ctx context.Context, metric Metric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_metrics (date, position, source, name, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date, position, source, name) DO UPDATE SET value = EXCLUDED.value
	`, metric.Date, metric.Position.String(), metric.Source.String(), metric.Name, metric.Value)
	if err != nil {
		return fmt.Errorf("record quality metric: %w", err)
	}
	return nil
}

func (s *PostgresMetricStore) Series(ctx context.Context, name string, position domain.Position, source domain.Source, from, to time.Time) ([]Metric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, position, source, name, value
		FROM quality_metrics
		WHERE name = $1 AND position = $2 AND source = $3
		  AND date BETWEEN $4 AND $5
		ORDER BY date ASC
	`, name, position.String(), source.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query quality metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		var pos, src string
		if err := rows.Scan(&m.Date, &pos, &src, &m.Name, &m.Value); err != nil {
			return nil, fmt.Errorf("scan quality metric: %w", err)
		}
		m.Position = domain.Position(pos)
		m.Source = domain.Source(src)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quality metrics: %w", err)
	}
	return out, nil
}
