package lineage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OutboxRelay drains the outbox table into Kafka. It claims rows with
// FOR UPDATE SKIP LOCKED so multiple replicas can run the relay without
// double-publishing, and marks rows published only after the broker
// acknowledges.
type OutboxRelay struct {
	db        *sql.DB
	publisher *Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewOutboxRelay(db *sql.DB, publisher *Publisher, logger *slog.Logger, interval time.Duration, batchSize int) *OutboxRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		db:        db,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until the context is cancelled. Publish failures leave the
// row unclaimed for the next tick; they are logged, not fatal.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (r *OutboxRelay) drainOnce(ctx context.Context) error {
	for {
		n, err := r.claimAndPublish(ctx)
		if err != nil {
			return err
		}
		if n < r.batchSize {
			return nil
		}
	}
}

func (r *OutboxRelay) claimAndPublish(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	type claimed struct {
		id          uuid.UUID
		aggregateID string
		payload     []byte
	}
	var batch []claimed
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.id, &c.aggregateID, &c.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	published := make([]uuid.UUID, 0, len(batch))
	for _, c := range batch {
		if err := r.publisher.Publish(ctx, c.aggregateID, c.payload); err != nil {
			// Rows after a failure stay unpublished; ordering per
			// aggregate is preserved by stopping here.
			r.logger.WarnContext(ctx, "outbox publish failed, retrying next tick",
				"outbox_id", c.id, "error", err)
			break
		}
		published = append(published, c.id)
	}
	if len(published) == 0 {
		return 0, nil
	}

	for _, id := range published {
		if _, err := tx.ExecContext(ctx, `
			UPDATE outbox SET published_at = NOW() WHERE id = $1
		`, id); err != nil {
			return 0, fmt.Errorf("mark outbox row published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(batch), nil
}
