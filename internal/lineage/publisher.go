package lineage

import (
	"context"
	"fmt"

	"draftline/internal/platform/kafka/producer"
)

// Publisher mirrors ledger entries to Kafka so downstream consumers
// (analytics, replication) see the same append-only stream the database
// holds. Keyed by entity id to keep per-prospect ordering.
type Publisher struct {
	producer *producer.Producer
	topic    string
}

func NewPublisher(p *producer.Producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, entityID string, payload []byte) error {
	if err := p.producer.Produce(ctx, p.topic, []byte(entityID), payload); err != nil {
		return fmt.Errorf("publish lineage entry: %w", err)
	}
	return nil
}
