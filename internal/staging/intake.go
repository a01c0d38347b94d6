package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"draftline/internal/platform/kafka/consumer"
	"draftline/pkg/domain"
)

// IntakeHandler consumes staged records published by the acquisition
// layer on the per-source staging topics and lands them in the staging
// store. Delivery is at-least-once; the store's idempotent insert
// absorbs duplicates.
type IntakeHandler struct {
	store  Store
	logger *slog.Logger
}

func NewIntakeHandler(store Store, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{store: store, logger: logger}
}

// Handle decodes one staged record and inserts it. Malformed payloads
// are logged and committed rather than redelivered forever; the
// acquisition layer owns payload correctness.
func (h *IntakeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var record StagedRecord
	if err := json.Unmarshal(msg.Value, &record); err != nil {
		h.logger.Error("dropping malformed staged record",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	if record.Source == "" {
		record.Source = sourceFromTopic(msg.Topic)
	}
	if err := record.Validate(); err != nil {
		h.logger.Error("dropping invalid staged record",
			"topic", msg.Topic,
			"row", record.RowRef(),
			"error", err,
		)
		return nil
	}
	if err := h.store.Insert(ctx, &record); err != nil {
		return fmt.Errorf("insert staged record %s: %w", record.RowRef(), err)
	}
	return nil
}

// sourceFromTopic recovers the source from topic names shaped
// "draftline.staging.<source>".
func sourceFromTopic(topic string) domain.Source {
	idx := strings.LastIndex(topic, ".")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	src, err := domain.ParseSource(topic[idx+1:])
	if err != nil {
		return ""
	}
	return src
}
