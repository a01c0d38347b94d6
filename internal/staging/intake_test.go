package staging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftline/internal/platform/kafka/consumer"
	"draftline/pkg/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stagedPayload(t *testing.T, record StagedRecord) []byte {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	return data
}

func TestIntakeInsertsValidRecord(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	h := NewIntakeHandler(store, discardLogger())

	payload := stagedPayload(t, StagedRecord{
		ExtractionID: "extract-1",
		Source:       domain.SourceNFL,
		NativeID:     "nfl-88",
		Fields:       map[string]domain.FieldValue{"grade": domain.DecimalValue(8.5)},
		RawScale:     "grade_10",
		ScrapedAt:    time.Now().UTC(),
	})
	require.NoError(t, h.Handle(ctx, &consumer.Message{
		Topic: "draftline.staging.nfl", Key: []byte("nfl-88"), Value: payload,
	}))

	records, err := store.ListByExtraction(ctx, "extract-1", domain.SourceNFL)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestIntakeRecoversSourceFromTopic(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	h := NewIntakeHandler(store, discardLogger())

	payload := stagedPayload(t, StagedRecord{
		ExtractionID: "extract-1",
		NativeID:     "espn-3",
		Fields:       map[string]domain.FieldValue{"grade": domain.DecimalValue(90)},
		ScrapedAt:    time.Now().UTC(),
	})
	require.NoError(t, h.Handle(ctx, &consumer.Message{
		Topic: "draftline.staging.espn", Key: []byte("espn-3"), Value: payload,
	}))

	records, err := store.ListByExtraction(ctx, "extract-1", domain.SourceESPN)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.SourceESPN, records[0].Source)
}

func TestIntakeDropsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	h := NewIntakeHandler(store, discardLogger())

	// Commit, don't redeliver: the handler reports success.
	require.NoError(t, h.Handle(ctx, &consumer.Message{
		Topic: "draftline.staging.nfl", Value: []byte("{not json"),
	}))

	extractions, err := store.Extractions(ctx)
	require.NoError(t, err)
	assert.Empty(t, extractions)
}

func TestIntakeDropsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	h := NewIntakeHandler(store, discardLogger())

	payload := stagedPayload(t, StagedRecord{
		ExtractionID: "extract-1",
		Source:       domain.SourceNFL,
		// NativeID missing.
		Fields: map[string]domain.FieldValue{"grade": domain.DecimalValue(8.5)},
	})
	require.NoError(t, h.Handle(ctx, &consumer.Message{
		Topic: "draftline.staging.nfl", Value: payload,
	}))

	records, err := store.ListByExtraction(ctx, "extract-1", domain.SourceNFL)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	record := &StagedRecord{
		ExtractionID: "extract-1",
		Source:       domain.SourceNFL,
		NativeID:     "nfl-88",
		Fields:       map[string]domain.FieldValue{"grade": domain.DecimalValue(8.5)},
		ScrapedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Insert(ctx, record))
	require.NoError(t, store.Insert(ctx, record))

	records, err := store.ListByExtraction(ctx, "extract-1", domain.SourceNFL)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
