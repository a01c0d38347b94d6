//go:build integration

package staging_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"draftline/internal/platform/kafka/consumer"
	"draftline/internal/platform/kafka/producer"
	"draftline/internal/staging"
	"draftline/pkg/domain"
	"draftline/pkg/testutil/containers"
)

func TestIntakeConsumesStagedRecords(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rp := containers.NewRedpandaContainer(t)

	prod, err := producer.New([]string{rp.Broker})
	require.NoError(t, err)
	defer prod.Close()
	require.NoError(t, prod.EnsureTopics(ctx, 1, "draftline.staging.nfl"))

	record := staging.StagedRecord{
		ExtractionID: "extract-kafka",
		NativeID:     "nfl-88",
		Fields: map[string]domain.FieldValue{
			"grade": domain.DecimalValue(8.5),
		},
		RawScale:  "grade_10",
		ScrapedAt: time.Now().UTC(),
	}
	// Source left empty on purpose: the intake recovers it from the topic.
	payload, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, prod.Produce(ctx, "draftline.staging.nfl", []byte(record.NativeID), payload))

	store := staging.NewInMemoryStore()
	cons, err := consumer.New([]string{rp.Broker}, "draftline-intake-test",
		[]string{"draftline.staging.nfl"}, staging.NewIntakeHandler(store, logger), logger)
	require.NoError(t, err)
	defer cons.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = cons.Run(runCtx) }()

	require.Eventually(t, func() bool {
		records, err := store.ListByExtraction(ctx, "extract-kafka", domain.SourceNFL)
		return err == nil && len(records) == 1
	}, 30*time.Second, 250*time.Millisecond)

	records, err := store.ListByExtraction(ctx, "extract-kafka", domain.SourceNFL)
	require.NoError(t, err)
	require.Equal(t, domain.SourceNFL, records[0].Source)
	grade, ok := records[0].Fields["grade"].AsFloat()
	require.True(t, ok)
	require.InDelta(t, 8.5, grade, 0.001)
}
