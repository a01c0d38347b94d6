package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftline/internal/lineage"
	"draftline/pkg/domain"
)

func newTestHandler(t *testing.T) (*chi.Mux, *lineage.Recorder) {
	t.Helper()
	recorder := lineage.NewRecorder(lineage.NewInMemoryStore())
	h := New(recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, recorder
}

func record(t *testing.T, recorder *lineage.Recorder, field string, value domain.FieldValue, conflict bool) {
	t.Helper()
	_, err := recorder.Record(context.Background(), lineage.Entry{
		EntityType:   lineage.EntityTypeProspect,
		EntityID:     "prospect-1",
		Field:        field,
		Value:        value,
		ExtractionID: "extract-1",
		Source:       domain.SourceNFL,
		RuleID:       "passthrough_v1",
		Conflict:     conflict,
		CreatedAt:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestHandleHistory(t *testing.T) {
	router, recorder := newTestHandler(t)
	record(t, recorder, "grade", domain.DecimalValue(8.5), false)
	record(t, recorder, "weight", domain.IntValue(310), false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lineage/prospect/prospect-1?field=grade", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Field   string          `json:"field"`
		Entries []lineage.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "grade", resp.Field)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "grade", resp.Entries[0].Field)
}

func TestHandleHistoryUnknownEntityIsEmpty(t *testing.T) {
	router, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lineage/prospect/nobody", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entries []lineage.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Entries)
}

func TestHandleConflicts(t *testing.T) {
	router, recorder := newTestHandler(t)
	record(t, recorder, "grade", domain.DecimalValue(8.5), true)
	record(t, recorder, "grade", domain.DecimalValue(8.7), false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lineage/prospect/fields/grade/conflicts", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entries []lineage.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.True(t, resp.Entries[0].Conflict)
}
