package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"draftline/internal/canonical"
	"draftline/internal/platform/config"
	"draftline/internal/snapshot"
	"draftline/pkg/domain"
)

type HandlerSuite struct {
	suite.Suite
	router     *chi.Mux
	prospectID domain.ProspectID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	prospects := canonical.NewInMemoryStore()
	p, err := canonical.NewProspect(domain.ProspectID(uuid.New()), "Jalen", "Carter", domain.PositionDT, "Georgia", now)
	s.Require().NoError(err)
	s.Require().NoError(prospects.Create(ctx, p))
	s.prospectID = p.ID

	resolved := canonical.NewInMemoryResolvedValueStore()
	s.Require().NoError(resolved.Upsert(ctx, p.ID, "grade", domain.DecimalValue(8.5), now))

	mgr := snapshot.NewManager(prospects, resolved, snapshot.NewInMemoryMetadataStore(),
		snapshot.NewInMemoryBlobStore(), snapshot.NewInMemoryBlobStore(),
		config.Snapshot{RetentionDays: 90, CompressionLevel: 6}, logger, nil)

	h := New(mgr, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterOperator(s.router)
}

func (s *HandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) TestCreateAndAsOf() {
	w := s.post("/snapshots", `{"date":"2026-04-01"}`)
	s.Require().Equal(http.StatusCreated, w.Code)

	var meta snapshot.Metadata
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &meta))
	s.Equal("snapshot_20260401", meta.ID)
	s.Equal(1, meta.RecordCount)

	get := httptest.NewRecorder()
	s.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet,
		"/prospects/"+s.prospectID.String()+"/asof/2026-04-01", nil))
	s.Require().Equal(http.StatusOK, get.Code)

	var slice snapshot.DaySlice
	s.Require().NoError(json.Unmarshal(get.Body.Bytes(), &slice))
	grade, ok := slice.Fields["grade"].AsFloat()
	s.Require().True(ok)
	s.InDelta(8.5, grade, 0.001)
}

func (s *HandlerSuite) TestCreateDuplicateDayConflicts() {
	s.Require().Equal(http.StatusCreated, s.post("/snapshots", `{"date":"2026-04-01"}`).Code)
	s.Equal(http.StatusConflict, s.post("/snapshots", `{"date":"2026-04-01"}`).Code)
}

func (s *HandlerSuite) TestCreateRejectsBadDate() {
	s.Equal(http.StatusBadRequest, s.post("/snapshots", `{"date":"April 1"}`).Code)
}

func (s *HandlerSuite) TestCompressLifecycle() {
	s.Require().Equal(http.StatusCreated, s.post("/snapshots", `{"date":"2026-04-01"}`).Code)

	w := s.post("/snapshots/snapshot_20260401/compress", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var meta snapshot.Metadata
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &meta))
	s.Equal(snapshot.StateCompressed, meta.State)
	s.Positive(meta.CompressedBytes)
}

func (s *HandlerSuite) TestRestoreRequiresArchived() {
	s.Require().Equal(http.StatusCreated, s.post("/snapshots", `{"date":"2026-04-01"}`).Code)
	s.Equal(http.StatusConflict, s.post("/snapshots/snapshot_20260401/restore", "").Code)
}

func (s *HandlerSuite) TestAsOfMissingSnapshot() {
	get := httptest.NewRecorder()
	s.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet,
		"/prospects/"+s.prospectID.String()+"/asof/2026-01-01", nil))
	s.Equal(http.StatusNotFound, get.Code)
}
