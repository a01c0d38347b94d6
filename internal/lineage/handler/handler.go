package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"draftline/internal/lineage"
	"draftline/pkg/platform/httputil"
	"draftline/pkg/requestcontext"
)

// Service defines the lineage read operations the handler needs.
type Service interface {
	History(ctx context.Context, entityType, entityID, field string) ([]lineage.Entry, error)
	Conflicts(ctx context.Context, entityType, field string) ([]lineage.Entry, error)
}

// Handler wires lineage query endpoints to the recorder.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lineage endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/lineage/{entityType}/{entityID}", h.HandleHistory)
	r.Get("/lineage/{entityType}/fields/{field}/conflicts", h.HandleConflicts)
}

// HandleHistory handles GET /lineage/{entityType}/{entityID} requests.
// An optional ?field= query narrows the history to one field.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")
	field := r.URL.Query().Get("field")

	entries, err := h.service.History(ctx, entityType, entityID, field)
	if err != nil {
		h.logger.ErrorContext(ctx, "lineage history query failed",
			"request_id", requestID,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, historyResponse{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Entries:    entries,
	})
}

// HandleConflicts handles GET /lineage/{entityType}/fields/{field}/conflicts.
func (h *Handler) HandleConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityType := chi.URLParam(r, "entityType")
	field := chi.URLParam(r, "field")

	entries, err := h.service.Conflicts(ctx, entityType, field)
	if err != nil {
		h.logger.ErrorContext(ctx, "lineage conflicts query failed",
			"request_id", requestID,
			"entity_type", entityType,
			"field", field,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, conflictsResponse{
		EntityType: entityType,
		Field:      field,
		Entries:    entries,
	})
}

type historyResponse struct {
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Field      string          `json:"field,omitempty"`
	Entries    []lineage.Entry `json:"entries"`
}

type conflictsResponse struct {
	EntityType string          `json:"entity_type"`
	Field      string          `json:"field"`
	Entries    []lineage.Entry `json:"entries"`
}
