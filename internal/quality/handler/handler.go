// Package handler exposes quality reports over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"draftline/internal/quality"
	"draftline/pkg/domain"
	"draftline/pkg/platform/httputil"
	"draftline/pkg/requestcontext"
)

// Service defines the quality operations the handler needs.
type Service interface {
	Run(ctx context.Context, extractionID domain.ExtractionID) (*quality.Report, error)
	Report(ctx context.Context, extractionID domain.ExtractionID) (*quality.Report, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only quality endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/quality/reports/{extractionID}", h.HandleGetReport)
}

// RegisterOperator mounts the mutating endpoints. The router puts these
// behind operator auth.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/quality/reports/{extractionID}", h.HandleRun)
}

// HandleRun handles POST /quality/reports/{extractionID} requests. It
// validates the current dataset and persists the verdict.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	extractionID, err := domain.ParseExtractionID(chi.URLParam(r, "extractionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Run(ctx, extractionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "quality run failed",
			"request_id", requestID,
			"extraction_id", extractionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quality report generated",
		"request_id", requestID,
		"extraction_id", extractionID,
		"status", report.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleGetReport handles GET /quality/reports/{extractionID} requests.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	extractionID, err := domain.ParseExtractionID(chi.URLParam(r, "extractionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.Report(ctx, extractionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "quality report lookup failed",
			"request_id", requestID,
			"extraction_id", extractionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
