// Package handler exposes pipeline runs over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"draftline/internal/pipeline"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/httputil"
	"draftline/pkg/requestcontext"
)

// Service defines the pipeline operations the handler needs.
type Service interface {
	Run(ctx context.Context, extractionID domain.ExtractionID) (*pipeline.RunResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts pipeline endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pipeline/runs", h.HandleRun)
}

// RunRequest names the extraction to process.
type RunRequest struct {
	ExtractionID string `json:"extraction_id"`

	parsedID domain.ExtractionID
}

func (r *RunRequest) Validate() error {
	id, err := domain.ParseExtractionID(r.ExtractionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "extraction_id")
	}
	r.parsedID = id
	return nil
}

// HandleRun handles POST /pipeline/runs requests. The run is
// synchronous; the orchestrator's own batch deadline bounds it.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Run(ctx, req.parsedID)
	if err != nil {
		h.logger.ErrorContext(ctx, "pipeline run failed",
			"request_id", requestID,
			"extraction_id", req.ExtractionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pipeline run completed",
		"request_id", requestID,
		"extraction_id", req.ExtractionID,
		"quality_status", result.QualityStatus,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
