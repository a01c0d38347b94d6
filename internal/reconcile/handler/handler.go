package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"draftline/internal/reconcile"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/httputil"
	"draftline/pkg/requestcontext"
)

// Service defines the reconciliation operations the handler needs.
type Service interface {
	Override(ctx context.Context, conflictID domain.ConflictID, chosenSource domain.Source, notes string) (*reconcile.ConflictRecord, error)
	Suppress(ctx context.Context, conflictID domain.ConflictID, notes string) (*reconcile.ConflictRecord, error)
	Conflicts(ctx context.Context, prospectID domain.ProspectID) ([]*reconcile.ConflictRecord, error)
}

// Handler wires conflict endpoints to the reconciliation engine. The
// mutating endpoints sit behind the operator-auth middleware; the
// operator id arrives through the request context.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only conflict endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/prospects/{prospectID}/conflicts", h.HandleListConflicts)
}

// RegisterOperator mounts the mutating endpoints. The router puts these
// behind operator auth.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/conflicts/{conflictID}/override", h.HandleOverride)
	r.Post("/conflicts/{conflictID}/suppress", h.HandleSuppress)
}

// OverrideRequest is the operator's manual resolution.
type OverrideRequest struct {
	ChosenSource string `json:"chosen_source"`
	Notes        string `json:"notes"`

	parsedSource domain.Source
}

func (r *OverrideRequest) Validate() error {
	src, err := domain.ParseSource(r.ChosenSource)
	if err != nil {
		return err
	}
	if r.Notes == "" {
		return dErrors.New(dErrors.CodeValidation, "notes are required on a manual override")
	}
	r.parsedSource = src
	return nil
}

// HandleOverride handles POST /conflicts/{conflictID}/override requests.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	conflictID, err := domain.ParseConflictID(chi.URLParam(r, "conflictID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Override(ctx, conflictID, req.parsedSource, req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "conflict override failed",
			"request_id", requestID,
			"conflict_id", conflictID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "conflict overridden",
		"request_id", requestID,
		"conflict_id", conflictID,
		"chosen_source", req.ChosenSource,
	)
	httputil.WriteJSON(w, http.StatusOK, record)
}

// SuppressRequest acknowledges a conflict without changing data.
type SuppressRequest struct {
	Notes string `json:"notes"`
}

func (r *SuppressRequest) Validate() error {
	if r.Notes == "" {
		return dErrors.New(dErrors.CodeValidation, "notes are required on a suppression")
	}
	return nil
}

// HandleSuppress handles POST /conflicts/{conflictID}/suppress requests.
func (h *Handler) HandleSuppress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	conflictID, err := domain.ParseConflictID(chi.URLParam(r, "conflictID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SuppressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Suppress(ctx, conflictID, req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "conflict suppression failed",
			"request_id", requestID,
			"conflict_id", conflictID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleListConflicts handles GET /prospects/{prospectID}/conflicts.
func (h *Handler) HandleListConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prospectID, err := domain.ParseProspectID(chi.URLParam(r, "prospectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.Conflicts(ctx, prospectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"prospect_id": prospectID,
		"conflicts":   records,
	})
}
