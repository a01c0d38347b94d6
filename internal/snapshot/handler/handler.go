// Package handler exposes snapshot lifecycle and point-in-time reads
// over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"draftline/internal/snapshot"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/httputil"
	"draftline/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Service defines the snapshot operations the handler needs.
type Service interface {
	Create(ctx context.Context, date time.Time) (*snapshot.Metadata, error)
	Compress(ctx context.Context, id string) (*snapshot.Metadata, error)
	Archive(ctx context.Context, id string) (*snapshot.Metadata, error)
	Restore(ctx context.Context, id string) (*snapshot.Metadata, error)
	AsOf(ctx context.Context, prospectID domain.ProspectID, date time.Time) (*snapshot.DaySlice, error)
	HistoryRange(ctx context.Context, prospectID domain.ProspectID, start, end time.Time) ([]snapshot.DaySlice, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read-only snapshot endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/prospects/{prospectID}/asof/{date}", h.HandleAsOf)
	r.Get("/prospects/{prospectID}/history", h.HandleHistory)
}

// RegisterOperator mounts the lifecycle endpoints. The router puts
// these behind operator auth.
func (h *Handler) RegisterOperator(r chi.Router) {
	r.Post("/snapshots", h.HandleCreate)
	r.Post("/snapshots/{snapshotID}/compress", h.lifecycle("compress", h.service.Compress))
	r.Post("/snapshots/{snapshotID}/archive", h.lifecycle("archive", h.service.Archive))
	r.Post("/snapshots/{snapshotID}/restore", h.lifecycle("restore", h.service.Restore))
}

// CreateRequest names the day to capture.
type CreateRequest struct {
	Date string `json:"date"`

	parsedDate time.Time
}

func (r *CreateRequest) Validate() error {
	if r.Date == "" {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD")
	}
	r.parsedDate = date
	return nil
}

// HandleCreate handles POST /snapshots requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	meta, err := h.service.Create(ctx, req.parsedDate)
	if err != nil {
		h.logger.ErrorContext(ctx, "snapshot creation failed",
			"request_id", requestID,
			"date", req.Date,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "snapshot created",
		"request_id", requestID,
		"snapshot_id", meta.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, meta)
}

// lifecycle builds the handler for one state-changing snapshot verb.
func (h *Handler) lifecycle(verb string, op func(context.Context, string) (*snapshot.Metadata, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		id := chi.URLParam(r, "snapshotID")

		meta, err := op(ctx, id)
		if err != nil {
			h.logger.ErrorContext(ctx, "snapshot lifecycle operation failed",
				"request_id", requestID,
				"snapshot_id", id,
				"operation", verb,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, meta)
	}
}

// HandleAsOf handles GET /prospects/{prospectID}/asof/{date} requests.
func (h *Handler) HandleAsOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prospectID, err := domain.ParseProspectID(chi.URLParam(r, "prospectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := time.Parse(dateLayout, chi.URLParam(r, "date"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}

	slice, err := h.service.AsOf(ctx, prospectID, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, slice)
}

// HandleHistory handles GET /prospects/{prospectID}/history requests.
// Optional start and end query params bound the range; they default to
// the epoch and today.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prospectID, err := domain.ParseProspectID(chi.URLParam(r, "prospectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	start := time.Unix(0, 0).UTC()
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = time.Parse(dateLayout, raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "start must be YYYY-MM-DD"))
			return
		}
	}
	end := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = time.Parse(dateLayout, raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "end must be YYYY-MM-DD"))
			return
		}
	}

	slices, err := h.service.HistoryRange(ctx, prospectID, start, end)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"prospect_id": prospectID,
		"days":        slices,
	})
}
