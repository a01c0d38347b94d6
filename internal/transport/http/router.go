// Package httptransport assembles the service's HTTP surface: feature
// handlers, operator auth on mutating routes, health probes, and the
// Prometheus endpoint.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lineagehandler "draftline/internal/lineage/handler"
	pipelinehandler "draftline/internal/pipeline/handler"
	"draftline/internal/platform/metrics"
	"draftline/internal/platform/middleware"
	qualityhandler "draftline/internal/quality/handler"
	reconcilehandler "draftline/internal/reconcile/handler"
	snapshothandler "draftline/internal/snapshot/handler"
	"draftline/pkg/platform/httputil"
)

const probeTimeout = 2 * time.Second

// HealthProbe reports whether one dependency is reachable.
type HealthProbe func(ctx context.Context) error

// Deps carries everything the router mounts. Nil handlers are skipped
// so partial wiring (tests, database-less runs) stays possible.
type Deps struct {
	Lineage   *lineagehandler.Handler
	Conflicts *reconcilehandler.Handler
	Quality   *qualityhandler.Handler
	Snapshots *snapshothandler.Handler
	Pipeline  *pipelinehandler.Handler

	OperatorJWTKey string
	Logger         *slog.Logger
	Probes         map[string]HealthProbe
	Metrics        *metrics.Metrics
}

// NewRouter wires all endpoints. Reads are open; anything that mutates
// conflicts, snapshots, quality reports, or kicks a pipeline run sits
// behind the operator JWT middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.Metrics != nil {
		r.Use(middleware.Instrument(deps.Metrics))
	}

	r.Get("/healthz", healthHandler(deps.Probes))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if deps.Lineage != nil {
		deps.Lineage.Register(r)
	}
	if deps.Conflicts != nil {
		deps.Conflicts.Register(r)
	}
	if deps.Quality != nil {
		deps.Quality.Register(r)
	}
	if deps.Snapshots != nil {
		deps.Snapshots.Register(r)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireOperator(deps.OperatorJWTKey, deps.Logger))
		if deps.Conflicts != nil {
			deps.Conflicts.RegisterOperator(pr)
		}
		if deps.Quality != nil {
			deps.Quality.RegisterOperator(pr)
		}
		if deps.Snapshots != nil {
			deps.Snapshots.RegisterOperator(pr)
		}
		if deps.Pipeline != nil {
			deps.Pipeline.Register(pr)
		}
	})

	return r
}

func healthHandler(probes map[string]HealthProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, probe := range probes {
			if err := probe(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, status)
	}
}
