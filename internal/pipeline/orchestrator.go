// Package pipeline sequences the fusion stages for one extraction:
// transform every source's staged rows, reconcile per prospect, grade
// the dataset, and capture the daily snapshot.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"draftline/internal/canonical"
	"draftline/internal/pipeline/metrics"
	"draftline/internal/platform/config"
	"draftline/internal/quality"
	"draftline/internal/reconcile"
	"draftline/internal/snapshot"
	"draftline/internal/staging"
	"draftline/internal/transform"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/requestcontext"
)

const tracerName = "draftline/pipeline"

// Transformer runs one source batch through the transform phases.
type Transformer interface {
	ProcessBatch(ctx context.Context, records []staging.StagedRecord) *transform.BatchReport
}

// Reconciler detects and resolves cross-source conflicts per prospect.
type Reconciler interface {
	Reconcile(ctx context.Context, prospectID domain.ProspectID) (*reconcile.Result, error)
}

// QualityRunner grades the dataset for an extraction.
type QualityRunner interface {
	Run(ctx context.Context, extractionID domain.ExtractionID) (*quality.Report, error)
}

// Snapshotter captures the reconciled dataset for a day.
type Snapshotter interface {
	Create(ctx context.Context, date time.Time) (*snapshot.Metadata, error)
}

// ProspectLister supplies the prospects the reconcile stage walks.
type ProspectLister interface {
	List(ctx context.Context) ([]*canonical.Prospect, error)
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	ExtractionID  domain.ExtractionID                      `json:"extraction_id"`
	Transform     map[domain.Source]*transform.BatchReport `json:"transform"`
	Reconciled    int                                      `json:"reconciled"`
	Conflicts     int                                      `json:"conflicts"`
	Escalations   int                                      `json:"escalations"`
	QualityStatus quality.ReportStatus                     `json:"quality_status"`
	SnapshotID    string                                   `json:"snapshot_id,omitempty"`
	StartedAt     time.Time                                `json:"started_at"`
	FinishedAt    time.Time                                `json:"finished_at"`
}

// Orchestrator wires the stages. It owns sequencing and deadlines only;
// all domain logic lives in the stage services.
type Orchestrator struct {
	staged      staging.Store
	prospects   ProspectLister
	transformer Transformer
	reconciler  Reconciler
	grader      QualityRunner
	snapshotter Snapshotter
	cfg         config.Pipeline
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewOrchestrator(staged staging.Store, prospects ProspectLister, transformer Transformer, reconciler Reconciler, grader QualityRunner, snapshotter Snapshotter, cfg config.Pipeline, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		staged:      staged,
		prospects:   prospects,
		transformer: transformer,
		reconciler:  reconciler,
		grader:      grader,
		snapshotter: snapshotter,
		cfg:         cfg,
		logger:      logger,
		metrics:     m,
	}
}

// Run executes the full pipeline for one extraction. Re-running an
// extraction id is safe: staging inserts, lineage appends, and the
// day's snapshot are all idempotent at their own layers.
func (o *Orchestrator) Run(ctx context.Context, extractionID domain.ExtractionID) (*RunResult, error) {
	if extractionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "extraction id is required")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run")
	span.SetAttributes(attribute.String("extraction_id", extractionID.String()))
	defer span.End()

	result := &RunResult{
		ExtractionID: extractionID,
		Transform:    make(map[domain.Source]*transform.BatchReport),
		StartedAt:    requestcontext.Now(ctx),
	}

	if err := o.runTransform(ctx, extractionID, result); err != nil {
		return o.fail(err)
	}
	if err := o.runReconcile(ctx, result); err != nil {
		return o.fail(err)
	}
	if err := o.runQuality(ctx, extractionID, result); err != nil {
		return o.fail(err)
	}
	if err := o.runSnapshot(ctx, result); err != nil {
		return o.fail(err)
	}

	result.FinishedAt = requestcontext.Now(ctx)
	o.metrics.IncrementRun("ok")
	o.logger.InfoContext(ctx, "pipeline run finished",
		"extraction_id", extractionID,
		"reconciled", result.Reconciled,
		"conflicts", result.Conflicts,
		"escalations", result.Escalations,
		"quality_status", result.QualityStatus,
		"snapshot_id", result.SnapshotID,
	)
	return result, nil
}

func (o *Orchestrator) fail(err error) (*RunResult, error) {
	o.metrics.IncrementRun("error")
	return nil, err
}

// runTransform feeds each source's staged rows through its transformer
// under the batch deadline. Row failures are part of the report, not
// errors; only infrastructure failures abort the run.
func (o *Orchestrator) runTransform(ctx context.Context, extractionID domain.ExtractionID, result *RunResult) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.transform")
	defer span.End()
	start := time.Now()
	defer func() { o.metrics.ObserveStage("transform", time.Since(start)) }()

	batchCtx := ctx
	if o.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
		defer cancel()
	}

	for _, source := range domain.KnownSources() {
		records, err := o.staged.ListByExtraction(ctx, extractionID, source)
		if err != nil {
			span.SetStatus(codes.Error, "staging read failed")
			return dErrors.Wrap(err, dErrors.CodeInternal, "list staged records")
		}
		if len(records) == 0 {
			continue
		}
		batch := make([]staging.StagedRecord, len(records))
		for i, r := range records {
			batch[i] = *r
		}
		result.Transform[source] = o.transformer.ProcessBatch(batchCtx, batch)
	}
	return nil
}

// runReconcile walks every prospect in parallel, bounded by the
// configured parallelism.
func (o *Orchestrator) runReconcile(ctx context.Context, result *RunResult) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.reconcile")
	defer span.End()
	start := time.Now()
	defer func() { o.metrics.ObserveStage("reconcile", time.Since(start)) }()

	prospects, err := o.prospects.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "prospect list failed")
		return dErrors.Wrap(err, dErrors.CodeInternal, "list prospects")
	}

	results := make([]*reconcile.Result, len(prospects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Parallelism)
	for i, p := range prospects {
		g.Go(func() error {
			r, err := o.reconciler.Reconcile(gctx, p.ID)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, "reconcile failed")
		return err
	}

	for _, r := range results {
		result.Reconciled++
		result.Conflicts += len(r.Conflicts)
		for _, c := range r.Conflicts {
			if c.Status == reconcile.StatusEscalated {
				result.Escalations++
			}
		}
	}
	return nil
}

func (o *Orchestrator) runQuality(ctx context.Context, extractionID domain.ExtractionID, result *RunResult) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.quality")
	defer span.End()
	start := time.Now()
	defer func() { o.metrics.ObserveStage("quality", time.Since(start)) }()

	report, err := o.grader.Run(ctx, extractionID)
	if err != nil {
		span.SetStatus(codes.Error, "quality run failed")
		return err
	}
	result.QualityStatus = report.Status
	return nil
}

// runSnapshot captures today's dataset. A snapshot already captured
// today is not a failure; re-runs of the same extraction land on the
// same day.
func (o *Orchestrator) runSnapshot(ctx context.Context, result *RunResult) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.snapshot")
	defer span.End()
	start := time.Now()
	defer func() { o.metrics.ObserveStage("snapshot", time.Since(start)) }()

	day := requestcontext.Now(ctx).UTC().Truncate(24 * time.Hour)
	meta, err := o.snapshotter.Create(ctx, day)
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		result.SnapshotID = snapshot.IDForDate(day)
		o.logger.InfoContext(ctx, "snapshot already captured for today",
			"snapshot_id", result.SnapshotID)
		return nil
	}
	if err != nil {
		span.SetStatus(codes.Error, "snapshot failed")
		return err
	}
	result.SnapshotID = meta.ID
	return nil
}
