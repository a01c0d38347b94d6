package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"draftline/internal/canonical"
	"draftline/internal/identity"
	"draftline/internal/lineage"
	"draftline/internal/staging"
	"draftline/internal/transform/metrics"
	"draftline/pkg/domain"
	"draftline/pkg/platform/sentinel"
	"draftline/pkg/requestcontext"
)

// Resolver matches or creates the canonical prospect for an identity.
type Resolver interface {
	Resolve(ctx context.Context, ident identity.Identity) (*identity.Match, error)
}

// LineageRecorder persists the ledger entry for one field change.
type LineageRecorder interface {
	Record(ctx context.Context, entry lineage.Entry) (domain.LineageID, error)
}

// Processor drives staged rows through VALIDATE, MATCH_OR_CREATE and
// NORMALIZE. A failed row is recorded and the batch continues; a row
// whose ledger write fails is a failed row, a value without lineage
// never lands.
type Processor struct {
	registry    Registry
	resolver    Resolver
	values      canonical.SourceValueStore
	recorder    LineageRecorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	parallelism int
}

func NewProcessor(registry Registry, resolver Resolver, values canonical.SourceValueStore, recorder LineageRecorder, m *metrics.Metrics, logger *slog.Logger, parallelism int) *Processor {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Processor{
		registry:    registry,
		resolver:    resolver,
		values:      values,
		recorder:    recorder,
		metrics:     m,
		logger:      logger,
		parallelism: parallelism,
	}
}

// ProcessBatch transforms a batch of staged rows. Rows run in parallel;
// identity creation is serialized inside the resolver. When the context
// deadline passes, no new rows start but in-flight rows finish. Partial
// failure is reported through the BatchReport, never as an error.
func (p *Processor) ProcessBatch(ctx context.Context, records []staging.StagedRecord) *BatchReport {
	start := time.Now()
	report := &BatchReport{}
	var mu sync.Mutex

	// In-flight rows run to completion even after the batch deadline.
	rowCtx := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.SetLimit(p.parallelism)

	for i := range records {
		rec := &records[i]

		if err := ctx.Err(); err != nil {
			mu.Lock()
			report.Processed++
			report.Failures = append(report.Failures, Failure{
				RowRef: rec.RowRef(),
				Phase:  PhaseValidate,
				Reason: "batch deadline exceeded before row started",
				Err:    err,
			})
			mu.Unlock()
			p.metrics.IncrementRow(string(rec.Source), "failed")
			p.metrics.IncrementFailure(string(PhaseValidate))
			continue
		}

		g.Go(func() error {
			res := p.processRow(rowCtx, rec)

			mu.Lock()
			report.Processed++
			if res.failure != nil {
				report.Failures = append(report.Failures, *res.failure)
				if res.failure.Phase == PhaseValidate {
					report.Invalid++
				}
			} else {
				report.Validated++
				report.Changes += res.changes
				if res.created {
					report.Created++
				} else {
					report.Matched++
				}
			}
			mu.Unlock()

			if res.failure != nil {
				p.metrics.IncrementRow(string(rec.Source), "failed")
				p.metrics.IncrementFailure(string(res.failure.Phase))
				p.logger.WarnContext(rowCtx, "staged row failed",
					"row", res.failure.RowRef,
					"phase", res.failure.Phase,
					"reason", res.failure.Reason,
				)
			} else {
				result := "matched"
				if res.created {
					result = "created"
				}
				p.metrics.IncrementRow(string(rec.Source), result)
				p.metrics.AddChanges(string(rec.Source), res.changes)
			}
			return nil
		})
	}

	_ = g.Wait()
	p.metrics.ObserveBatchLatency(time.Since(start))
	return report
}

type rowResult struct {
	created bool
	changes int
	failure *Failure
}

func (p *Processor) processRow(ctx context.Context, rec *staging.StagedRecord) (res rowResult) {
	phase := PhaseValidate
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			res = rowResult{failure: &Failure{
				RowRef: rec.RowRef(),
				Phase:  phase,
				Reason: err.Error(),
				Err:    err,
			}}
		}
	}()

	fail := func(reason string, err error) rowResult {
		return rowResult{failure: &Failure{RowRef: rec.RowRef(), Phase: phase, Reason: reason, Err: err}}
	}

	transformer, err := p.registry.For(rec.Source)
	if err != nil {
		return fail(err.Error(), err)
	}
	if err := transformer.Validate(rec); err != nil {
		return fail(err.Error(), err)
	}

	phase = PhaseMatchOrCreate
	ident, err := transformer.ExtractIdentity(rec)
	if err != nil {
		return fail(err.Error(), err)
	}
	match, err := p.resolver.Resolve(ctx, ident)
	if err != nil {
		return fail("identity resolution failed: "+err.Error(), err)
	}

	phase = PhaseNormalize
	changes, err := transformer.Normalize(rec, match.ProspectID)
	if err != nil {
		return fail(err.Error(), err)
	}

	applied := 0
	for _, change := range changes {
		wrote, err := p.applyChange(ctx, rec, match.ProspectID, change)
		if err != nil {
			return fail("apply "+change.Field+": "+err.Error(), err)
		}
		if wrote {
			applied++
		}
	}

	return rowResult{created: match.Created, changes: applied}
}

// applyChange writes one field change with its ledger entry. The entry
// goes first; a value the ledger cannot explain is worse than a row
// that has to be replayed.
func (p *Processor) applyChange(ctx context.Context, rec *staging.StagedRecord, id domain.ProspectID, change FieldChange) (bool, error) {
	previous, err := p.values.Get(ctx, id, rec.Source, change.Field)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return false, fmt.Errorf("read current value: %w", err)
	}
	if hadPrevious && previous.Equal(change.Value) {
		return false, nil // unchanged, nothing to record
	}

	entry := lineage.Entry{
		EntityType:   lineage.EntityTypeProspect,
		EntityID:     id.String(),
		Field:        change.Field,
		Value:        change.Value,
		ExtractionID: rec.ExtractionID,
		Source:       rec.Source,
		SourceRowRef: rec.RowRef(),
		RuleID:       change.RuleID,
		RuleLogic:    change.RuleLogic,
	}
	if hadPrevious {
		entry.PreviousValue = previous
	} else {
		entry.PreviousValue = domain.NullValue()
	}
	if _, err := p.recorder.Record(ctx, entry); err != nil {
		return false, fmt.Errorf("lineage write: %w", err)
	}

	if _, _, err := p.values.Upsert(ctx, id, rec.Source, change.Field, change.Value, requestcontext.Now(ctx)); err != nil {
		return false, fmt.Errorf("write value: %w", err)
	}
	return true, nil
}
