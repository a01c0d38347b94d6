package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"draftline/internal/canonical"
	"draftline/internal/lineage"
	"draftline/internal/platform/config"
	"draftline/internal/reconcile/metrics"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/sentinel"
	"draftline/pkg/requestcontext"
)

// LineageRecorder persists the ledger entry explaining a resolution.
type LineageRecorder interface {
	Record(ctx context.Context, entry lineage.Entry) (domain.LineageID, error)
}

// Engine runs conflict detection and resolution for one prospect at a
// time. It holds no mutable run state; every call builds its own
// Result, so concurrent runs over different prospects are safe.
type Engine struct {
	values     canonical.SourceValueStore
	resolved   canonical.ResolvedValueStore
	conflicts  Store
	recorder   LineageRecorder
	tolerances map[string]Tolerance
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewEngine(values canonical.SourceValueStore, resolved canonical.ResolvedValueStore, conflicts Store, recorder LineageRecorder, cfg config.Tolerances, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		values:     values,
		resolved:   resolved,
		conflicts:  conflicts,
		recorder:   recorder,
		tolerances: toleranceTable(cfg),
		logger:     logger,
		metrics:    m,
	}
}

// Reconcile compares every source pair for every field of one prospect,
// resolves what authority allows, escalates the rest, and writes the
// resolved values. Conflicts a human already settled are left alone,
// and re-detecting a pair whose values have not changed reuses the
// stored record instead of minting a duplicate.
func (e *Engine) Reconcile(ctx context.Context, prospectID domain.ProspectID) (*Result, error) {
	views, err := e.values.ViewsByProspect(ctx, prospectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load source views")
	}

	result := &Result{
		ProspectID: prospectID,
		Resolved:   make(map[string]domain.FieldValue),
	}

	sources := sortedSources(views)
	now := requestcontext.Now(ctx)

	for _, field := range sortedFields(views) {
		conflicted := false
		for i := 0; i < len(sources); i++ {
			for j := i + 1; j < len(sources); j++ {
				a, okA := views[sources[i]][field]
				b, okB := views[sources[j]][field]
				if !okA || !okB {
					continue
				}

				severity, pct, isConflict := e.compareField(field, a, b)
				if !isConflict {
					continue
				}
				conflicted = true

				prior, err := e.reusablePrior(ctx, prospectID, field, sources[i], sources[j], a, b)
				if err != nil {
					return nil, err
				}
				if prior != nil {
					result.Conflicts = append(result.Conflicts, prior)
					if prior.Status == StatusResolvedManual || prior.Status == StatusResolvedAutomatic {
						result.Resolved[field] = prior.ResolvedValue
					}
					continue
				}

				record := &ConflictRecord{
					ID:          domain.ConflictID(uuid.New()),
					ProspectID:  prospectID,
					Field:       field,
					SourceA:     sources[i],
					ValueA:      a,
					SourceB:     sources[j],
					ValueB:      b,
					Severity:    severity,
					PercentDiff: pct,
					Status:      StatusDetected,
					DetectedAt:  now,
				}
				if err := e.resolve(ctx, record, now); err != nil {
					return nil, err
				}
				if err := e.conflicts.Save(ctx, record); err != nil {
					return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save conflict")
				}
				e.metrics.IncrementConflict(field, string(record.Severity), string(record.Status))
				result.Conflicts = append(result.Conflicts, record)

				if record.Status == StatusResolvedAutomatic {
					result.Resolved[field] = record.ResolvedValue
				}
			}
		}

		if !conflicted {
			if v, ok := preferredValue(views, field); ok {
				result.Resolved[field] = v
			}
		}
	}

	structural := e.structuralConflicts(ctx, prospectID, views, now)
	for _, record := range structural {
		prior, err := e.reusablePrior(ctx, prospectID, record.Field, record.SourceA, record.SourceB, record.ValueA, record.ValueB)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			result.Conflicts = append(result.Conflicts, prior)
			continue
		}
		if err := e.conflicts.Save(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save structural conflict")
		}
		e.metrics.IncrementConflict(record.Field, string(record.Severity), string(record.Status))
		result.Conflicts = append(result.Conflicts, record)
	}

	for field, value := range result.Resolved {
		if err := e.resolved.Upsert(ctx, prospectID, field, value, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write resolved value")
		}
	}

	result.Recommendation = Recommend(result.Conflicts)
	return result, nil
}

// reusablePrior returns the stored conflict for a pair when detection
// must not mint a new record: a human already settled it, or neither
// source's value has changed since it was recorded.
func (e *Engine) reusablePrior(ctx context.Context, prospectID domain.ProspectID, field string, a, b domain.Source, va, vb domain.FieldValue) (*ConflictRecord, error) {
	prior, err := e.conflicts.FindByPair(ctx, prospectID, field, a, b)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up prior conflict")
	}
	if prior.Status == StatusResolvedManual || prior.Status == StatusSuppressed {
		return prior, nil
	}
	if samePairValues(prior, a, va, b, vb) {
		return prior, nil
	}
	return nil, nil
}

// samePairValues reports whether a stored conflict captured exactly
// these two source values, in either order.
func samePairValues(prior *ConflictRecord, a domain.Source, va domain.FieldValue, b domain.Source, vb domain.FieldValue) bool {
	if prior.SourceA == a && prior.SourceB == b && prior.ValueA.Equal(va) && prior.ValueB.Equal(vb) {
		return true
	}
	return prior.SourceA == b && prior.SourceB == a && prior.ValueA.Equal(vb) && prior.ValueB.Equal(va)
}

// resolve applies the authority table to a detected conflict.
func (e *Engine) resolve(ctx context.Context, record *ConflictRecord, now time.Time) error {
	authority, configured := AuthorityFor(record.Field)
	if !configured {
		record.Notes = fmt.Sprintf("no authority configured for field %q", record.Field)
		return record.Transition(StatusEscalated)
	}

	var chosen domain.FieldValue
	var losing domain.Source
	var losingValue domain.FieldValue
	switch authority {
	case record.SourceA:
		chosen, losing, losingValue = record.ValueA, record.SourceB, record.ValueB
	case record.SourceB:
		chosen, losing, losingValue = record.ValueB, record.SourceA, record.ValueA
	default:
		record.Notes = fmt.Sprintf("authority %q holds no value for %q; sources %s/%s disagree",
			authority, record.Field, record.SourceA, record.SourceB)
		return record.Transition(StatusEscalated)
	}

	if err := record.Transition(StatusResolvedAutomatic); err != nil {
		return err
	}
	record.ResolvedValue = chosen
	record.ResolvedSource = authority
	record.ResolutionRule = "authoritative_source:" + string(authority)
	record.ResolvedAt = &now

	_, err := e.recorder.Record(ctx, lineage.Entry{
		EntityType:     lineage.EntityTypeProspect,
		EntityID:       record.ProspectID.String(),
		Field:          record.Field,
		Value:          chosen,
		PreviousValue:  losingValue,
		Source:         authority,
		RuleID:         record.ResolutionRule,
		RuleLogic:      "conflict resolved by field-category authority table",
		Conflict:       true,
		ConflictWith:   map[domain.Source]string{losing: losingValue.String()},
		ResolutionRule: record.ResolutionRule,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record resolution lineage")
	}
	return nil
}

// Override unconditionally settles a conflict by operator choice. The
// chosen source must be one of the conflicting pair.
func (e *Engine) Override(ctx context.Context, conflictID domain.ConflictID, chosenSource domain.Source, notes string) (*ConflictRecord, error) {
	record, err := e.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load conflict")
	}

	var chosen domain.FieldValue
	var losing domain.Source
	var losingValue domain.FieldValue
	switch chosenSource {
	case record.SourceA:
		chosen, losing, losingValue = record.ValueA, record.SourceB, record.ValueB
	case record.SourceB:
		chosen, losing, losingValue = record.ValueB, record.SourceA, record.ValueA
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"source %q is not part of this conflict (%s vs %s)", chosenSource, record.SourceA, record.SourceB)
	}

	if err := record.Transition(StatusResolvedManual); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	operator := requestcontext.OperatorID(ctx)
	record.ResolvedValue = chosen
	record.ResolvedSource = chosenSource
	record.ResolutionRule = "manual_override"
	record.Notes = notes
	record.ResolvedBy = operator
	record.ResolvedAt = &now

	if err := e.conflicts.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save override")
	}
	if err := e.resolved.Upsert(ctx, record.ProspectID, record.Field, chosen, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write overridden value")
	}

	_, err = e.recorder.Record(ctx, lineage.Entry{
		EntityType:     lineage.EntityTypeProspect,
		EntityID:       record.ProspectID.String(),
		Field:          record.Field,
		Value:          chosen,
		PreviousValue:  losingValue,
		Source:         chosenSource,
		RuleID:         "manual_override",
		RuleLogic:      "operator chose source value over automatic resolution",
		Conflict:       true,
		ConflictWith:   map[domain.Source]string{losing: losingValue.String()},
		ResolutionRule: "manual_override",
		Actor:          operator,
		Reason:         notes,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record override lineage")
	}

	e.metrics.IncrementOverride(record.Field)
	e.logger.InfoContext(ctx, "conflict manually overridden",
		"conflict_id", record.ID,
		"prospect_id", record.ProspectID,
		"field", record.Field,
		"chosen_source", chosenSource,
		"operator", operator,
	)
	return record, nil
}

// Suppress marks a conflict acknowledged-but-unchanged. No resolved
// value is written.
func (e *Engine) Suppress(ctx context.Context, conflictID domain.ConflictID, notes string) (*ConflictRecord, error) {
	record, err := e.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "conflict not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load conflict")
	}

	if err := record.Transition(StatusSuppressed); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	record.Notes = notes
	record.ResolvedBy = requestcontext.OperatorID(ctx)
	record.ResolvedAt = &now

	if err := e.conflicts.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save suppression")
	}
	return record, nil
}

// Conflicts lists a prospect's conflict records.
func (e *Engine) Conflicts(ctx context.Context, prospectID domain.ProspectID) ([]*ConflictRecord, error) {
	return e.conflicts.ListByProspect(ctx, prospectID)
}

// compareField decides whether two source values conflict and how
// badly. Symmetric: swapping a and b changes nothing.
func (e *Engine) compareField(field string, a, b domain.FieldValue) (Severity, float64, bool) {
	if a.Equal(b) {
		return "", 0, false
	}

	fa, numA := a.AsFloat()
	fb, numB := b.AsFloat()
	if numA && numB {
		tol, hasTol := e.tolerances[field]
		na, nb := fa, fb
		if hasTol {
			na, nb = tol.normalize(fa), tol.normalize(fb)
			if tol.Within(fa, fb) {
				return "", 0, false
			}
		}
		pct := PercentDiff(na, nb)
		severity := SeverityMedium
		if hasTol && pct >= 20 {
			severity = SeverityHigh
		}
		return severity, pct, true
	}

	// Non-numeric inequality, or mixed kinds: medium by definition.
	return SeverityMedium, 0, true
}

// structuralConflicts runs the checks that look inside one source's
// view rather than across sources.
func (e *Engine) structuralConflicts(ctx context.Context, prospectID domain.ProspectID, views map[domain.Source]map[string]domain.FieldValue, now time.Time) []*ConflictRecord {
	var out []*ConflictRecord

	for _, source := range sortedSources(views) {
		fields := views[source]

		if record := checkTouchdownRatio(prospectID, source, fields, now); record != nil {
			out = append(out, record)
		}
		if record := checkReturnDate(prospectID, source, fields, now); record != nil {
			out = append(out, record)
		}
	}
	return out
}

// A touchdown per fewer than this many yards is not football, it is a
// scrape error.
const minYardsPerTouchdown = 10.0

func checkTouchdownRatio(prospectID domain.ProspectID, source domain.Source, fields map[string]domain.FieldValue, now time.Time) *ConflictRecord {
	td, okTD := fields["touchdowns"].AsFloat()
	yards, okYards := fields["yards"].AsFloat()
	if !okTD || !okYards || td <= 0 {
		return nil
	}
	if yards/td >= minYardsPerTouchdown {
		return nil
	}
	record := &ConflictRecord{
		ID:         domain.ConflictID(uuid.New()),
		ProspectID: prospectID,
		Field:      "touchdowns",
		SourceA:    source,
		ValueA:     fields["touchdowns"],
		SourceB:    source,
		ValueB:     fields["yards"],
		Severity:   SeverityCritical,
		Status:     StatusDetected,
		DetectedAt: now,
		Notes:      fmt.Sprintf("%.0f touchdowns on %.0f yards is implausible (floor: 1 per %.0f yards)", td, yards, minYardsPerTouchdown),
	}
	_ = record.Transition(StatusEscalated)
	return record
}

func checkReturnDate(prospectID domain.ProspectID, source domain.Source, fields map[string]domain.FieldValue, now time.Time) *ConflictRecord {
	status, okStatus := fields["status"].AsString()
	returnDate, okDate := fields["return_date"].AsDate()
	if !okStatus || !okDate || status != "out" {
		return nil
	}
	if !returnDate.Before(now.Truncate(24 * time.Hour)) {
		return nil
	}
	record := &ConflictRecord{
		ID:         domain.ConflictID(uuid.New()),
		ProspectID: prospectID,
		Field:      "status",
		SourceA:    source,
		ValueA:     fields["status"],
		SourceB:    source,
		ValueB:     fields["return_date"],
		Severity:   SeverityCritical,
		Status:     StatusDetected,
		DetectedAt: now,
		Notes:      fmt.Sprintf("status is \"out\" but return date %s already passed", returnDate.Format("2006-01-02")),
	}
	_ = record.Transition(StatusEscalated)
	return record
}

// preferredValue picks the value for an unconflicted field: the
// category authority when it holds one, otherwise fixed source order.
func preferredValue(views map[domain.Source]map[string]domain.FieldValue, field string) (domain.FieldValue, bool) {
	if authority, ok := AuthorityFor(field); ok {
		if v, ok := views[authority][field]; ok {
			return v, true
		}
	}
	for _, source := range domain.KnownSources() {
		if v, ok := views[source][field]; ok {
			return v, true
		}
	}
	return domain.FieldValue{}, false
}

func sortedSources(views map[domain.Source]map[string]domain.FieldValue) []domain.Source {
	out := make([]domain.Source, 0, len(views))
	for s := range views {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedFields(views map[domain.Source]map[string]domain.FieldValue) []string {
	seen := make(map[string]bool)
	var out []string
	for _, fields := range views {
		for f := range fields {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}
