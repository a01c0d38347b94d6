// Package transform turns staged source rows into normalized field
// changes on canonical prospects. Each source gets its own transformer;
// the batch processor drives them through fixed phases and never lets
// one bad row sink the batch.
package transform

import (
	"fmt"

	"draftline/pkg/domain"
)

// Phase names the stage a row was in when it failed.
type Phase string

const (
	PhaseValidate      Phase = "VALIDATE"
	PhaseMatchOrCreate Phase = "MATCH_OR_CREATE"
	PhaseNormalize     Phase = "NORMALIZE"
)

// FieldChange is one normalized field produced from a staged row,
// carrying the rule that produced it so lineage can explain the value.
type FieldChange struct {
	Field     string
	Value     domain.FieldValue
	RuleID    string
	RuleLogic string
}

// Failure records one row that did not make it through, with enough
// context to replay or debug it.
type Failure struct {
	RowRef string
	Phase  Phase
	Reason string
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s [%s]: %s", f.RowRef, f.Phase, f.Reason)
}

// BatchReport is the outcome of one ProcessBatch call. Batch APIs
// report partial failure through the report, never through an error.
type BatchReport struct {
	Processed int
	Validated int
	Invalid   int
	Matched   int
	Created   int
	Changes   int
	Failures  []Failure
}
