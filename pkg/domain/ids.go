// Package domain holds shared value types used across feature packages:
// typed identifiers, the source-system enum, and the closed FieldValue
// union staged rows and lineage entries are expressed in.
package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "draftline/pkg/domain-errors"
)

// ProspectID identifies a canonical prospect record.
//
// Usage: construct via ParseProspectID at trust boundaries; direct casting
// from uuid.UUID is fine inside the module.
type ProspectID uuid.UUID

func (p ProspectID) IsNil() bool    { return uuid.UUID(p) == uuid.Nil }
func (p ProspectID) String() string { return uuid.UUID(p).String() }

// MarshalText encodes as the canonical UUID string so JSON carries
// "8400-..." rather than a byte array.
func (p ProspectID) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ProspectID) UnmarshalText(b []byte) error {
	parsed, err := ParseProspectID(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseProspectID constructs a ProspectID from external input.
func ParseProspectID(s string) (ProspectID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ProspectID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid prospect id")
	}
	return ProspectID(u), nil
}

// ConflictID identifies a reconciliation conflict record.
type ConflictID uuid.UUID

func (c ConflictID) IsNil() bool    { return uuid.UUID(c) == uuid.Nil }
func (c ConflictID) String() string { return uuid.UUID(c).String() }

func (c ConflictID) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ConflictID) UnmarshalText(b []byte) error {
	parsed, err := ParseConflictID(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseConflictID(s string) (ConflictID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return ConflictID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid conflict id")
	}
	return ConflictID(u), nil
}

// LineageID identifies an append-only lineage ledger entry.
type LineageID uuid.UUID

func (l LineageID) IsNil() bool    { return uuid.UUID(l) == uuid.Nil }
func (l LineageID) String() string { return uuid.UUID(l).String() }

func (l LineageID) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *LineageID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(strings.TrimSpace(string(b)))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid lineage id")
	}
	*l = LineageID(u)
	return nil
}

// extractionIDPattern keeps extraction ids shell- and SQL-friendly; the
// acquisition layer generates them, we only gatekeep.
var extractionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ExtractionID tags one acquisition run. Opaque to this service beyond
// equality and ordering by creation time of its rows.
type ExtractionID string

func (e ExtractionID) String() string { return string(e) }
func (e ExtractionID) IsZero() bool   { return e == "" }

func ParseExtractionID(s string) (ExtractionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "extraction id cannot be empty")
	}
	if !extractionIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "extraction id contains invalid characters")
	}
	return ExtractionID(s), nil
}
