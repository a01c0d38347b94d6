package domain

import dErrors "draftline/pkg/domain-errors"

// Source identifies one upstream scrape target.
// Invariant: the value must be one of the registered source systems.
//
// Usage: construct via ParseSource at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Source string

// Registered source systems. Adding a source means adding a transformer,
// a grade scale entry, and a native-id column on the prospects table.
const (
	SourceNFL  Source = "nfl"
	SourceESPN Source = "espn"
	SourceCBS  Source = "cbs"
)

// validSources is the single source of truth for registered sources.
var validSources = map[Source]bool{
	SourceNFL:  true,
	SourceESPN: true,
	SourceCBS:  true,
}

// KnownSources returns the registered sources in stable order.
func KnownSources() []Source {
	return []Source{SourceNFL, SourceESPN, SourceCBS}
}

// ParseSource constructs a Source from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or
// unregistered; no other errors are expected.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "source cannot be empty")
	}
	src := Source(s)
	if !src.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown source %q", s)
	}
	return src, nil
}

// IsValid checks if the source is one of the registered systems.
func (s Source) IsValid() bool {
	return validSources[s]
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}
