// Package snapshot captures the reconciled dataset once per day and
// manages each capture through its compression and archival lifecycle.
package snapshot

import (
	"time"

	"draftline/pkg/domain"
)

// State is the lifecycle stage of a snapshot artifact.
type State string

const (
	StateActive     State = "ACTIVE"
	StateCompressed State = "COMPRESSED"
	StateArchived   State = "ARCHIVED"
)

// IDForDate derives the snapshot id for a calendar day. One snapshot
// per day; the id doubles as the uniqueness key.
func IDForDate(date time.Time) string {
	return "snapshot_" + date.UTC().Format("20060102")
}

// Metadata describes one snapshot without its payload.
type Metadata struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	State           State     `json:"state"`
	RecordCount     int       `json:"record_count"`
	ChangedCount    int       `json:"changed_count"`
	SizeBytes       int64     `json:"size_bytes"`
	CompressedBytes int64     `json:"compressed_bytes,omitempty"`
	Checksum        string    `json:"checksum"`
	Location        string    `json:"location"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Record is one prospect's reconciled field set inside a snapshot. The
// hash covers the fields only, so two days with identical data produce
// identical hashes and Changed stays false.
type Record struct {
	ProspectID domain.ProspectID            `json:"prospect_id"`
	Fields     map[string]domain.FieldValue `json:"fields"`
	Hash       string                       `json:"hash"`
	Changed    bool                         `json:"changed"`
}

// Artifact is the serialized snapshot payload.
type Artifact struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Records []Record  `json:"records"`
}

// DaySlice is one day's view of a single prospect, the shape history
// queries return.
type DaySlice struct {
	Date   time.Time                    `json:"date"`
	Fields map[string]domain.FieldValue `json:"fields"`
}
