package snapshot

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"

	"draftline/internal/canonical"
	"draftline/internal/platform/config"
	"draftline/internal/snapshot/metrics"
	"draftline/pkg/domain"
	dErrors "draftline/pkg/domain-errors"
	"draftline/pkg/platform/sentinel"
	"draftline/pkg/requestcontext"
)

// ProspectLister supplies the prospects a snapshot captures.
type ProspectLister interface {
	List(ctx context.Context) ([]*canonical.Prospect, error)
}

// ResolvedReader supplies each prospect's reconciled field map.
type ResolvedReader interface {
	ByProspect(ctx context.Context, id domain.ProspectID) (map[string]domain.FieldValue, error)
}

// Manager owns the snapshot lifecycle: daily capture with change
// detection, compression, archival, restore and point-in-time reads.
type Manager struct {
	prospects ProspectLister
	resolved  ResolvedReader
	metas     MetadataStore
	active    BlobStore
	archive   BlobStore
	cfg       config.Snapshot
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewManager(prospects ProspectLister, resolved ResolvedReader, metas MetadataStore, active, archive BlobStore, cfg config.Snapshot, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		prospects: prospects,
		resolved:  resolved,
		metas:     metas,
		active:    active,
		archive:   archive,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

func rawKey(id string) string        { return id + ".json" }
func compressedKey(id string) string { return id + ".json.gz" }

// Create captures the reconciled dataset for one calendar day. Each
// record's content hash is compared against the previous day's to set
// its changed flag; the first capture of a prospect counts as changed.
// A second Create for the same date returns CodeConflict.
func (m *Manager) Create(ctx context.Context, date time.Time) (*Metadata, error) {
	id := IDForDate(date)

	prevHashes, err := m.previousHashes(ctx, date)
	if err != nil {
		return nil, err
	}

	prospects, err := m.prospects.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list prospects")
	}

	artifact := Artifact{ID: id, Date: date.UTC()}
	changed := 0
	for _, p := range prospects {
		prospectID := p.ID
		fields, err := m.resolved.ByProspect(ctx, prospectID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read resolved values")
		}
		if len(fields) == 0 {
			continue
		}
		hash, err := HashFields(fields)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash record")
		}
		record := Record{
			ProspectID: prospectID,
			Fields:     fields,
			Hash:       hash,
			Changed:    prevHashes[prospectID] != hash,
		}
		if record.Changed {
			changed++
		}
		artifact.Records = append(artifact.Records, record)
	}
	sort.Slice(artifact.Records, func(i, j int) bool {
		return artifact.Records[i].ProspectID.String() < artifact.Records[j].ProspectID.String()
	})

	data, err := json.Marshal(artifact)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal snapshot")
	}

	// Blob first, metadata second: a failed write leaves no metadata
	// behind, so the operation is safely retriable.
	if err := m.active.Write(ctx, rawKey(id), data); err != nil {
		m.metrics.IncrementOperation("create", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write snapshot artifact")
	}

	now := requestcontext.Now(ctx)
	checksum := blake2b.Sum256(data)
	meta := &Metadata{
		ID:           id,
		Date:         date.UTC(),
		State:        StateActive,
		RecordCount:  len(artifact.Records),
		ChangedCount: changed,
		SizeBytes:    int64(len(data)),
		Checksum:     hex.EncodeToString(checksum[:]),
		Location:     rawKey(id),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.metas.Create(ctx, meta); err != nil {
		_ = m.active.Delete(ctx, rawKey(id))
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "snapshot %s already exists", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save snapshot metadata")
	}

	m.metrics.IncrementOperation("create", "ok")
	m.metrics.ObserveChanged(changed)
	m.logger.InfoContext(ctx, "snapshot created",
		"snapshot_id", id,
		"records", meta.RecordCount,
		"changed", changed,
		"bytes", meta.SizeBytes,
	)
	return meta, nil
}

func (m *Manager) previousHashes(ctx context.Context, date time.Time) (map[domain.ProspectID]string, error) {
	prev, err := m.loadByID(ctx, IDForDate(date.AddDate(0, 0, -1)))
	if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
		return map[domain.ProspectID]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	hashes := make(map[domain.ProspectID]string, len(prev.Records))
	for _, r := range prev.Records {
		hashes[r.ProspectID] = r.Hash
	}
	return hashes, nil
}

// Compress gzips the artifact and drops the uncompressed copy.
// Compressing an already compressed or archived snapshot is a no-op.
func (m *Manager) Compress(ctx context.Context, id string) (*Metadata, error) {
	meta, err := m.findMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.State != StateActive {
		return meta, nil
	}

	data, err := m.active.Read(ctx, rawKey(id))
	if err != nil {
		m.metrics.IncrementOperation("compress", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read snapshot artifact")
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, m.cfg.CompressionLevel)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init gzip writer")
	}
	if _, err := zw.Write(data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compress snapshot")
	}
	if err := zw.Close(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compress snapshot")
	}

	if err := m.active.Write(ctx, compressedKey(id), buf.Bytes()); err != nil {
		m.metrics.IncrementOperation("compress", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write compressed artifact")
	}

	meta.State = StateCompressed
	meta.CompressedBytes = int64(buf.Len())
	meta.Location = compressedKey(id)
	meta.UpdatedAt = requestcontext.Now(ctx)
	if err := m.metas.Update(ctx, meta); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update snapshot metadata")
	}
	if err := m.active.Delete(ctx, rawKey(id)); err != nil {
		// Metadata already points at the compressed copy; a leftover
		// raw file wastes disk but breaks nothing.
		m.logger.WarnContext(ctx, "deleting raw snapshot artifact failed",
			"snapshot_id", id, "error", err)
	}

	m.metrics.IncrementOperation("compress", "ok")
	m.logger.InfoContext(ctx, "snapshot compressed",
		"snapshot_id", id,
		"bytes", meta.SizeBytes,
		"compressed_bytes", meta.CompressedBytes,
	)
	return meta, nil
}

// Archive moves the compressed artifact to cold storage, compressing
// first if needed. Archiving an archived snapshot is a success no-op.
func (m *Manager) Archive(ctx context.Context, id string) (*Metadata, error) {
	meta, err := m.findMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.State == StateArchived {
		return meta, nil
	}
	if meta.State == StateActive {
		if meta, err = m.Compress(ctx, id); err != nil {
			return nil, err
		}
	}

	data, err := m.active.Read(ctx, compressedKey(id))
	if err != nil {
		m.metrics.IncrementOperation("archive", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read compressed artifact")
	}
	if err := m.archive.Write(ctx, compressedKey(id), data); err != nil {
		m.metrics.IncrementOperation("archive", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write archive artifact")
	}

	meta.State = StateArchived
	meta.UpdatedAt = requestcontext.Now(ctx)
	if err := m.metas.Update(ctx, meta); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update snapshot metadata")
	}
	if err := m.active.Delete(ctx, compressedKey(id)); err != nil {
		m.logger.WarnContext(ctx, "deleting active snapshot artifact failed",
			"snapshot_id", id, "error", err)
	}

	m.metrics.IncrementOperation("archive", "ok")
	m.logger.InfoContext(ctx, "snapshot archived", "snapshot_id", id)
	return meta, nil
}

// Restore brings an archived snapshot back to the active tier.
// Restoring a snapshot that is not archived fails.
func (m *Manager) Restore(ctx context.Context, id string) (*Metadata, error) {
	meta, err := m.findMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.State != StateArchived {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation,
			"snapshot %s is %s, only archived snapshots can be restored", id, meta.State)
	}

	data, err := m.archive.Read(ctx, compressedKey(id))
	if err != nil {
		m.metrics.IncrementOperation("restore", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read archive artifact")
	}
	if err := m.active.Write(ctx, compressedKey(id), data); err != nil {
		m.metrics.IncrementOperation("restore", "io_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write active artifact")
	}

	meta.State = StateCompressed
	meta.UpdatedAt = requestcontext.Now(ctx)
	if err := m.metas.Update(ctx, meta); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update snapshot metadata")
	}
	if err := m.archive.Delete(ctx, compressedKey(id)); err != nil {
		m.logger.WarnContext(ctx, "deleting archive artifact failed",
			"snapshot_id", id, "error", err)
	}

	m.metrics.IncrementOperation("restore", "ok")
	m.logger.InfoContext(ctx, "snapshot restored", "snapshot_id", id)
	return meta, nil
}

// CleanupOld archives every non-archived snapshot past the retention
// window and returns how many it archived.
func (m *Manager) CleanupOld(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).AddDate(0, 0, -m.cfg.RetentionDays)
	old, err := m.metas.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list old snapshots")
	}
	archived := 0
	for _, meta := range old {
		if _, err := m.Archive(ctx, meta.ID); err != nil {
			return archived, err
		}
		archived++
	}
	if archived > 0 {
		m.logger.InfoContext(ctx, "old snapshots archived",
			"count", archived, "cutoff", cutoff)
	}
	return archived, nil
}

// AsOf returns one prospect's reconciled fields exactly as captured on
// the given day. No snapshot for the day, or no record for the
// prospect, is CodeNotFound.
func (m *Manager) AsOf(ctx context.Context, prospectID domain.ProspectID, date time.Time) (*DaySlice, error) {
	artifact, err := m.loadByID(ctx, IDForDate(date))
	if err != nil {
		return nil, err
	}
	for _, r := range artifact.Records {
		if r.ProspectID == prospectID {
			return &DaySlice{Date: artifact.Date, Fields: r.Fields}, nil
		}
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "no snapshot record for prospect on %s", date.UTC().Format("2006-01-02"))
}

// HistoryRange collects the prospect's day slices across [start, end].
// Days without a snapshot, or without the prospect, are simply absent.
func (m *Manager) HistoryRange(ctx context.Context, prospectID domain.ProspectID, start, end time.Time) ([]DaySlice, error) {
	metas, err := m.metas.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list snapshots")
	}
	var out []DaySlice
	for _, meta := range metas {
		if meta.Date.Before(start.UTC()) || meta.Date.After(end.UTC()) {
			continue
		}
		artifact, err := m.load(ctx, meta)
		if err != nil {
			return nil, err
		}
		for _, r := range artifact.Records {
			if r.ProspectID == prospectID {
				out = append(out, DaySlice{Date: artifact.Date, Fields: r.Fields})
				break
			}
		}
	}
	return out, nil
}

func (m *Manager) findMeta(ctx context.Context, id string) (*Metadata, error) {
	meta, err := m.metas.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "snapshot %s not found", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load snapshot metadata")
	}
	return meta, nil
}

func (m *Manager) loadByID(ctx context.Context, id string) (*Artifact, error) {
	meta, err := m.findMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, meta)
}

func (m *Manager) load(ctx context.Context, meta *Metadata) (*Artifact, error) {
	var data []byte
	var err error
	switch meta.State {
	case StateActive:
		data, err = m.active.Read(ctx, rawKey(meta.ID))
	case StateCompressed:
		data, err = m.active.Read(ctx, compressedKey(meta.ID))
	case StateArchived:
		data, err = m.archive.Read(ctx, compressedKey(meta.ID))
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "snapshot %s has unknown state %s", meta.ID, meta.State)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read snapshot artifact")
	}

	if meta.State != StateActive {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "open compressed artifact")
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decompress artifact")
		}
		if err := zr.Close(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decompress artifact")
		}
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "unmarshal snapshot artifact")
	}
	return &artifact, nil
}
