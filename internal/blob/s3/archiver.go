package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Archives at least multipartThreshold bytes go through the transfer
// manager in archivePartSize chunks.
const (
	multipartThreshold = 16 << 20
	archivePartSize    = 8 << 20
)

// JournalLister lists journal rows older than a cutoff.
type JournalLister interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.JournalRecord, error)
}

// JournalArchiver implements domain.Archiver: old journal rows are written
// to the bucket as JSONL and the export is recorded in the audit log. Rows
// stay in the database; pruning is a separate step.
type JournalArchiver struct {
	writer  domain.BlobWriter
	journal JournalLister
	audit   domain.AuditStore
}

// NewArchiver creates a JournalArchiver.
func NewArchiver(writer domain.BlobWriter, journal JournalLister, audit domain.AuditStore) *JournalArchiver {
	return &JournalArchiver{writer: writer, journal: journal, audit: audit}
}

// ArchiveJournal exports rows bought before the cutoff to
// archive/journal_trades/YYYY-MM.jsonl and returns how many were written.
func (a *JournalArchiver) ArchiveJournal(ctx context.Context, before time.Time) (int64, error) {
	records, err := a.journal.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive journal query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive journal marshal: %w", err)
	}

	path := archivePath("journal_trades", before)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), archivePartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive journal upload: %w", err)
	}

	count := int64(len(records))
	if err := a.audit.Log(ctx, "archive.journal_trades", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive journal audit log: %w", err)
	}
	return count, nil
}

// archivePath partitions archive files by the cutoff's year and month,
// e.g. archive/journal_trades/2025-01.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL encodes one compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
