package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/tradefile"
)

const (
	cleanedPrefix = "cleaned/"
	failedPrefix  = "failed/"
	csvType       = "text/csv"
)

// JournalFiles keeps copies of cleaned and failed-record CSV files in the
// bucket.
type JournalFiles struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewJournalFiles creates a JournalFiles over the given writer and reader.
func NewJournalFiles(writer domain.BlobWriter, reader domain.BlobReader) *JournalFiles {
	return &JournalFiles{writer: writer, reader: reader}
}

// CleanedKey is the object key of a cleaned file.
func CleanedKey(name string) string { return cleanedPrefix + name }

// FailedKey is the object key of the failed-record file of one run.
func FailedKey(runID string) string { return failedPrefix + runID + ".csv" }

// UploadCleaned stores a cleaned file under cleaned/<name>.
func (f *JournalFiles) UploadCleaned(ctx context.Context, name string, data []byte) (string, error) {
	key := CleanedKey(name)
	if err := f.writer.Put(ctx, key, bytes.NewReader(data), csvType); err != nil {
		return "", fmt.Errorf("s3blob: upload cleaned file: %w", err)
	}
	return key, nil
}

// UploadFailed stores the records a run could not publish under
// failed/<runID>.csv.
func (f *JournalFiles) UploadFailed(ctx context.Context, runID string, records []domain.JournalRecord) (string, error) {
	data, err := tradefile.EncodeCleaned(records)
	if err != nil {
		return "", fmt.Errorf("s3blob: encode failed records: %w", err)
	}
	key := FailedKey(runID)
	if err := f.writer.Put(ctx, key, bytes.NewReader(data), csvType); err != nil {
		return "", fmt.Errorf("s3blob: upload failed records: %w", err)
	}
	return key, nil
}

// LatestCleaned returns the key of the newest cleaned file in the bucket,
// or domain.ErrNotFound when there is none.
func (f *JournalFiles) LatestCleaned(ctx context.Context, prefix string) (string, error) {
	infos, err := f.reader.List(ctx, cleanedPrefix)
	if err != nil {
		return "", fmt.Errorf("s3blob: list cleaned files: %w", err)
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Path)
	}
	key, ok := tradefile.PickLatestCleaned(keys, prefix)
	if !ok {
		return "", fmt.Errorf("s3blob: no %s file under %s: %w", prefix, cleanedPrefix, domain.ErrNotFound)
	}
	return key, nil
}

// ReadCleaned downloads and parses the cleaned file at key.
func (f *JournalFiles) ReadCleaned(ctx context.Context, key string) ([]domain.JournalRecord, []domain.RowError, error) {
	body, err := f.reader.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	records, rowErrs, err := tradefile.ReadCleaned(body)
	if err != nil {
		return nil, nil, fmt.Errorf("s3blob: parse %s: %w", key, err)
	}
	return records, rowErrs, nil
}
