package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
	"github.com/alanyoungcy/tradejournal/internal/tradefile"
)

// CleanMode turns the fill export into a dated cleaned file and returns the
// records written.
func (a *App) CleanMode(ctx context.Context, deps *Dependencies, sum *notify.RunSummary) ([]domain.JournalRecord, error) {
	files := a.cfg.Files
	input := filepath.Join(files.DataDir, files.InputName)

	fills, readErrs, err := tradefile.ReadFillsFile(input)
	if err != nil {
		return nil, fmt.Errorf("app: read fills: %w", err)
	}
	if len(readErrs) > 0 && pipeline.RowPolicy(a.cfg.Pipeline.RowErrors) == pipeline.RowPolicyAbort {
		return nil, fmt.Errorf("app: read fills: %w", &readErrs[0])
	}
	a.logRowErrors(ctx, input, readErrs)

	fine, coarse := a.volatility(ctx, deps)

	res, err := deps.Processor.Process(fills, fine, coarse)
	if err != nil {
		return nil, fmt.Errorf("app: process fills: %w", err)
	}
	sum.FillsIn = res.FillsIn
	sum.Merged = res.Merged
	sum.RowErrors = len(readErrs) + len(res.RowErrors)
	sum.Recovered = len(res.Recovered)

	path, err := tradefile.WriteCleanedFile(files.DataDir, files.OutputPrefix, res.Records)
	if err != nil {
		return nil, fmt.Errorf("app: write cleaned file: %w", err)
	}
	sum.Written = len(res.Records)
	sum.Output = filepath.Base(path)
	a.logger.InfoContext(ctx, "cleaned file written",
		slog.String("path", path),
		slog.Int("trades", len(res.Records)),
	)

	if deps.Files != nil {
		data, err := tradefile.EncodeCleaned(res.Records)
		if err != nil {
			return nil, fmt.Errorf("app: encode cleaned file: %w", err)
		}
		key, err := deps.Files.UploadCleaned(ctx, sum.Output, data)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.logger.InfoContext(ctx, "cleaned file uploaded", slog.String("key", key))
	}

	a.audit(ctx, deps, "journal.cleaned", map[string]any{
		"run_id":    sum.RunID,
		"file":      sum.Output,
		"fills":     res.FillsIn,
		"trades":    len(res.Records),
		"rejected":  sum.RowErrors,
		"recovered": sum.Recovered,
	})
	return res.Records, nil
}

// PublishMode publishes the newest cleaned file to the journal sinks.
func (a *App) PublishMode(ctx context.Context, deps *Dependencies, sum *notify.RunSummary) error {
	records, err := a.latestCleaned(ctx, deps, sum)
	if err != nil {
		return err
	}
	return a.publish(ctx, deps, sum, records)
}

// FullMode cleans the export and publishes the result.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, sum *notify.RunSummary) error {
	records, err := a.CleanMode(ctx, deps, sum)
	if err != nil {
		return err
	}
	return a.publish(ctx, deps, sum, records)
}

// ArchiveMode exports journal rows older than the retention period.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies, sum *notify.RunSummary) error {
	if deps.Archiver == nil {
		return errors.New("app: archive mode needs postgres and s3")
	}
	days := a.cfg.Archive.RetentionDays
	cutoff := a.now().UTC().AddDate(0, 0, -days)
	a.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", days),
	)

	n, err := deps.Archiver.ArchiveJournal(ctx, cutoff)
	sum.Archived = n
	if err != nil {
		return fmt.Errorf("app: archive journal before %s: %w", cutoff.Format(domain.TimestampLayout), err)
	}
	a.logger.InfoContext(ctx, "archive run complete", slog.Int64("archived", n))
	return nil
}

// latestCleaned reads the newest local cleaned file, falling back to the
// bucket when the data directory has none.
func (a *App) latestCleaned(ctx context.Context, deps *Dependencies, sum *notify.RunSummary) ([]domain.JournalRecord, error) {
	files := a.cfg.Files

	var (
		records []domain.JournalRecord
		rowErrs []domain.RowError
		source  string
	)
	path, err := tradefile.LatestCleaned(files.DataDir, files.OutputPrefix)
	switch {
	case err == nil:
		source = path
		records, rowErrs, err = tradefile.ReadCleanedFile(path)
		if err != nil {
			return nil, fmt.Errorf("app: read cleaned file: %w", err)
		}
	case errors.Is(err, domain.ErrInputNotFound) && deps.Files != nil:
		key, kerr := deps.Files.LatestCleaned(ctx, files.OutputPrefix)
		if kerr != nil {
			return nil, fmt.Errorf("app: %w (local: %w)", kerr, err)
		}
		source = key
		records, rowErrs, err = deps.Files.ReadCleaned(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("app: read cleaned object: %w", err)
		}
	default:
		return nil, fmt.Errorf("app: %w", err)
	}

	a.logRowErrors(ctx, source, rowErrs)
	sum.Output = filepath.Base(source)
	sum.RowErrors += len(rowErrs)
	sum.Written = len(records)
	a.logger.InfoContext(ctx, "cleaned file loaded",
		slog.String("source", source),
		slog.Int("records", len(records)),
		slog.Int("rows_dropped", len(rowErrs)),
	)
	return records, nil
}

// publish sends records to the sinks and keeps whatever could not be
// stored in the failed-records file.
func (a *App) publish(ctx context.Context, deps *Dependencies, sum *notify.RunSummary, records []domain.JournalRecord) error {
	if deps.Publisher == nil {
		return errors.New("app: no journal sink configured")
	}
	if len(records) == 0 {
		a.logger.InfoContext(ctx, "nothing to publish")
		return nil
	}

	res, err := deps.Publisher.Publish(ctx, sum.RunID, records)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	sum.Published = res.Published()
	sum.Failed = len(res.Failed)

	var sinkErrs []error
	for _, s := range res.Sinks {
		if s.Err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}

	if len(res.Failed) > 0 {
		failedPath := filepath.Join(a.cfg.Files.DataDir, a.cfg.Files.FailedName)
		if err := tradefile.WriteFailedFile(failedPath, res.Failed); err != nil {
			return fmt.Errorf("app: write failed records: %w", err)
		}
		a.logger.WarnContext(ctx, "records not published",
			slog.Int("count", len(res.Failed)),
			slog.String("path", failedPath),
		)
		if deps.Files != nil {
			if _, err := deps.Files.UploadFailed(ctx, sum.RunID, res.Failed); err != nil {
				a.logger.WarnContext(ctx, "failed records upload failed", slog.String("error", err.Error()))
			}
		}
	}

	if len(sinkErrs) > 0 {
		return fmt.Errorf("app: publish: %w", errors.Join(sinkErrs...))
	}
	return nil
}

// volatility returns the fine and coarse ATR series. Without market data
// every ATR column is left empty.
func (a *App) volatility(ctx context.Context, deps *Dependencies) ([]domain.ATRSample, []domain.ATRSample) {
	if deps.Volatility == nil {
		return nil, nil
	}
	md := a.cfg.MarketData
	fine, coarse, err := deps.Volatility.Series(ctx,
		domain.BarQuery{Symbol: md.Symbol, Range: md.Range, Interval: md.FineInterval},
		domain.BarQuery{Symbol: md.Symbol, Range: md.Range, Interval: md.CoarseInterval},
	)
	if err != nil {
		a.logger.WarnContext(ctx, "market data unavailable, ATR columns left empty",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return fine, coarse
}

func (a *App) logRowErrors(ctx context.Context, source string, rowErrs []domain.RowError) {
	for _, re := range rowErrs {
		a.logger.WarnContext(ctx, "row rejected",
			slog.String("source", source),
			slog.Int("row", re.Row),
			slog.String("stage", re.Stage),
			slog.String("error", re.Err.Error()),
		)
	}
}

func (a *App) audit(ctx context.Context, deps *Dependencies, event string, detail map[string]any) {
	if deps.Audit == nil {
		return
	}
	if err := deps.Audit.Log(ctx, event, detail); err != nil {
		a.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
