package domain

import "context"

// JournalSink is a record-keeping surface that published trades are appended
// to. Implementations detect duplicates by TradeKey.
type JournalSink interface {
	// Name identifies the sink in logs and summaries.
	Name() string
	// ExistingKeys returns the keys of every record already stored.
	ExistingKeys(ctx context.Context) (map[TradeKey]struct{}, error)
	// Append stores records. It returns the records that could not be
	// stored; a non-nil error means the whole append failed.
	Append(ctx context.Context, records []JournalRecord) ([]JournalRecord, error)
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

// BarSource is the market-data collaborator.
type BarSource interface {
	FetchBars(ctx context.Context, q BarQuery) ([]Bar, error)
}
