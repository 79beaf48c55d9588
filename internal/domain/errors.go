package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMalformedPnl       = errors.New("malformed pnl")
	ErrMissingDuration    = errors.New("missing duration")
	ErrMalformedField     = errors.New("malformed field")
	ErrMissingColumns     = errors.New("missing required columns")
	ErrInputNotFound      = errors.New("input file not found")
	ErrNoTrades           = errors.New("no trades")
	ErrNotFound           = errors.New("not found")
	ErrLockHeld           = errors.New("lock already held")
	ErrRateLimited        = errors.New("rate limited")
)

// RowError records why a single source row was excluded from a batch.
type RowError struct {
	Row   int
	Stage string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
