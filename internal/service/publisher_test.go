package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestPublishSkipsExistingKeys(t *testing.T) {
	records := []domain.JournalRecord{
		rec(t, "MNQ", "2024-12-03 18:00:00"),
		rec(t, "NQ", "2024-12-03 19:40:00"),
		rec(t, "MYM", "2024-12-04 17:00:00"),
	}
	tabular := &fakeSink{name: "postgres", existing: map[domain.TradeKey]struct{}{records[0].Key(): {}}}
	docs := &fakeSink{name: "redis", existing: map[domain.TradeKey]struct{}{}}
	lock := &fakeLock{}
	audit := &fakeAudit{}

	p := NewPublisher([]domain.JournalSink{tabular, docs}, lock, time.Minute, audit, discardLogger())
	res, err := p.Publish(context.Background(), "run-1", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tabular.appended) != 2 || tabular.appended[0].Symbol != "NQ" {
		t.Errorf("expected postgres to receive NQ and MYM, got %v", tabular.appended)
	}
	if len(docs.appended) != 3 {
		t.Errorf("expected redis to receive 3 records, got %d", len(docs.appended))
	}
	if got := res.Published(); got["postgres"] != 2 || got["redis"] != 3 {
		t.Errorf("unexpected published counts %v", got)
	}
	if res.Sinks[0].Existing != 1 {
		t.Errorf("expected 1 existing record in postgres, got %d", res.Sinks[0].Existing)
	}
	if len(res.Failed) != 0 {
		t.Errorf("expected no failures, got %d", len(res.Failed))
	}
	if lock.acquired != publishLockKey || !lock.released {
		t.Error("expected the publish lock to be taken and released")
	}
	if len(audit.events) != 1 || audit.events[0] != "journal.published" {
		t.Errorf("unexpected audit events %v", audit.events)
	}
}

func TestPublishCollectsFailures(t *testing.T) {
	records := []domain.JournalRecord{
		rec(t, "MNQ", "2024-12-03 18:00:00"),
		rec(t, "NQ", "2024-12-03 19:40:00"),
		rec(t, "MYM", "2024-12-04 17:00:00"),
	}
	tests := []struct {
		name       string
		sinks      []domain.JournalSink
		wantFailed []string
	}{
		{
			name: "per-record failures are unioned in input order",
			sinks: []domain.JournalSink{
				&fakeSink{name: "a", failOn: map[string]bool{"MYM": true}},
				&fakeSink{name: "b", failOn: map[string]bool{"MNQ": true, "MYM": true}},
			},
			wantFailed: []string{"MNQ", "MYM"},
		},
		{
			name: "whole append failure fails every fresh record",
			sinks: []domain.JournalSink{
				&fakeSink{name: "a", existing: map[domain.TradeKey]struct{}{records[1].Key(): {}}, appendErr: errors.New("down")},
			},
			wantFailed: []string{"MNQ", "MYM"},
		},
		{
			name: "unreadable keys fail everything for that sink",
			sinks: []domain.JournalSink{
				&fakeSink{name: "a", keysErr: errors.New("down")},
				&fakeSink{name: "b"},
			},
			wantFailed: []string{"MNQ", "NQ", "MYM"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPublisher(tt.sinks, nil, 0, nil, discardLogger())
			res, err := p.Publish(context.Background(), "run", records)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Failed) != len(tt.wantFailed) {
				t.Fatalf("expected %d failed, got %d", len(tt.wantFailed), len(res.Failed))
			}
			for i, sym := range tt.wantFailed {
				if res.Failed[i].Symbol != sym {
					t.Errorf("failed[%d]: expected %s, got %s", i, sym, res.Failed[i].Symbol)
				}
			}
		})
	}
}

func TestPublishDropsRepeatedKeys(t *testing.T) {
	r := rec(t, "MNQ", "2024-12-03 18:00:00")
	sink := &fakeSink{name: "a"}
	p := NewPublisher([]domain.JournalSink{sink}, nil, 0, nil, discardLogger())
	if _, err := p.Publish(context.Background(), "run", []domain.JournalRecord{r, r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.appended) != 1 {
		t.Errorf("expected 1 appended record, got %d", len(sink.appended))
	}
}

func TestPublishLockHeld(t *testing.T) {
	sink := &fakeSink{name: "a"}
	lock := &fakeLock{err: domain.ErrLockHeld}
	p := NewPublisher([]domain.JournalSink{sink}, lock, time.Minute, nil, discardLogger())

	_, err := p.Publish(context.Background(), "run", []domain.JournalRecord{rec(t, "MNQ", "2024-12-03 18:00:00")})
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("expected ErrLockHeld, got %v", err)
	}
	if len(sink.appended) != 0 {
		t.Error("expected nothing appended without the lock")
	}
}
