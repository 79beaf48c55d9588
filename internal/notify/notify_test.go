package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name   string
	titles []string
	msgs   []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, message string) error {
	r.titles = append(r.titles, title)
	r.msgs = append(r.msgs, message)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestNotifierFiltersEvents(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		event  string
		want   int
	}{
		{"allowed", []string{EventRunComplete}, EventRunComplete, 1},
		{"filtered", []string{EventRunFailed}, EventRunComplete, 0},
		{"empty set allows all", nil, "anything", 1},
		{"whitespace trimmed", []string{" run_failed "}, EventRunFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSender{name: "rec"}
			n := NewNotifier([]Sender{s}, tt.events, discardLogger())
			if err := n.Notify(context.Background(), tt.event, "t", "m"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s.titles) != tt.want {
				t.Errorf("expected %d sends, got %d", tt.want, len(s.titles))
			}
		})
	}
}

func TestNotifierKeepsGoingAfterFailure(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventRunComplete, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Errorf("expected combined error naming bad sender, got %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("expected the second sender to still receive the message")
	}
}

func TestRunSummary(t *testing.T) {
	s := RunSummary{
		RunID:     "r1",
		Mode:      "full",
		Output:    "Cleaned_Trades_02.12.2024-03.01.2025.csv",
		FillsIn:   4,
		Merged:    1,
		Written:   3,
		RowErrors: 1,
		Published: map[string]int{"redis": 2, "postgres": 3},
		Failed:    1,
		Elapsed:   1500 * time.Millisecond,
	}
	if s.Event() != EventRunComplete {
		t.Errorf("expected %s, got %s", EventRunComplete, s.Event())
	}
	want := strings.Join([]string{
		"file: Cleaned_Trades_02.12.2024-03.01.2025.csv",
		"fills: 4, trades: 3, merged fills: 1",
		"rejected rows: 1",
		"published: postgres 3, redis 2",
		"failed records: 1",
		"elapsed: 1.5s",
		"run: r1",
	}, "\n")
	if got := s.Message(); got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}

	s.Err = errors.New("input missing")
	if s.Event() != EventRunFailed || !strings.HasPrefix(s.Message(), "error: input missing") {
		t.Errorf("unexpected failed summary %q / %q", s.Event(), s.Message())
	}
	if s.Title() != "Trade journal full run failed" {
		t.Errorf("unexpected title %q", s.Title())
	}
}

func TestTelegramSender(t *testing.T) {
	var (
		path    string
		payload map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "tok", "42")
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if payload["chat_id"] != "42" || payload["text"] != "*Title*\nbody" || payload["parse_mode"] != "Markdown" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestDiscordSenderStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"no content", http.StatusNoContent, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var content string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var p map[string]string
				_ = json.NewDecoder(r.Body).Decode(&p)
				content = p["content"]
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewDiscordSender(srv.URL).Send(context.Background(), "T", "m")
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			if content != "**T**\nm" {
				t.Errorf("unexpected content %q", content)
			}
		})
	}
}
