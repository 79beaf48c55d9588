package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RunSummary describes one pipeline run.
type RunSummary struct {
	RunID     string
	Mode      string
	Output    string // cleaned file written or read
	FillsIn   int
	Merged    int // fills folded into an earlier trade
	Written   int
	RowErrors int
	Recovered int            // rows kept through a lenient default
	Published map[string]int // sink name -> new records
	Failed    int
	Archived  int64
	Elapsed   time.Duration
	Err       error
}

// Event returns the event type of the summary.
func (s RunSummary) Event() string {
	if s.Err != nil {
		return EventRunFailed
	}
	return EventRunComplete
}

// Title returns a one-line heading.
func (s RunSummary) Title() string {
	if s.Err != nil {
		return fmt.Sprintf("Trade journal %s run failed", s.Mode)
	}
	return fmt.Sprintf("Trade journal %s run complete", s.Mode)
}

// Message renders the non-empty parts of the summary, one per line.
func (s RunSummary) Message() string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	if s.Err != nil {
		add("error: %v", s.Err)
	}
	if s.Output != "" {
		add("file: %s", s.Output)
	}
	if s.FillsIn > 0 {
		add("fills: %d, trades: %d, merged fills: %d", s.FillsIn, s.Written, s.Merged)
	}
	if s.RowErrors > 0 {
		add("rejected rows: %d", s.RowErrors)
	}
	if s.Recovered > 0 {
		add("rows kept with defaults: %d", s.Recovered)
	}
	if len(s.Published) > 0 {
		sinks := make([]string, 0, len(s.Published))
		for name := range s.Published {
			sinks = append(sinks, name)
		}
		sort.Strings(sinks)
		parts := make([]string, 0, len(sinks))
		for _, name := range sinks {
			parts = append(parts, fmt.Sprintf("%s %d", name, s.Published[name]))
		}
		add("published: %s", strings.Join(parts, ", "))
	}
	if s.Failed > 0 {
		add("failed records: %d", s.Failed)
	}
	if s.Archived > 0 {
		add("archived rows: %d", s.Archived)
	}
	if s.Elapsed > 0 {
		add("elapsed: %s", s.Elapsed.Round(time.Millisecond))
	}
	if s.RunID != "" {
		add("run: %s", s.RunID)
	}
	return strings.Join(lines, "\n")
}
