package pipeline

import (
	"testing"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

func bar(t *testing.T, ts, high, low string) domain.Bar {
	return domain.Bar{Timestamp: at(t, ts), High: dec(high), Low: dec(low)}
}

func TestRangeATR(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-12-03 18:02:00", "103", "100"),
		bar(t, "2024-12-03 18:00:00", "101", "100"),
		bar(t, "2024-12-03 18:01:00", "102", "100"),
	}
	got := RangeATR(bars, 2)
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	if got[0].Value.Valid {
		t.Errorf("sample 0 = %s, want null warm-up", got[0].Value.Decimal)
	}
	want := []string{"", "1.5", "2.5"}
	for i := 1; i < 3; i++ {
		if !got[i].Value.Valid || !got[i].Value.Decimal.Equal(dec(want[i])) {
			t.Errorf("sample %d = %v, want %s", i, got[i].Value, want[i])
		}
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Errorf("samples not ascending at %d", i)
		}
	}
}

func TestRangeATRMissingBarVoidsWindows(t *testing.T) {
	bars := []domain.Bar{
		bar(t, "2024-12-03 18:00:00", "101", "100"),
		{Timestamp: at(t, "2024-12-03 18:01:00"), Missing: true},
		bar(t, "2024-12-03 18:02:00", "103", "100"),
		bar(t, "2024-12-03 18:03:00", "104", "100"),
	}
	got := RangeATR(bars, 2)
	if len(got) != 4 {
		t.Fatalf("got %d samples, want 4", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i].Value.Valid {
			t.Errorf("sample %d = %s, want null", i, got[i].Value.Decimal)
		}
	}
	if !got[3].Value.Valid || !got[3].Value.Decimal.Equal(dec("3.5")) {
		t.Errorf("sample 3 = %v, want 3.5", got[3].Value)
	}
}

func TestRangeATRShortSeries(t *testing.T) {
	bars := []domain.Bar{bar(t, "2024-12-03 18:00:00", "101", "100")}
	got := RangeATR(bars, 14)
	if len(got) != 1 || got[0].Value.Valid {
		t.Errorf("got %v, want one null sample", got)
	}
}

func sample(t *testing.T, ts, v string) domain.ATRSample {
	return domain.ATRSample{Timestamp: at(t, ts), Value: decimal.NullDecimal{Decimal: dec(v), Valid: true}}
}

func TestAlignVolatility(t *testing.T) {
	fine := []domain.ATRSample{
		sample(t, "2024-12-03 18:02:00", "3.04"),
		sample(t, "2024-12-03 18:00:00", "1.25"),
		sample(t, "2024-12-03 18:01:00", "2.36"),
	}
	coarse := []domain.ATRSample{
		sample(t, "2024-12-03 18:00:00", "7.75"),
	}
	entries := []string{
		"2024-12-03 17:59:59",
		"2024-12-03 18:00:00",
		"2024-12-03 18:01:30",
		"2024-12-03 18:05:00",
	}
	trades := make([]domain.EnrichedTrade, len(entries))
	for i, e := range entries {
		trades[i].EntryTime = at(t, e)
	}

	got := AlignVolatility(trades, fine, coarse, 1)

	wantFine := []string{"", "1.2", "2.4", "3"}
	wantCoarse := []string{"", "7.8", "7.8", "7.8"}
	for i := range got {
		checkNull(t, "fine", i, got[i].ATRFine, wantFine[i])
		checkNull(t, "coarse", i, got[i].ATRCoarse, wantCoarse[i])
	}
	if trades[1].ATRFine.Valid {
		t.Errorf("input trades were modified")
	}
}

func TestAlignVolatilityMonotonic(t *testing.T) {
	var series []domain.ATRSample
	start := at(t, "2024-12-03 18:00:00")
	for i := 0; i < 20; i++ {
		series = append(series, domain.ATRSample{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Value:     decimal.NullDecimal{Decimal: decimal.NewFromInt(int64(i)), Valid: true},
		})
	}
	trades := make([]domain.EnrichedTrade, 40)
	for i := range trades {
		trades[i].EntryTime = start.Add(time.Duration(i*30) * time.Second)
	}

	got := AlignVolatility(trades, series, nil, 1)
	prev := decimal.NewFromInt(-1)
	for i, tr := range got {
		if !tr.ATRFine.Valid {
			t.Fatalf("trade %d: null sample", i)
		}
		if tr.ATRFine.Decimal.LessThan(prev) {
			t.Errorf("trade %d: sample %s precedes earlier %s", i, tr.ATRFine.Decimal, prev)
		}
		prev = tr.ATRFine.Decimal
		if tr.ATRCoarse.Valid {
			t.Errorf("trade %d: coarse set from empty series", i)
		}
	}
}

func checkNull(t *testing.T, label string, i int, got decimal.NullDecimal, want string) {
	t.Helper()
	if want == "" {
		if got.Valid {
			t.Errorf("%s[%d] = %s, want null", label, i, got.Decimal)
		}
		return
	}
	if !got.Valid || !got.Decimal.Equal(dec(want)) {
		t.Errorf("%s[%d] = %v, want %s", label, i, got, want)
	}
}
