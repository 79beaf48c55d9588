package redis

import (
	"testing"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestKeySchemas(t *testing.T) {
	k := domain.TradeKey{Symbol: "MNQ", BoughtTime: "2024-12-03 18:00:00"}

	if got := recordKey(k); got != "journal:trade:MNQ:2024-12-03 18:00:00" {
		t.Errorf("unexpected record key %q", got)
	}
	if got := barsKey(domain.BarQuery{Symbol: "MNQ=F", Range: "7d", Interval: "1m"}); got != "bars:MNQ=F:1m:7d" {
		t.Errorf("unexpected bars key %q", got)
	}
	if got := lockKey("publish"); got != "lock:publish" {
		t.Errorf("unexpected lock key %q", got)
	}
	if got := rateLimitKey(recordRateKey); got != "ratelimit:journal:records" {
		t.Errorf("unexpected rate limit key %q", got)
	}
}

func TestIndexMemberRoundTrip(t *testing.T) {
	k := domain.TradeKey{Symbol: "NQ", BoughtTime: "2025-01-02 17:31:05"}
	got, ok := parseIndexMember(indexMember(k))
	if !ok || got != k {
		t.Errorf("expected %v, got %v (ok=%v)", k, got, ok)
	}

	for _, bad := range []string{"", "NQ", "|2025-01-02 17:31:05", "NQ|"} {
		if _, ok := parseIndexMember(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestOptions(t *testing.T) {
	opts := options(ClientConfig{Addr: "cache:6380", DB: 2, PoolSize: 4, TLSEnabled: true})
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.PoolSize != 4 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.TLSConfig == nil {
		t.Error("expected TLS config when TLSEnabled")
	}
	if options(ClientConfig{Addr: "x"}).TLSConfig != nil {
		t.Error("expected no TLS config by default")
	}
}
