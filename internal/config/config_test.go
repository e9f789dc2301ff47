package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PORT":             "",
		"STATION_ID":       "",
		"DEFAULT_RECOVERY": "",
		"MARKET_MAX_AGE":   "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected default port %q", cfg.Port)
	}
	if cfg.StationID != 60003760 {
		t.Fatalf("unexpected default station %d", cfg.StationID)
	}
	if cfg.DefaultRecovery != 0.906 {
		t.Fatalf("unexpected default recovery %v", cfg.DefaultRecovery)
	}
	if cfg.MarketMaxAge != 24*time.Hour {
		t.Fatalf("unexpected market max age %v", cfg.MarketMaxAge)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PORT":           "9000",
		"STATION_ID":     "60008494",
		"MARKET_MAX_AGE": "1h",
		"RATE_LIMIT_MAX": "5",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StationID != 60008494 {
		t.Fatalf("unexpected station %d", cfg.StationID)
	}
	if cfg.MarketMaxAge != time.Hour {
		t.Fatalf("unexpected max age %v", cfg.MarketMaxAge)
	}
	if cfg.RateLimitMax != 5 {
		t.Fatalf("unexpected rate limit %d", cfg.RateLimitMax)
	}
	if cfg.HTTPAddr() != ":9000" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr())
	}
}

func TestLoadRejectsBadRecovery(t *testing.T) {
	if _, err := LoadForTests(map[string]string{"DEFAULT_RECOVERY": "1.5"}); err == nil {
		t.Fatal("expected error for recovery outside [0,1]")
	}
}
