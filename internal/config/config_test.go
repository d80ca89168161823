package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.ReceiverBaseURL != "http://127.0.0.1:5000" {
		t.Errorf("unexpected receiver url %q", cfg.ReceiverBaseURL)
	}
	if cfg.LivePollInterval != 2*time.Second {
		t.Errorf("unexpected live poll interval %v", cfg.LivePollInterval)
	}
	if cfg.PendingTimeout != 8*time.Second {
		t.Errorf("unexpected pending timeout %v", cfg.PendingTimeout)
	}
	if cfg.LiveMaxAge != 10*time.Second {
		t.Errorf("unexpected live max age %v", cfg.LiveMaxAge)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIVE_POLL_MS", "500")
	t.Setenv("PENDING_TIMEOUT_MS", "4000")
	t.Setenv("QUIET_FROM", "23:00")
	t.Setenv("QUIET_TO", "05:00")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LivePollInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms live poll, got %v", cfg.LivePollInterval)
	}
	if cfg.PendingTimeout != 4*time.Second {
		t.Errorf("expected 4s pending timeout, got %v", cfg.PendingTimeout)
	}
	if cfg.QuietFrom != "23:00" || cfg.QuietTo != "05:00" {
		t.Errorf("quiet window not loaded: %q %q", cfg.QuietFrom, cfg.QuietTo)
	}
}

func TestValidateRejectsLoneQuietBound(t *testing.T) {
	t.Setenv("QUIET_FROM", "23:00")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for QUIET_FROM without QUIET_TO")
	}
}

func TestValidateRejectsBadTradeVolume(t *testing.T) {
	t.Setenv("TRADE_VOLUME", "-1")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for negative TRADE_VOLUME")
	}
}
