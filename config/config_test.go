package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("expected 30s heartbeat, got %s", cfg.HeartbeatInterval)
	}
	if cfg.SendBuffer != 256 {
		t.Fatalf("expected send buffer 256, got %d", cfg.SendBuffer)
	}
	if cfg.HistoryKeep != 50 {
		t.Fatalf("expected history keep 50, got %d", cfg.HistoryKeep)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Fatalf("expected default origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HEARTBEAT_INTERVAL", "10s")
	t.Setenv("SEND_BUFFER", "64")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Fatalf("port override ignored: %s", cfg.Port)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Fatalf("heartbeat override ignored: %s", cfg.HeartbeatInterval)
	}
	if cfg.SendBuffer != 64 {
		t.Fatalf("send buffer override ignored: %d", cfg.SendBuffer)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins override ignored: %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "soon")
	t.Setenv("SEND_BUFFER", "-1")

	cfg := Load()

	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("invalid duration should fall back, got %s", cfg.HeartbeatInterval)
	}
	if cfg.SendBuffer != 256 {
		t.Fatalf("invalid int should fall back, got %d", cfg.SendBuffer)
	}
}
