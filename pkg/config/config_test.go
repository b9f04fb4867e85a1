package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServiceName != "user-service" {
		t.Errorf("expected service name 'user-service', got %q", cfg.ServiceName)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.UserExchange != "users.events" {
		t.Errorf("expected exchange 'users.events', got %q", cfg.UserExchange)
	}
	if !cfg.Validation.Enabled || !cfg.Audit.Enabled || !cfg.Perf.Enabled {
		t.Error("expected all pipeline aspects enabled by default")
	}
	if cfg.Audit.MaxParameterLength != 200 {
		t.Errorf("expected max parameter length 200, got %d", cfg.Audit.MaxParameterLength)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_NAME", "other_db")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("INTERNAL_SERVICE_ALLOWLIST", "order-service, billing-service")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")

	cfg := Load()

	if cfg.HTTPPort != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.HTTPPort)
	}
	if cfg.DBName != "other_db" {
		t.Errorf("expected db name other_db, got %q", cfg.DBName)
	}
	if !cfg.CacheEnabled {
		t.Error("expected cache enabled")
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("expected cache TTL 60s, got %v", cfg.CacheTTL)
	}
	if cfg.Audit.Enabled {
		t.Error("expected audit disabled")
	}
	if len(cfg.InternalServiceAllowlist) != 2 || cfg.InternalServiceAllowlist[1] != "billing-service" {
		t.Errorf("unexpected allowlist: %v", cfg.InternalServiceAllowlist)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}
