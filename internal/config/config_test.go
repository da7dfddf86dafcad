package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Server.Port = 0
	cfg.Ledger.EventBuffer = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"log_level", "server: port", "event_buffer"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateArchiveMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	cfg.Archive.RetentionDays = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "s3: bucket") || !strings.Contains(err.Error(), "retention_days") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLiteModeSkipsBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "lite"
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	cfg.S3 = S3Config{}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("lite mode should not require backends: %v", err)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "lite"
log_level = "debug"

[ledger]
escrow_account = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
faucet_amount = 500000000

[server]
port = 9090
rate_limit = 25
rate_limit_window = "30s"
cors_origins = ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "lite" || cfg.LogLevel != "debug" {
		t.Fatalf("mode/log_level = %q/%q", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Ledger.FaucetAmount != 500000000 {
		t.Fatalf("faucet_amount = %d", cfg.Ledger.FaucetAmount)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitWindow.Duration != 30*time.Second {
		t.Fatalf("rate_limit_window = %v", cfg.Server.RateLimitWindow.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Fatalf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
	// Untouched sections keep defaults.
	if cfg.Postgres.Port != 5432 {
		t.Fatalf("postgres port default lost: %d", cfg.Postgres.Port)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTD_MODE", "archive")
	t.Setenv("PREDICTD_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("PREDICTD_SERVER_RATE_LIMIT", "100")
	t.Setenv("PREDICTD_SERVER_RATE_LIMIT_WINDOW", "5s")
	t.Setenv("PREDICTD_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("PREDICTD_POSTGRES_RUN_MIGRATIONS", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "archive" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Fatalf("password = %q", cfg.Postgres.Password)
	}
	if cfg.Server.RateLimit != 100 {
		t.Fatalf("rate_limit = %d", cfg.Server.RateLimit)
	}
	if cfg.Server.RateLimitWindow.Duration != 5*time.Second {
		t.Fatalf("rate_limit_window = %v", cfg.Server.RateLimitWindow.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Postgres.RunMigrations {
		t.Fatal("run_migrations should be overridden to false")
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("PREDICTD_SERVER_PORT", "not-a-number")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port != 8000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := duration{90 * time.Second}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var back duration
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back.Duration != d.Duration {
		t.Fatalf("round trip: %v != %v", back.Duration, d.Duration)
	}
}
