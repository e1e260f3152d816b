package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "SIGNAL_SYMBOLS", "TICK_INTERVAL", "SIGNAL_LANGUAGE", "COOLDOWN_SECONDS", "LOG_LEVEL"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != defaultDatabaseURL {
		t.Fatalf("Database.URL = %q, want the hardcoded default", cfg.Database.URL)
	}
	if len(cfg.Detection.Symbols) == 0 {
		t.Fatal("expected default symbols to be populated")
	}
	if cfg.Detection.TickInterval != 60*time.Second {
		t.Fatalf("TickInterval = %v, want 60s default", cfg.Detection.TickInterval)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgresql://u:p@host:5432/db")
	os.Setenv("SIGNAL_SYMBOLS", "btcusdt, ethusdt")
	os.Setenv("COOLDOWN_SECONDS", "120")

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgresql://u:p@host:5432/db" {
		t.Fatalf("Database.URL = %q, want env override", cfg.Database.URL)
	}
	if len(cfg.Detection.Symbols) != 2 || cfg.Detection.Symbols[0] != "BTCUSDT" || cfg.Detection.Symbols[1] != "ETHUSDT" {
		t.Fatalf("Detection.Symbols = %v, want uppercased [BTCUSDT ETHUSDT]", cfg.Detection.Symbols)
	}
	if cfg.Cooldown.Seconds != 120 {
		t.Fatalf("Cooldown.Seconds = %v, want 120", cfg.Cooldown.Seconds)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	yamlPath := filepath.Join(t.TempDir(), "config.yaml")
	contents := "detection:\n  symbols:\n    - BTCUSDT\n  tick_interval: 30s\nlocalize:\n  language: en\n"
	if err := os.WriteFile(yamlPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(yamlPath, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Detection.TickInterval != 30*time.Second {
		t.Fatalf("TickInterval = %v, want 30s from YAML", cfg.Detection.TickInterval)
	}
	if cfg.Localize.Language != "en" {
		t.Fatalf("Localize.Language = %q, want en from YAML", cfg.Localize.Language)
	}
}

func TestValidateRejectsEmptySymbols(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{URL: "postgresql://x"}, Detection: DetectionConfig{TickInterval: time.Second}, Cooldown: CooldownConfig{Seconds: 1}}
	if err := validate(cfg); err == nil {
		t.Fatal("expected validate() to reject an empty symbol universe")
	}
}

func TestValidateRejectsSubSecondTickInterval(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{URL: "postgresql://x"},
		Detection: DetectionConfig{Symbols: []string{"BTCUSDT"}, TickInterval: 500 * time.Millisecond},
		Cooldown:  CooldownConfig{Seconds: 1},
	}
	if err := validate(cfg); err == nil {
		t.Fatal("expected validate() to reject a sub-second tick interval")
	}
}

func TestAdminAddress(t *testing.T) {
	cfg := &Config{Admin: AdminConfig{Host: "0.0.0.0", Port: 8090}}
	if got, want := cfg.AdminAddress(), "0.0.0.0:8090"; got != want {
		t.Fatalf("AdminAddress() = %q, want %q", got, want)
	}
}
