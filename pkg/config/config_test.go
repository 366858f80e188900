package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/tzl-ops/flightarchive/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestManager_Layering(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "system.yaml")
	project := filepath.Join(dir, "project.yaml")
	writeFile(t, system, `
archive:
  root: /srv/archive
extraction:
  workers: 2
  round_trip: split
output:
  compression: zstd
`)
	writeFile(t, project, `
extraction:
  workers: 8
checkpoint:
  backend: file
  ttl: 48h
`)

	m := NewManagerWithPaths([]string{system, filepath.Join(dir, "missing.yaml"), project}, "")
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()

	if cfg.Archive.Root != "/srv/archive" {
		t.Errorf("Expected root from system file, got %q", cfg.Archive.Root)
	}
	if cfg.Extraction.Workers != 8 {
		t.Errorf("Expected project file to override workers, got %d", cfg.Extraction.Workers)
	}
	if cfg.Extraction.RoundTrip != "split" {
		t.Errorf("Expected split, got %q", cfg.Extraction.RoundTrip)
	}
	if cfg.Extraction.HomeAirport != "TZL" {
		t.Errorf("Expected default home airport to survive, got %q", cfg.Extraction.HomeAirport)
	}
	if cfg.Checkpoint.TTL != 48*time.Hour {
		t.Errorf("Expected 48h TTL, got %v", cfg.Checkpoint.TTL)
	}
	if got := m.GetPaths(); len(got) != 2 {
		t.Errorf("Expected 2 loaded paths, got %v", got)
	}
}

func TestManager_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeFile(t, file, "archive:\n  root: /from/file\n")

	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "FLIGHTARCHIVE_CSV=/from/dotenv/flights.csv\nFLIGHTARCHIVE_ROOT=/from/dotenv\n")

	t.Setenv("FLIGHTARCHIVE_ROOT", "/from/env")
	t.Setenv("FLIGHTARCHIVE_WORKERS", "3")
	t.Setenv("FLIGHTARCHIVE_PRETTY", "false")
	t.Setenv("FLIGHTARCHIVE_OTEL_ENDPOINT", "collector:4317")
	os.Unsetenv("FLIGHTARCHIVE_CSV")
	t.Cleanup(func() { os.Unsetenv("FLIGHTARCHIVE_CSV") })

	m := NewManagerWithPaths([]string{file}, envFile)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()

	if cfg.Archive.Root != "/from/env" {
		t.Errorf("Expected environment to win over .env and file, got %q", cfg.Archive.Root)
	}
	if cfg.Output.CSV != "/from/dotenv/flights.csv" {
		t.Errorf("Expected csv path from .env, got %q", cfg.Output.CSV)
	}
	if cfg.Extraction.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Extraction.Workers)
	}
	if cfg.Output.Pretty {
		t.Error("Expected pretty disabled")
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("Expected telemetry enabled at collector:4317, got %+v", cfg.Telemetry)
	}
}

func TestManager_BadEnv(t *testing.T) {
	t.Setenv("FLIGHTARCHIVE_WORKERS", "many")

	m := NewManagerWithPaths(nil, "")
	err := m.Load()
	if !apperrors.IsCode(err, apperrors.CodeInvalidConfig) {
		t.Errorf("Expected E501, got %v", err)
	}
}

func TestManager_BadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, file, "extraction: [unclosed\n")

	err := NewManagerWithPaths([]string{file}, "").Load()
	if !apperrors.IsCode(err, apperrors.CodeInvalidConfig) {
		t.Errorf("Expected E501, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"split upper case", func(c *Config) { c.Extraction.RoundTrip = "SPLIT" }, true},
		{"bad round trip", func(c *Config) { c.Extraction.RoundTrip = "both" }, false},
		{"bad fallback", func(c *Config) { c.Extraction.OnFallback = "ignore" }, false},
		{"bad compression", func(c *Config) { c.Output.Compression = "lz4" }, false},
		{"bad home airport", func(c *Config) { c.Extraction.HomeAirport = "TUZLA" }, false},
		{"negative workers", func(c *Config) { c.Extraction.Workers = -1 }, false},
		{"redis without addr", func(c *Config) { c.Checkpoint.Backend = "redis" }, false},
		{"redis with addr", func(c *Config) {
			c.Checkpoint.Backend = "redis"
			c.Checkpoint.RedisAddr = "localhost:6379"
		}, true},
		{"upload not s3", func(c *Config) { c.Output.Upload = "/tmp/out" }, false},
		{"upload s3", func(c *Config) { c.Output.Upload = "s3://bucket/exports/" }, true},
		{"two errors", func(c *Config) {
			c.Output.Compression = "lz4"
			c.Log.Format = "xml"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.valid {
				t.Fatalf("Validate() = %v, want valid=%v", err, tt.valid)
			}
			if err != nil && !apperrors.IsCode(err, apperrors.CodeInvalidConfig) {
				t.Errorf("Expected E501, got %v", err)
			}
		})
	}
}

func TestOpenCheckpoint(t *testing.T) {
	store, err := CheckpointConfig{Backend: "none"}.OpenCheckpoint(context.Background())
	if err != nil || store != nil {
		t.Errorf("Expected no store for none backend, got %v, %v", store, err)
	}

	dir := filepath.Join(t.TempDir(), "cp")
	store, err = CheckpointConfig{Backend: "file", Dir: dir}.OpenCheckpoint(context.Background())
	if err != nil {
		t.Fatalf("OpenCheckpoint failed: %v", err)
	}
	if store.Name() != "file" {
		t.Errorf("Expected file store, got %s", store.Name())
	}
}

func TestManager_Marshal(t *testing.T) {
	m := NewManagerWithPaths(nil, "")
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}
	m.Get().Checkpoint.RedisPassword = "secret"

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected YAML output")
	}
	for _, secret := range []string{"secret", "redis_password"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("Expected %q to be omitted from marshaled config", secret)
		}
	}
}
