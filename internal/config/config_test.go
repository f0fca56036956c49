package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			InstanceID:             "test",
			HTTPListen:             ":8080",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 30,
		},
		Discover: DiscoverConfig{
			RouteViewsCollectors: []string{"route-views2"},
			RISCollectors:        []string{"rrc00"},
		},
		Ingest: IngestConfig{
			Threads:        4,
			MergeBatchHint: 2,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_NoCollectors(t *testing.T) {
	cfg := validConfig()
	cfg.Discover.RouteViewsCollectors = nil
	cfg.Discover.RISCollectors = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when no collectors configured")
	}
}

func TestValidate_ThreadsZero(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.Threads = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threads = 0")
	}
}

func TestValidate_MergeBatchHintZero(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.MergeBatchHint = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for merge_batch_hint = 0")
	}
}

func TestValidate_ShutdownTimeoutZero(t *testing.T) {
	cfg := validConfig()
	cfg.Service.ShutdownTimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for shutdown_timeout_seconds = 0")
	}
}

func writeMinimalYAML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	data := `
discover:
  route_views_collectors:
    - "route-views2"
  ris_collectors:
    - "rrc00"
ingest:
  threads: 8
`
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_EnvOverrideLogLevel(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ASPATH_MINER_SERVICE__LOG_LEVEL", "debug")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Errorf("expected log_level 'debug' from env, got %q", cfg.Service.LogLevel)
	}
}

func TestLoad_EnvOverrideThreads(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ASPATH_MINER_INGEST__THREADS", "16")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ingest.Threads != 16 {
		t.Errorf("expected threads 16 from env, got %d", cfg.Ingest.Threads)
	}
}

func TestLoad_EnvZeroThreadsFailsValidation(t *testing.T) {
	p := writeMinimalYAML(t)
	t.Setenv("ASPATH_MINER_INGEST__THREADS", "0")

	_, err := Load(p)
	if err == nil {
		t.Fatal("expected validation error for threads=0 via env")
	}
}

func TestLoad_DefaultsApplyWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ingest.Threads != 4 {
		t.Errorf("expected default threads 4, got %d", cfg.Ingest.Threads)
	}
	if len(cfg.Discover.RouteViewsCollectors) == 0 {
		t.Error("expected default route-views collectors to be populated")
	}
}
