package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FORECAST_DEV_MODE", "true")
	t.Setenv("FORECAST_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Quota.MaxPredictions != 5 {
		t.Errorf("expected default quota 5, got %d", cfg.Quota.MaxPredictions)
	}
	if cfg.Database.Path != "data/forecast.db" {
		t.Errorf("unexpected default database path %q", cfg.Database.Path)
	}
	if time.Duration(cfg.Export.Interval) != time.Hour {
		t.Errorf("expected default export interval 1h, got %v", time.Duration(cfg.Export.Interval))
	}
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("FORECAST_DEV_MODE", "true")

	path := filepath.Join(t.TempDir(), "forecast.yaml")
	yaml := `
server:
  port: 9090
  read_timeout: 10s
quota:
  max_predictions: 3
export:
  interval: 30m
  storage:
    bucket: analytics
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if time.Duration(cfg.Server.ReadTimeout) != 10*time.Second {
		t.Errorf("expected read timeout 10s, got %v", time.Duration(cfg.Server.ReadTimeout))
	}
	if cfg.Quota.MaxPredictions != 3 {
		t.Errorf("expected quota 3, got %d", cfg.Quota.MaxPredictions)
	}
	if cfg.Export.Storage.Bucket != "analytics" {
		t.Errorf("expected bucket analytics, got %q", cfg.Export.Storage.Bucket)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("FORECAST_DEV_MODE", "true")
	t.Setenv("FORECAST_PORT", "7070")
	t.Setenv("FORECAST_MAX_PREDICTIONS", "2")
	t.Setenv("FORECAST_S3_BUCKET", "env-bucket")

	path := filepath.Join(t.TempDir(), "forecast.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Quota.MaxPredictions != 2 {
		t.Errorf("expected env quota 2, got %d", cfg.Quota.MaxPredictions)
	}
	if cfg.Export.Storage.Bucket != "env-bucket" {
		t.Errorf("expected env bucket, got %q", cfg.Export.Storage.Bucket)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("FORECAST_DEV_MODE", "false")
	t.Setenv("FORECAST_JWT_SECRET", "")
	t.Setenv("FORECAST_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error when FORECAST_JWT_SECRET is unset")
	}
}

func TestLoad_SecretFromEnvOnly(t *testing.T) {
	t.Setenv("FORECAST_DEV_MODE", "false")
	t.Setenv("FORECAST_JWT_SECRET", "test-secret")
	t.Setenv("FORECAST_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
}
