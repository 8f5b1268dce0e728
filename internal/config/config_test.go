package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Server.Port)
	}
	if cfg.Reaper.Interval != 10*time.Minute || cfg.Reaper.Grace != 15*time.Minute {
		t.Errorf("Reaper = %+v, want 10m/15m", cfg.Reaper)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Server.RateLimit != 60 {
		t.Errorf("RateLimit = %d, want 60", cfg.Server.RateLimit)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
server:
  port: "8080"
  max_upload_bytes: 1048576
storage:
  backend: minio
  bucket_name: archives
reaper:
  interval: 1m
  grace: 2m
kafka:
  enabled: true
  brokers: ["localhost:9092"]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("Port = %q, want PORT env to win", cfg.Server.Port)
	}
	if cfg.Server.Addr() != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
	if cfg.Server.MaxUploadBytes != 1<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Storage.Backend != "minio" || cfg.Storage.BucketName != "archives" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Reaper.Interval != time.Minute || cfg.Reaper.Grace != 2*time.Minute {
		t.Errorf("Reaper = %+v", cfg.Reaper)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 {
		t.Errorf("Kafka = %+v", cfg.Kafka)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_StorageKeysFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
storage:
  access_key: from-file
  secret_key: from-file
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STORAGE_ACCESS_KEY", "env-access")
	t.Setenv("STORAGE_SECRET_KEY", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.AccessKey != "env-access" {
		t.Errorf("AccessKey = %q, want env value", cfg.Storage.AccessKey)
	}
	if cfg.Storage.SecretKey != "from-file" {
		t.Errorf("SecretKey = %q, empty env must not override the file", cfg.Storage.SecretKey)
	}
}
