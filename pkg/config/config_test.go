package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dochive/dochive/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "INFO"

engine:
  root_path: "`+yamlSafePath(tmpDir)+`/blobs"

database:
  type: sqlite
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown_timeout 10s, got %v", cfg.API.ShutdownTimeout)
	}
	if cfg.Engine.MaxUploadBytes != bytesize.GiB {
		t.Errorf("Expected default max_upload_bytes 1GiB, got %v", cfg.Engine.MaxUploadBytes)
	}
	if cfg.Migration.BatchSize != 100 {
		t.Errorf("Expected default migration batch_size 100, got %d", cfg.Migration.BatchSize)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Database.SQLite.Path == "" {
		t.Error("Expected default SQLite path to be set")
	}
}

func TestLoad_ByteSizeParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
engine:
  root_path: "`+yamlSafePath(tmpDir)+`/blobs"
  max_upload_bytes: 100Mi
  upload_buffer_size: 128Ki
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.MaxUploadBytes != 100*bytesize.MiB {
		t.Errorf("Expected max_upload_bytes 100Mi, got %v", cfg.Engine.MaxUploadBytes)
	}
	if cfg.Engine.UploadBufferSize != 128*bytesize.KiB {
		t.Errorf("Expected upload_buffer_size 128Ki, got %v", cfg.Engine.UploadBufferSize)
	}
}

func TestLoad_DurationParsing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
engine:
  root_path: "`+yamlSafePath(tmpDir)+`/blobs"

api:
  read_header_timeout: 5s
  shutdown_timeout: 1m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("Expected read_header_timeout 5s, got %v", cfg.API.ReadHeaderTimeout)
	}
	if cfg.API.ShutdownTimeout != time.Minute {
		t.Errorf("Expected shutdown_timeout 1m, got %v", cfg.API.ShutdownTimeout)
	}
}

func TestLoad_MigrationSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
engine:
  root_path: "`+yamlSafePath(tmpDir)+`/blobs"

migration:
  source_dsn: "postgres://localhost/legacy"
  content_dsn: "postgres://localhost/legacy2017"
  migration_dsn: "postgres://localhost/migration"
  target_api_base_url: "http://localhost:8080"
  year: 2017
  target_bucket: "legacy"
  max_parallelism: 8
  worker_token: "worker-a"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	m := cfg.Migration
	if m.Year != 2017 {
		t.Errorf("Expected year 2017, got %d", m.Year)
	}
	if m.MaxParallelism != 8 {
		t.Errorf("Expected max_parallelism 8, got %d", m.MaxParallelism)
	}
	if m.DocumentsTable != "Documents" {
		t.Errorf("Expected default documents_table, got %q", m.DocumentsTable)
	}
	if m.LogStoreConfig().Type != "postgres" {
		t.Errorf("Expected postgres log store for postgres DSN, got %q", m.LogStoreConfig().Type)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Expected valid migration section, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.API.Port != cfg.API.Port {
		t.Errorf("Round trip changed API port: %d != %d", loaded.API.Port, cfg.API.Port)
	}
	if loaded.Engine.RootPath != cfg.Engine.RootPath {
		t.Errorf("Round trip changed root path: %q != %q", loaded.Engine.RootPath, cfg.Engine.RootPath)
	}
}
