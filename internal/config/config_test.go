package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origFunc := configDirFunc
	configDirFunc = func() (string, error) {
		return tmpDir, nil
	}
	t.Cleanup(func() {
		configDirFunc = origFunc
	})
	return tmpDir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func validKey() string {
	return strings.Repeat("k", MinEncryptionKeyLength)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestConfig(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.LiveDB.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.LiveDB.ConnectTimeout)
	}
	if cfg.Storage.Path != filepath.Join(dir, "pgreview.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestLoad_FileValues(t *testing.T) {
	dir := setupTestConfig(t)
	path := writeConfig(t, dir, `
server:
  addr: "127.0.0.1:9000"
  cors_origins: ["http://a.test", "http://b.test"]
storage:
  path: /tmp/checks.db
security:
  encryption_key: `+validKey()+`
log:
  level: debug
livedb:
  max_conns: 2
  connect_timeout: 3s
ai:
  request_timeout: 45s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.Path != "/tmp/checks.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.LiveDB.MaxConns != 2 || cfg.LiveDB.ConnectTimeout != 3*time.Second {
		t.Errorf("LiveDB = %+v", cfg.LiveDB)
	}
	if cfg.AI.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.AI.RequestTimeout)
	}
	if cfg.Log.Encoding != "console" {
		t.Errorf("Log.Encoding = %q, want default console", cfg.Log.Encoding)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("PGREVIEW_SECURITY_ENCRYPTION_KEY", validKey())
	t.Setenv("PGREVIEW_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Security.EncryptionKey != validKey() {
		t.Errorf("EncryptionKey not taken from environment")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := setupTestConfig(t)
	path := writeConfig(t, dir, "server: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_NamesField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"short key", func(c *Config) { c.Security.EncryptionKey = "short" }, "security.encryption_key"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad encoding", func(c *Config) { c.Log.Encoding = "xml" }, "log.encoding"},
		{"no conns", func(c *Config) { c.LiveDB.MaxConns = 0 }, "livedb.max_conns"},
		{"no timeout", func(c *Config) { c.AI.RequestTimeout = 0 }, "ai.request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Security.EncryptionKey = validKey()
			cfg.Storage.Path = "/tmp/x.db"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestWriteTemplate(t *testing.T) {
	dir := setupTestConfig(t)

	path, err := WriteTemplate("", false)
	if err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	if path != filepath.Join(dir, configFileName) {
		t.Errorf("path = %q", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("template does not validate: %v", err)
	}
	if cfg.AI.RequestTimeout != 120*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.AI.RequestTimeout)
	}
}

func TestWriteTemplate_NoOverwrite(t *testing.T) {
	setupTestConfig(t)

	first, err := WriteTemplate("", false)
	if err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	before, _ := os.ReadFile(first)

	if _, err := WriteTemplate("", false); err == nil {
		t.Fatal("expected error for existing config")
	}

	if _, err := WriteTemplate("", true); err != nil {
		t.Fatalf("forced WriteTemplate failed: %v", err)
	}
	after, _ := os.ReadFile(first)
	if string(before) == string(after) {
		t.Error("forced write did not replace the file")
	}
}
