package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("gateway.port = %d, want %d", cfg.Gateway.Port, DefaultPort)
	}
	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("gateway.host = %q, want 127.0.0.1", cfg.Gateway.Host)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.Path != "~/.vellum/data.db" {
		t.Errorf("storage.path = %q", cfg.Storage.Path)
	}
	if cfg.Runtime.Timeout != 5*time.Second {
		t.Errorf("runtime.timeout = %v, want 5s", cfg.Runtime.Timeout)
	}
	if cfg.Preview.HighlightBorder != "2px solid #0055ff" {
		t.Errorf("preview.highlight_border = %q", cfg.Preview.HighlightBorder)
	}
	if cfg.Preview.IdleTimeout != 30*time.Minute {
		t.Errorf("preview.idle_timeout = %v, want 30m", cfg.Preview.IdleTimeout)
	}
	if cfg.Preview.ReapSchedule != "@every 1m" {
		t.Errorf("preview.reap_schedule = %q", cfg.Preview.ReapSchedule)
	}
}

func TestLoad_FromFile(t *testing.T) {
	Reset()
	defer Reset()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
gateway:
  port: 9000
  host: "0.0.0.0"
log:
  level: debug
  format: json
runtime:
  timeout: 250ms
preview:
  highlight_border: "1px dashed red"
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gateway.Port != 9000 {
		t.Errorf("gateway.port = %d, want 9000", cfg.Gateway.Port)
	}
	if cfg.Gateway.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", cfg.Gateway.Addr())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %q, want json", cfg.Log.Format)
	}
	if cfg.Runtime.Timeout != 250*time.Millisecond {
		t.Errorf("runtime.timeout = %v, want 250ms", cfg.Runtime.Timeout)
	}
	if cfg.Preview.HighlightBorder != "1px dashed red" {
		t.Errorf("preview.highlight_border = %q", cfg.Preview.HighlightBorder)
	}
	// 未在文件中指定的值使用默认值
	if cfg.Preview.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("preview.idle_timeout = %v, want default", cfg.Preview.IdleTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("gateway.port = %d", cfg.Gateway.Port)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	Reset()
	defer Reset()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("gateway: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configFile); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("VELLUM_GATEWAY_PORT", "7777")
	t.Setenv("VELLUM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gateway.Port != 7777 {
		t.Errorf("gateway.port = %d, want 7777", cfg.Gateway.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_Priority(t *testing.T) {
	Reset()
	defer Reset()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("gateway:\n  port: 9000\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("VELLUM_GATEWAY_PORT", "7777")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gateway.Port != 7777 {
		t.Errorf("ENV should override file: gateway.port = %d, want 7777", cfg.Gateway.Port)
	}
}

func TestSetAndSave(t *testing.T) {
	Reset()
	defer Reset()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := Load(configFile); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := Set("gateway.port", 6666); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if GetInt("gateway.port") != 6666 {
		t.Errorf("gateway.port = %d, want 6666", GetInt("gateway.port"))
	}

	Reset()
	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if cfg.Gateway.Port != 6666 {
		t.Errorf("Persisted gateway.port = %d, want 6666", cfg.Gateway.Port)
	}
}

func TestSaveTo(t *testing.T) {
	Reset()
	defer Reset()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Config{
		Gateway: GatewayConfig{Host: "localhost", Port: 1234},
		Preview: PreviewConfig{HighlightBorder: "3px solid green", ReapSchedule: "@every 5s"},
	}
	if err := SaveTo(in, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gateway.Port != 1234 || cfg.Preview.HighlightBorder != "3px solid green" {
		t.Errorf("round trip mismatch: %+v", cfg)
	}
}

func TestGetConfig(t *testing.T) {
	Reset()
	defer Reset()

	if GetConfig() != nil {
		t.Error("GetConfig should be nil before Load")
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if GetConfig() != cfg {
		t.Error("GetConfig should return the loaded config")
	}
	if GetString("gateway.host") != "127.0.0.1" {
		t.Error("GetString failed")
	}
}

func TestSetRejectsInvalidValue(t *testing.T) {
	Reset()
	defer Reset()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := Load(configFile); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := Set("preview.reap_schedule", "every now and then"); err == nil {
		t.Fatal("Set accepted an invalid schedule")
	}
	if got := GetString("preview.reap_schedule"); got != DefaultReapSchedule {
		t.Errorf("reap_schedule = %q, want the previous value restored", got)
	}
	if _, err := os.Stat(configFile); err == nil {
		t.Error("invalid value must not be persisted")
	}

	if err := Set("gateway.port", "19001"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if GetConfig().Gateway.Port != 19001 {
		t.Errorf("GetConfig not refreshed: %d", GetConfig().Gateway.Port)
	}
}
