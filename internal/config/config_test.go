package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
	if cfg.Detector.Backend != BackendLlamaCPP {
		t.Errorf("Expected default backend llamacpp, got %s", cfg.Detector.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Detector.Backend = "opencv" }, "detector.backend"},
		{"empty model", func(c *Config) { c.Detector.Model = "" }, "detector.model"},
		{"negative timeout", func(c *Config) { c.Detector.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"bad send format", func(c *Config) { c.Image.SendFormat = "gif" }, "send_format"},
		{"quality too high", func(c *Config) { c.Image.SendQuality = 101 }, "send_quality"},
		{"zero min size", func(c *Config) { c.Image.MinImageSize = 0 }, "min_image_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	// The file backend needs no model
	cfg := Default()
	cfg.Detector.Backend = BackendFile
	cfg.Detector.Model = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("File backend without model should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := Default()
	cfg.Detector.Backend = BackendOllama
	cfg.Engine.CalibrationFile = "/etc/body-analyzer/calibration.json"

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Loaded config %+v differs from saved %+v", loaded, cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"detector": {"backend": "file"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Detector.Backend != BackendFile {
		t.Errorf("Expected backend file, got %s", cfg.Detector.Backend)
	}
	if cfg.Image.SendQuality != 85 || cfg.Log.Level != "info" {
		t.Error("Fields absent from the file lost their defaults")
	}

	if err := os.WriteFile(path, []byte(`{broken`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BODY_ANALYZER_BACKEND", "OLLAMA")
	t.Setenv("BODY_ANALYZER_URL", "http://gpu-box:11434")
	t.Setenv("BODY_ANALYZER_MODEL", "llava")
	t.Setenv("BODY_ANALYZER_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Detector.Backend != BackendOllama {
		t.Errorf("Expected backend ollama, got %s", cfg.Detector.Backend)
	}
	if cfg.Detector.URL != "http://gpu-box:11434" || cfg.Detector.Model != "llava" || cfg.Log.Level != "debug" {
		t.Errorf("Environment not applied: %+v", cfg)
	}
}

func TestDefaultURL(t *testing.T) {
	tests := map[string]string{
		BackendOllama:   "http://localhost:11435/api/chat",
		BackendLlamaCPP: "http://localhost:8080",
		BackendFile:     "",
	}
	for backend, want := range tests {
		if got := (DetectorConfig{Backend: backend}).DefaultURL(); got != want {
			t.Errorf("DefaultURL(%s) = %q, want %q", backend, got, want)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	if path := GetConfigPath(); !strings.HasSuffix(path, "config.json") {
		t.Errorf("Unexpected config path %s", path)
	}
}
