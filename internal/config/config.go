package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Detector DetectorConfig `json:"detector"`
	Image    ImageConfig    `json:"image"`
	Engine   EngineConfig   `json:"engine"`
	Log      LogConfig      `json:"log"`
}

// DetectorConfig selects and configures the pose backend
type DetectorConfig struct {
	Backend        string `json:"backend"`
	URL            string `json:"url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ImageConfig holds configuration for photo preparation
type ImageConfig struct {
	SendFormat   string `json:"send_format"`
	SendSize     int    `json:"send_size"`
	SendQuality  int    `json:"send_quality"`
	MinImageSize int    `json:"min_image_size"`
}

// EngineConfig points at an optional calibration revision
type EngineConfig struct {
	CalibrationFile string `json:"calibration_file"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level"`
}

// Backends accepted in detector.backend
const (
	BackendOllama   = "ollama"
	BackendLlamaCPP = "llamacpp"
	BackendFile     = "file"
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:        BackendLlamaCPP,
			URL:            "",
			Model:          "openbmb/minicpm-v4.5",
			TimeoutSeconds: 300,
		},
		Image: ImageConfig{
			SendFormat:   "jpg",
			SendSize:     1536,
			SendQuality:  85,
			MinImageSize: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultURL returns the server URL used when detector.url is empty
func (d DetectorConfig) DefaultURL() string {
	switch d.Backend {
	case BackendOllama:
		return "http://localhost:11435/api/chat"
	case BackendLlamaCPP:
		return "http://localhost:8080"
	}
	return ""
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from BODY_ANALYZER_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BODY_ANALYZER_BACKEND"); v != "" {
		c.Detector.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BODY_ANALYZER_URL"); v != "" {
		c.Detector.URL = v
	}
	if v := os.Getenv("BODY_ANALYZER_MODEL"); v != "" {
		c.Detector.Model = v
	}
	if v := os.Getenv("BODY_ANALYZER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case BackendOllama, BackendLlamaCPP, BackendFile:
	default:
		return fmt.Errorf("detector.backend must be one of ollama, llamacpp, file (got %q)", c.Detector.Backend)
	}

	if c.Detector.Backend != BackendFile && c.Detector.Model == "" {
		return fmt.Errorf("detector.model cannot be empty")
	}

	if c.Detector.TimeoutSeconds < 0 {
		return fmt.Errorf("detector.timeout_seconds cannot be negative")
	}

	switch strings.ToLower(c.Image.SendFormat) {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("image.send_format must be jpg or png")
	}

	if c.Image.SendSize < 0 {
		return fmt.Errorf("image.send_size cannot be negative")
	}

	if c.Image.SendQuality < 1 || c.Image.SendQuality > 100 {
		return fmt.Errorf("image.send_quality must be between 1 and 100")
	}

	if c.Image.MinImageSize < 1 {
		return fmt.Errorf("image.min_image_size must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "body-analyzer", "config.json")
}
