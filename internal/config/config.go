// Package config loads md2pdf settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// MaxArtifactBytes is the largest artifact accepted by default.
	MaxArtifactBytes = 256 << 20
	// SpoolThresholdBytes is the artifact size above which payloads go to disk.
	SpoolThresholdBytes = 8 << 20
)

func init() {
	// Report field names as they appear in the YAML file.
	validation.ErrorTag = "yaml"
}

// Config holds all md2pdf settings.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Output  OutputConfig  `yaml:"output"`
	Input   InputConfig   `yaml:"input"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig describes the remote conversion service.
type ServiceConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Endpoint         string        `yaml:"endpoint"`
	FieldName        string        `yaml:"field_name"`
	Timeout          time.Duration `yaml:"timeout"` // 0 waits indefinitely
	MaxArtifactBytes int64         `yaml:"max_artifact_bytes"`
	SpoolThreshold   int64         `yaml:"spool_threshold"`
}

// OutputConfig controls where downloads are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Overwrite bool   `yaml:"overwrite"`
}

// InputConfig controls input handling.
type InputConfig struct {
	NormalizeEncoding bool `yaml:"normalize_encoding"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:          "http://127.0.0.1:8000",
			Endpoint:         "/api/convert",
			FieldName:        "file",
			MaxArtifactBytes: MaxArtifactBytes,
			SpoolThreshold:   SpoolThresholdBytes,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads path (optional), applies .env and environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MD2PDF_SERVICE_URL"); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := os.Getenv("MD2PDF_ENDPOINT"); v != "" {
		cfg.Service.Endpoint = v
	}
	if v := os.Getenv("MD2PDF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MD2PDF_TIMEOUT: %w", err)
		}
		cfg.Service.Timeout = d
	}
	if v := os.Getenv("MD2PDF_MAX_ARTIFACT_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MD2PDF_MAX_ARTIFACT_BYTES: %w", err)
		}
		cfg.Service.MaxArtifactBytes = n
	}
	if v := os.Getenv("MD2PDF_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MD2PDF_OVERWRITE"); v != "" {
		cfg.Output.Overwrite = v == "true" || v == "1"
	}
	if v := os.Getenv("MD2PDF_NORMALIZE_ENCODING"); v != "" {
		cfg.Input.NormalizeEncoding = v == "true" || v == "1"
	}
	if v := os.Getenv("MD2PDF_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MD2PDF_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	return nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	return validation.Errors{
		"service": validation.ValidateStruct(&c.Service,
			validation.Field(&c.Service.BaseURL, validation.Required, is.URL),
			validation.Field(&c.Service.Endpoint, validation.Required),
			validation.Field(&c.Service.FieldName, validation.Required),
			validation.Field(&c.Service.Timeout, validation.Min(time.Duration(0))),
			validation.Field(&c.Service.MaxArtifactBytes, validation.Min(int64(0))),
			validation.Field(&c.Service.SpoolThreshold, validation.Min(int64(0))),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("trace", "debug", "info", "warn", "error", "disabled")),
			validation.Field(&c.Log.Format, validation.In("json", "console")),
		),
	}.Filter()
}
