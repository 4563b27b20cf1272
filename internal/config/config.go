package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "sparkflow.yaml"

// Environment variables that override the config file.
const (
	EnvUpstreamURL = "SPARKFLOW_UPSTREAM_URL"
	EnvLogLevel    = "SPARKFLOW_LOG_LEVEL"
	EnvS3Bucket    = "SPARKFLOW_S3_BUCKET"
	EnvRetryMax    = "SPARKFLOW_RETRY_MAX"
)

// Config represents the top-level sparkflow.yaml configuration.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Export   ExportConfig   `yaml:"export"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// UpstreamConfig locates the optimization service.
type UpstreamConfig struct {
	BaseURL      string   `yaml:"base_url"`
	ForecastPath string   `yaml:"forecast_path"`
	TransferPath string   `yaml:"transfer_path"`
	Timeout      Duration `yaml:"timeout"`
	RetryMax     int      `yaml:"retry_max"` // 0 = never retry
}

// ExportConfig controls where and how CSV files are written.
type ExportConfig struct {
	Sink    string   `yaml:"sink"`              // dir, stdout, s3
	Dir     string   `yaml:"dir"`               // for the dir sink
	Quoting string   `yaml:"quoting"`           // none (byte-compatible) or rfc4180
	History string   `yaml:"history,omitempty"` // export history CSV; empty disables
	S3      S3Config `yaml:"s3,omitempty"`
}

// S3Config is the destination for the s3 sink.
type S3Config struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
}

// ServerConfig controls the HTTP server and scheduled refresh.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	RefreshSchedule string `yaml:"refresh_schedule"` // cron spec; empty disables
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Duration is a time.Duration that reads and writes as "15s" in YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads a sparkflow.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists and falls back to Default otherwise.
// A .env file in the working directory and SPARKFLOW_* variables are applied
// on top.
func LoadOrDefault(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvUpstreamURL); ok && v != "" {
		c.Upstream.BaseURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvS3Bucket); ok && v != "" {
		c.Export.S3.Bucket = v
	}
	if v, ok := lookup(EnvRetryMax); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRetryMax, err)
		}
		c.Upstream.RetryMax = n
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config pointing at a local optimization service.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:      "http://localhost:8000",
			ForecastPath: "/forecast",
			TransferPath: "/transfer-plan",
			Timeout:      Duration(15 * time.Second),
			RetryMax:     0,
		},
		Export: ExportConfig{
			Sink:    "dir",
			Dir:     "exports",
			Quoting: "none",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RefreshSchedule: "@every 5m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
