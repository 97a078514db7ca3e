// Package config loads the process configuration from an optional YAML
// file merged with environment variables. Every field is optional: a
// process with no configuration at all still works on the local
// filesystem provider.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRequestTimeout bounds each provider call so no operation
// blocks indefinitely.
const DefaultRequestTimeout = 30 * time.Second

type Config struct {
	// Provider explicitly selects a storage provider (s3, gcs, postgres
	// or local). When empty the provider is auto-detected from the
	// sections below.
	Provider string `yaml:"provider"`
	// RequestTimeout is applied per provider call
	RequestTimeout time.Duration `yaml:"request_timeout"`

	S3       S3Config       `yaml:"s3"`
	GCS      GCSConfig      `yaml:"gcs"`
	Postgres PostgresConfig `yaml:"postgres"`
	Local    LocalConfig    `yaml:"local"`
}

type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	// Prefix is the key prefix acting as the results container
	Prefix string `yaml:"prefix"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	// CredentialsFile points at a service account key; when empty the
	// client falls back to application default credentials
	CredentialsFile string `yaml:"credentials_file"`
	Prefix          string `yaml:"prefix"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type LocalConfig struct {
	// Dir is the directory acting as the results container. Defaults to
	// ~/.qadash/results.
	Dir string `yaml:"dir"`
}

// Load reads the configuration file at path (skipped when path is
// empty or the file does not exist) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{RequestTimeout: DefaultRequestTimeout}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Local.Dir == "" {
		cfg.Local.Dir = defaultLocalDir()
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = "test-results"
	}
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = "test-results"
	}
	return cfg, nil
}

// applyEnv overrides file values with QADASH_* environment variables
// plus the conventional DATABASE_URL.
func (c *Config) applyEnv() {
	setIfPresent(&c.Provider, "QADASH_PROVIDER")
	setIfPresent(&c.S3.Bucket, "QADASH_S3_BUCKET")
	setIfPresent(&c.S3.Region, "QADASH_S3_REGION")
	setIfPresent(&c.GCS.Bucket, "QADASH_GCS_BUCKET")
	setIfPresent(&c.GCS.CredentialsFile, "QADASH_GCS_CREDENTIALS_FILE")
	setIfPresent(&c.Postgres.DSN, "DATABASE_URL")
	setIfPresent(&c.Postgres.DSN, "QADASH_POSTGRES_DSN")
	setIfPresent(&c.Local.Dir, "QADASH_LOCAL_DIR")

	if v := os.Getenv("QADASH_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func defaultLocalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".qadash", "results")
}
