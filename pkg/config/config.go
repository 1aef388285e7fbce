package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/williamokano/bucketview/pkg/storage"
)

const (
	appName = "bucketview"

	DefaultPageSize         = 100
	DefaultPresignTTL       = 3600
	DefaultDeleteMode       = "abort"
	DefaultProbeConcurrency = 4
)

// RetryConfig controls how transport failures are retried
type RetryConfig struct {
	MaxAttempts    int `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelayMS int `json:"initial_delay_ms" mapstructure:"initial_delay_ms"`
	MaxDelayMS     int `json:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// Config is the root configuration structure
type Config struct {
	VaultPath         string      `json:"vault_path" mapstructure:"vault_path"`
	LogLevel          string      `json:"log_level" mapstructure:"log_level"`   // debug, info, warn, error
	LogFormat         string      `json:"log_format" mapstructure:"log_format"` // json, console
	PageSize          int         `json:"page_size" mapstructure:"page_size"`
	PresignTTLSeconds int         `json:"presign_ttl_seconds" mapstructure:"presign_ttl_seconds"`
	DeleteMode        string      `json:"delete_mode" mapstructure:"delete_mode"` // abort, continue
	ProbeConcurrency  int         `json:"probe_concurrency" mapstructure:"probe_concurrency"`
	Retry             RetryConfig `json:"retry" mapstructure:"retry"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	retry := storage.DefaultRetryConfig()
	return &Config{
		VaultPath:         DefaultVaultPath(),
		LogLevel:          "info",
		LogFormat:         "console",
		PageSize:          DefaultPageSize,
		PresignTTLSeconds: DefaultPresignTTL,
		DeleteMode:        DefaultDeleteMode,
		ProbeConcurrency:  DefaultProbeConcurrency,
		Retry: RetryConfig{
			MaxAttempts:    retry.MaxAttempts,
			InitialDelayMS: int(retry.InitialDelay / time.Millisecond),
			MaxDelayMS:     int(retry.MaxDelay / time.Millisecond),
		},
	}
}

// DefaultVaultPath returns <user config dir>/bucketview/vault.dat, falling back
// to the working directory when the user config dir is unknown
func DefaultVaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appName, "vault.dat")
	}
	return filepath.Join(dir, appName, "vault.dat")
}

// PresignTTL returns the presigned URL lifetime
func (c *Config) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLSeconds) * time.Second
}

// StorageRetry converts the retry settings for storage.WithRetry
func (c *Config) StorageRetry() storage.RetryConfig {
	cfg := storage.DefaultRetryConfig()
	cfg.MaxAttempts = c.Retry.MaxAttempts
	cfg.InitialDelay = time.Duration(c.Retry.InitialDelayMS) * time.Millisecond
	cfg.MaxDelay = time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
	return cfg
}
