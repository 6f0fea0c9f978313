// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and ECHO_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Supported values.
const (
	SampleRate16k = 16000
	SampleRate48k = 48000

	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is the root of the per-user file tree (the "database" directory).
	DataDir string `koanf:"data_dir"`

	// Language selects UI labels and the coaching response language: ja or en.
	Language string `koanf:"language"`

	// SessionMax bounds the in-memory session table; SessionTTL expires idle sessions.
	SessionMax int           `koanf:"session_max"`
	SessionTTL time.Duration `koanf:"session_ttl"`

	// Speech pronunciation-assessment service.
	SpeechKey      string        `koanf:"speech_key"`
	SpeechRegion   string        `koanf:"speech_region"`
	SpeechLanguage string        `koanf:"speech_language"`
	SpeechEndpoint string        `koanf:"speech_endpoint"`
	SpeechTimeout  time.Duration `koanf:"speech_timeout"`

	// SampleRate is the canonical WAV rate recordings are resampled to.
	SampleRate int `koanf:"sample_rate"`
	// MaxUploadBytes caps the multipart recording upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Chat completion service used for coaching. Setting ChatAzureEndpoint switches to Azure OpenAI.
	ChatAPIKey        string  `koanf:"chat_api_key"`
	ChatModel         string  `koanf:"chat_model"`
	ChatBaseURL       string  `koanf:"chat_base_url"`
	ChatAzureEndpoint string  `koanf:"chat_azure_endpoint"`
	ChatAPIVersion    string  `koanf:"chat_api_version"`
	ChatTemperature   float64 `koanf:"chat_temperature"`
	ChatMaxTokens     int     `koanf:"chat_max_tokens"`

	// AuditLogPath is the sqlite attempt log; empty disables it.
	AuditLogPath   string `koanf:"audit_log_path"`
	AuditQueueSize int    `koanf:"audit_queue_size"`
	AuditWorkers   int    `koanf:"audit_workers"`

	// BcryptCost is the password hashing cost.
	BcryptCost int `koanf:"bcrypt_cost"`

	// CelebrationScore is the PronScore at which an attempt is celebrated.
	CelebrationScore float64 `koanf:"celebration_score"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8501",
		DataDir:          "database",
		Language:         "ja",
		SessionMax:       1024,
		SessionTTL:       12 * time.Hour,
		SpeechRegion:     "japaneast",
		SpeechLanguage:   "en-US",
		SpeechTimeout:    60 * time.Second,
		SampleRate:       SampleRate16k,
		MaxUploadBytes:   32 << 20,
		ChatModel:        "gpt-4",
		ChatAPIVersion:   "2024-06-01",
		ChatTemperature:  0.7,
		ChatMaxTokens:    800,
		AuditLogPath:     "database/attempts.db",
		AuditQueueSize:   1024,
		AuditWorkers:     2,
		BcryptCost:       12,
		CelebrationScore: 90,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.Language != "ja" && c.Language != "en":
		return fmt.Errorf("%w: language must be ja or en, got %q", ErrInvalidConfig, c.Language)
	case c.SessionMax <= 0:
		return fmt.Errorf("%w: session_max must be positive", ErrInvalidConfig)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: session_ttl must be positive", ErrInvalidConfig)
	case c.SampleRate != SampleRate16k && c.SampleRate != SampleRate48k:
		return fmt.Errorf("%w: sample_rate must be 16000 or 48000, got %d", ErrInvalidConfig, c.SampleRate)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.ChatTemperature < 0 || c.ChatTemperature > 2:
		return fmt.Errorf("%w: chat_temperature must be within [0,2]", ErrInvalidConfig)
	case c.ChatMaxTokens <= 0:
		return fmt.Errorf("%w: chat_max_tokens must be positive", ErrInvalidConfig)
	case c.AuditQueueSize <= 0 || c.AuditWorkers <= 0:
		return fmt.Errorf("%w: audit_queue_size and audit_workers must be positive", ErrInvalidConfig)
	case c.BcryptCost < minBcryptCost || c.BcryptCost > maxBcryptCost:
		return fmt.Errorf("%w: bcrypt_cost must be within [%d,%d]", ErrInvalidConfig, minBcryptCost, maxBcryptCost)
	case c.CelebrationScore < 0 || c.CelebrationScore > 100:
		return fmt.Errorf("%w: celebration_score must be within [0,100]", ErrInvalidConfig)
	}
	return nil
}

// SpeechConfigured reports whether a speech key is present.
func (c *Config) SpeechConfigured() bool { return c.SpeechKey != "" }

// ChatConfigured reports whether a chat key is present.
func (c *Config) ChatConfigured() bool { return c.ChatAPIKey != "" }
