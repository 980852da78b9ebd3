// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
)

// Config holds all configuration for the application.
type Config struct {
	// OpenAI settings
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON
	OpenAIBaseURL string `env:"OPENAI_BASE_URL, default=https://api.openai.com/v1" json:"openai_base_url"`
	ChatModel     string `env:"ANNOTAI_CHAT_MODEL, default=gpt-4o" json:"chat_model"`
	SpeechModel   string `env:"ANNOTAI_SPEECH_MODEL, default=tts-1-hd" json:"speech_model"`
	SpeechVoice   string `env:"ANNOTAI_SPEECH_VOICE, default=nova" json:"speech_voice"`

	// Output settings
	OutputDir  string `env:"ANNOTAI_OUTPUT_DIR, default=output" json:"output_dir"`
	DumpFrames bool   `env:"ANNOTAI_DUMP_FRAMES, default=true" json:"dump_frames"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat      string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel       string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
	FFmpegLogLevel string `env:"FFMPEG_LOG_LEVEL, default=error" json:"ffmpeg_log_level"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// OPENAI_API_KEY is deliberately not required here so that offline commands
// and tests can load a config without credentials; callers that talk to the
// narration service must call Validate first.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all configuration needed for a narration run is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{OpenAIBaseURL: %s, ChatModel: %s, SpeechModel: %s, SpeechVoice: %s, OutputDir: %s, DumpFrames: %t, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s, FFmpegLogLevel: %s}",
		c.OpenAIBaseURL,
		c.ChatModel,
		c.SpeechModel,
		c.SpeechVoice,
		c.OutputDir,
		c.DumpFrames,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
		c.FFmpegLogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
