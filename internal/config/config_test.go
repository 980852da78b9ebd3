package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv removes every variable the config reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"ANNOTAI_CHAT_MODEL",
		"ANNOTAI_SPEECH_MODEL",
		"ANNOTAI_SPEECH_VOICE",
		"ANNOTAI_OUTPUT_DIR",
		"ANNOTAI_DUMP_FRAMES",
		"S3_BUCKET",
		"S3_REGION",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"LOG_FORMAT",
		"LOG_LEVEL",
		"FFMPEG_LOG_LEVEL",
	} {
		// t.Setenv registers the restore; clearing afterwards leaves the
		// variable unset for the duration of the test.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "gpt-4o", cfg.ChatModel)
	assert.Equal(t, "tts-1-hd", cfg.SpeechModel)
	assert.Equal(t, "nova", cfg.SpeechVoice)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.True(t, cfg.DumpFrames)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "error", cfg.FFmpegLogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "custom-api-key")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9090/v1")
	t.Setenv("ANNOTAI_CHAT_MODEL", "gpt-4o-mini")
	t.Setenv("ANNOTAI_SPEECH_MODEL", "tts-1")
	t.Setenv("ANNOTAI_SPEECH_VOICE", "alloy")
	t.Setenv("ANNOTAI_OUTPUT_DIR", "/custom/out")
	t.Setenv("ANNOTAI_DUMP_FRAMES", "false")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FFMPEG_LOG_LEVEL", "quiet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "custom-api-key", cfg.OpenAIAPIKey)
	assert.Equal(t, "http://localhost:9090/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, "tts-1", cfg.SpeechModel)
	assert.Equal(t, "alloy", cfg.SpeechVoice)
	assert.Equal(t, "/custom/out", cfg.OutputDir)
	assert.False(t, cfg.DumpFrames)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "quiet", cfg.FFmpegLogLevel)
}

func TestLoad_InvalidBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANNOTAI_DUMP_FRAMES", "not-a-bool")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingAPIKeySucceeds(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{OpenAIAPIKey: "key"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing API key", func(t *testing.T) {
		cfg := &Config{}
		assert.ErrorIs(t, cfg.Validate(), ErrOpenAIAPIKeyRequired)
	})
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		OpenAIAPIKey:       "secret-key",
		OpenAIBaseURL:      "https://api.openai.com/v1",
		ChatModel:          "gpt-4o",
		SpeechModel:        "tts-1-hd",
		SpeechVoice:        "nova",
		OutputDir:          "output",
		AWSSecretAccessKey: "aws-secret",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "gpt-4o")
	assert.Contains(t, str, "output")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "aws-secret")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
