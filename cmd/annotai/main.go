//go:build !ios && !android && (amd64 || arm64)

// Package main provides the annotai command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lomavkin/annotai"
	"github.com/lomavkin/annotai/internal/app"
	"github.com/lomavkin/annotai/internal/config"
	"github.com/lomavkin/annotai/internal/narrate"
	"github.com/lomavkin/annotai/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("annotai", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "instruction given to the narrator alongside the sampled frames")
	startSec := fs.Float64("start-sec", 0, "start of the sampled window in seconds")
	durationSec := fs.Float64("duration-sec", 30, "length of the sampled window in seconds")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: annotai <input_file> --prompt <text> [--start-sec N] [--duration-sec N]\n\n")
		fs.PrintDefaults()
	}

	// Accept the input file before the flags, the way the tool is documented
	var input string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		input = args[0]
		args = args[1:]
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}

	if input == "" {
		fs.Usage()
		return errors.New("missing input file")
	}
	if *prompt == "" {
		fs.Usage()
		return errors.New("missing --prompt")
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Debug("starting annotai",
		slog.String("input", input),
		slog.Float64("start_sec", *startSec),
		slog.Float64("duration_sec", *durationSec),
		slog.String("output_dir", cfg.OutputDir),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Load the FFmpeg libraries up front so missing installs fail early
	ffLevel, err := annotai.ParseLogLevel(cfg.FFmpegLogLevel)
	if err != nil {
		return err
	}
	if err := annotai.Init(); err != nil {
		return fmt.Errorf("load FFmpeg libraries: %w", err)
	}
	if err := annotai.SetLogLevel(ffLevel); err != nil {
		return err
	}

	// Route FFmpeg's own log lines through the structured logger when the
	// optional ffshim helper is present.
	if annotai.LogCaptureAvailable() {
		if err := annotai.SetLogCallback(ffmpegLogHandler(logger)); err != nil {
			logger.Debug("FFmpeg log capture unavailable", slog.String("error", err.Error()))
		}
	}

	narrator, err := narrate.NewClient(
		narrate.WithAPIKey(cfg.OpenAIAPIKey),
		narrate.WithBaseURL(cfg.OpenAIBaseURL),
		narrate.WithModels(cfg.ChatModel, cfg.SpeechModel, cfg.SpeechVoice),
	)
	if err != nil {
		return err
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return err
	}

	a := app.New(cfg, logger, narrator, store, app.WithOutput(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.Run(ctx, app.RunRequest{
		Input:       input,
		Prompt:      *prompt,
		StartSec:    *startSec,
		DurationSec: *durationSec,
	}); err != nil {
		return err
	}

	return nil
}

// ffmpegLogHandler forwards FFmpeg log lines to the structured logger at a
// matching level.
func ffmpegLogHandler(logger *slog.Logger) annotai.LogCallback {
	return func(level annotai.LogLevel, message string) {
		message = strings.TrimRight(message, "\n")
		if message == "" {
			return
		}
		src := slog.String("source", "ffmpeg")
		switch {
		case level <= annotai.LogError:
			logger.Error(message, src)
		case level <= annotai.LogWarning:
			logger.Warn(message, src)
		case level <= annotai.LogInfo:
			logger.Info(message, src)
		default:
			logger.Debug(message, src)
		}
	}
}

// newStorage creates the appropriate storage backend based on configuration.
func newStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	return localStore, nil
}
