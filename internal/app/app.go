//go:build !ios && !android && (amd64 || arm64)

// Package app orchestrates one narration run: sampling frames out of the
// input, asking the narrator for commentary and speech, and transcoding the
// clip with the narration mixed into its audio.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lomavkin/annotai"
	"github.com/lomavkin/annotai/internal/config"
	"github.com/lomavkin/annotai/internal/narrate"
	"github.com/lomavkin/annotai/internal/storage"
)

// ErrNoFrames is returned when the sampled window yields no frames, which
// leaves the narrator with nothing to describe.
var ErrNoFrames = errors.New("app: no frames captured in the sampled window")

// Collaborator call budgets. Narration reads every frame and can run long;
// speech synthesis is bounded by the comment length.
const (
	annotateTimeout = 300 * time.Second
	speakTimeout    = 120 * time.Second
)

// sampleInterval is the fixed spacing between captured frames in seconds.
const sampleInterval = 0.5

// RunRequest describes one narration run.
type RunRequest struct {
	// Input is the path of the source video.
	Input string `validate:"required"`
	// Prompt is the instruction given to the chat model alongside the frames.
	Prompt string `validate:"required"`
	// StartSec is the start of the sampled window in seconds.
	StartSec float64 `validate:"gte=0"`
	// DurationSec is the length of the sampled window in seconds.
	DurationSec float64 `validate:"gt=0"`
}

// RunResult reports what one run produced.
type RunResult struct {
	// Frames is the number of captured frames.
	Frames int
	// Comment is the narration text.
	Comment string
	// CommentPath is the final path of the synthesized narration audio.
	CommentPath string
	// VideoPath is the final path of the transcoded clip.
	VideoPath string
	// PublishedURLs are the public URLs of the published artifacts, set only
	// when S3 publishing is configured.
	PublishedURLs []string
}

// Pipeline is the media-side surface the app drives. The production
// implementation is backed by the annotai package.
type Pipeline interface {
	// SampleFrames captures periodic stills from a window of the input.
	SampleFrames(input string, cfg annotai.SampleConfig) ([]annotai.FrameSnapshot, error)

	// Transcode trims the input to window, mixing the overlay audio file
	// into the program audio when it exists.
	Transcode(input, overlay, output string, window annotai.TimeWindow) error
}

// mediaPipeline is the production Pipeline backed by the annotai package.
type mediaPipeline struct {
	logger *slog.Logger
}

func (p mediaPipeline) SampleFrames(input string, cfg annotai.SampleConfig) ([]annotai.FrameSnapshot, error) {
	return annotai.SampleFrames(input, cfg, annotai.WithLogger(p.logger))
}

func (p mediaPipeline) Transcode(input, overlay, output string, window annotai.TimeWindow) error {
	return annotai.Transcode(input, overlay, output, window, annotai.WithLogger(p.logger))
}

// App wires the media pipeline, the narrator and the artifact store into one
// sequential narration run.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	narrator narrate.Narrator
	store    storage.Storage
	pipeline Pipeline
	validate *validator.Validate
	out      io.Writer
}

// Option is a function that configures an App.
type Option func(*App)

// WithOutput directs user-facing progress lines (the captured frame count,
// the narration text) to w. By default they are discarded.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		if w != nil {
			a.out = w
		}
	}
}

// WithPipeline replaces the media pipeline. Used by tests.
func WithPipeline(p Pipeline) Option {
	return func(a *App) {
		if p != nil {
			a.pipeline = p
		}
	}
}

// New creates an App from the given collaborators.
func New(cfg *config.Config, logger *slog.Logger, narrator narrate.Narrator, store storage.Storage, opts ...Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		narrator: narrator,
		store:    store,
		pipeline: mediaPipeline{logger: logger},
		validate: validator.New(),
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one narration run end to end: sample frames, request the
// narration, synthesize it, transcode the clip with the narration mixed in,
// promote the artifacts and optionally publish them.
//
// The transcode window is twice the sampled window so the narration can
// outlast the sampled region without being cut off.
func (a *App) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("app: invalid request: %w", err)
	}

	runDir, err := a.store.RunDir()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	sampleCfg := annotai.SampleConfig{
		Window:   annotai.TimeWindow{Start: req.StartSec, Duration: req.DurationSec},
		Interval: sampleInterval,
	}
	if a.cfg.DumpFrames {
		sampleCfg.DumpDir = filepath.Join(a.cfg.OutputDir, "capture")
	}

	a.logger.Info("sampling frames",
		slog.String("input", req.Input),
		slog.Float64("start_sec", req.StartSec),
		slog.Float64("duration_sec", req.DurationSec),
	)

	frames, err := a.pipeline.SampleFrames(req.Input, sampleCfg)
	if err != nil {
		return nil, fmt.Errorf("app: sampling frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	fmt.Fprintf(a.out, "Captured frames: %d\n", len(frames))

	uris := make([]string, len(frames))
	for i, f := range frames {
		uris[i] = f.DataURI
	}

	a.logger.Info("requesting narration",
		slog.String("model", a.cfg.ChatModel),
		slog.Int("frames", len(frames)),
	)

	annotateCtx, cancel := context.WithTimeout(ctx, annotateTimeout)
	comment, err := a.narrator.Annotate(annotateCtx, req.Prompt, uris)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("app: narration: %w", err)
	}
	fmt.Fprintf(a.out, "AI Comment: %s\n", comment)

	a.logger.Info("synthesizing speech",
		slog.String("model", a.cfg.SpeechModel),
		slog.String("voice", a.cfg.SpeechVoice),
	)

	commentScratch := filepath.Join(runDir, "comment.mp3")
	speakCtx, cancel := context.WithTimeout(ctx, speakTimeout)
	err = a.narrator.Speak(speakCtx, comment, commentScratch)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("app: speech synthesis: %w", err)
	}

	window := annotai.TimeWindow{Start: req.StartSec, Duration: 2 * req.DurationSec}
	videoScratch := filepath.Join(runDir, "transcoded.mp4")

	a.logger.Info("transcoding",
		slog.String("output", videoScratch),
		slog.Float64("start_sec", window.Start),
		slog.Float64("duration_sec", window.Duration),
	)

	if err := a.pipeline.Transcode(req.Input, commentScratch, videoScratch, window); err != nil {
		return nil, fmt.Errorf("app: transcoding: %w", err)
	}

	commentPath, err := a.store.Keep(commentScratch)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	videoPath, err := a.store.Keep(videoScratch)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	result := &RunResult{
		Frames:      len(frames),
		Comment:     comment,
		CommentPath: commentPath,
		VideoPath:   videoPath,
	}

	if a.cfg.S3Enabled() {
		urls, err := a.store.Publish(ctx, []string{commentPath, videoPath})
		if err != nil {
			return nil, fmt.Errorf("app: publishing: %w", err)
		}
		result.PublishedURLs = urls
		for _, u := range urls {
			a.logger.Info("artifact published", slog.String("url", u))
		}
	}

	a.logger.Info("run complete",
		slog.Int("frames", result.Frames),
		slog.String("comment_path", result.CommentPath),
		slog.String("video_path", result.VideoPath),
	)

	return result, nil
}
