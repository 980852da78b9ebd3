//go:build !ios && !android && (amd64 || arm64)

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lomavkin/annotai"
	"github.com/lomavkin/annotai/internal/config"
	"github.com/lomavkin/annotai/internal/storage"
)

// fakePipeline returns canned frames and records calls.
type fakePipeline struct {
	frames       []annotai.FrameSnapshot
	sampleErr    error
	transcodeErr error

	sampleInput string
	sampleCfg   annotai.SampleConfig

	transcodeInput   string
	transcodeOverlay string
	transcodeOutput  string
	transcodeWindow  annotai.TimeWindow
}

func (p *fakePipeline) SampleFrames(input string, cfg annotai.SampleConfig) ([]annotai.FrameSnapshot, error) {
	p.sampleInput = input
	p.sampleCfg = cfg
	if p.sampleErr != nil {
		return nil, p.sampleErr
	}
	return p.frames, nil
}

func (p *fakePipeline) Transcode(input, overlay, output string, window annotai.TimeWindow) error {
	p.transcodeInput = input
	p.transcodeOverlay = overlay
	p.transcodeOutput = output
	p.transcodeWindow = window
	if p.transcodeErr != nil {
		return p.transcodeErr
	}
	return os.WriteFile(output, []byte("video"), 0644)
}

// fakeNarrator returns canned commentary and writes canned audio.
type fakeNarrator struct {
	comment     string
	annotateErr error
	speakErr    error

	prompt      string
	uris        []string
	spokenText  string
	hadDeadline bool
}

func (n *fakeNarrator) Annotate(ctx context.Context, prompt string, imageURIs []string) (string, error) {
	n.prompt = prompt
	n.uris = imageURIs
	_, n.hadDeadline = ctx.Deadline()
	if n.annotateErr != nil {
		return "", n.annotateErr
	}
	return n.comment, nil
}

func (n *fakeNarrator) Speak(_ context.Context, text string, outPath string) error {
	n.spokenText = text
	if n.speakErr != nil {
		return n.speakErr
	}
	return os.WriteFile(outPath, []byte("audio"), 0644)
}

// publishingStore is a LocalStorage whose Publish succeeds with canned URLs.
type publishingStore struct {
	*storage.LocalStorage
	urls      []string
	published []string
}

func (s *publishingStore) Publish(_ context.Context, paths []string) ([]string, error) {
	s.published = paths
	return s.urls, nil
}

func testConfig(outputDir string) *config.Config {
	return &config.Config{
		ChatModel:   "gpt-4o",
		SpeechModel: "tts-1-hd",
		SpeechVoice: "nova",
		OutputDir:   outputDir,
		DumpFrames:  true,
		LogFormat:   "text",
		LogLevel:    "error",
	}
}

func testFrames(n int) []annotai.FrameSnapshot {
	frames := make([]annotai.FrameSnapshot, n)
	for i := range frames {
		frames[i] = annotai.FrameSnapshot{
			PTS:     float64(i) * 0.5,
			DataURI: fmt.Sprintf("data:image/jpeg;base64,frame%d", i),
		}
	}
	return frames
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRun(t *testing.T) {
	outputDir := t.TempDir()
	store, err := storage.NewLocalStorage(outputDir)
	require.NoError(t, err)

	pipeline := &fakePipeline{frames: testFrames(3)}
	narrator := &fakeNarrator{comment: "A striker weaves past two defenders."}

	var out bytes.Buffer
	a := New(testConfig(outputDir), quietLogger(), narrator, store,
		WithPipeline(pipeline),
		WithOutput(&out),
	)

	result, err := a.Run(context.Background(), RunRequest{
		Input:       "match.mp4",
		Prompt:      "narrate like a sportscaster",
		StartSec:    1,
		DurationSec: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Frames)
	assert.Equal(t, "A striker weaves past two defenders.", result.Comment)
	assert.Equal(t, filepath.Join(outputDir, "comment.mp3"), result.CommentPath)
	assert.Equal(t, filepath.Join(outputDir, "transcoded.mp4"), result.VideoPath)
	assert.Empty(t, result.PublishedURLs)

	// Sampling got the request window, the fixed interval and the dump dir
	assert.Equal(t, "match.mp4", pipeline.sampleInput)
	assert.Equal(t, annotai.TimeWindow{Start: 1, Duration: 5}, pipeline.sampleCfg.Window)
	assert.Equal(t, 0.5, pipeline.sampleCfg.Interval)
	assert.Equal(t, filepath.Join(outputDir, "capture"), pipeline.sampleCfg.DumpDir)

	// The narrator saw the prompt, every frame and a call deadline
	assert.Equal(t, "narrate like a sportscaster", narrator.prompt)
	require.Len(t, narrator.uris, 3)
	assert.Equal(t, "data:image/jpeg;base64,frame0", narrator.uris[0])
	assert.True(t, narrator.hadDeadline)
	assert.Equal(t, result.Comment, narrator.spokenText)

	// The transcode window is doubled and the narration is the overlay
	assert.Equal(t, "match.mp4", pipeline.transcodeInput)
	assert.Equal(t, annotai.TimeWindow{Start: 1, Duration: 10}, pipeline.transcodeWindow)
	assert.Equal(t, "comment.mp3", filepath.Base(pipeline.transcodeOverlay))
	assert.Contains(t, pipeline.transcodeOverlay, filepath.Join("runs", store.RunID()))

	// Artifacts were promoted out of the scratch directory
	audio, err := os.ReadFile(result.CommentPath)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(audio))
	video, err := os.ReadFile(result.VideoPath)
	require.NoError(t, err)
	assert.Equal(t, "video", string(video))
	_, err = os.Stat(pipeline.transcodeOutput)
	assert.True(t, os.IsNotExist(err))

	// User-facing lines appear in order
	assert.Equal(t, "Captured frames: 3\nAI Comment: A striker weaves past two defenders.\n", out.String())
}

func TestRun_InvalidRequest(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	a := New(testConfig(store.OutputDir()), quietLogger(), &fakeNarrator{}, store,
		WithPipeline(&fakePipeline{frames: testFrames(1)}),
	)

	tests := []struct {
		name string
		req  RunRequest
	}{
		{"missing input", RunRequest{Prompt: "p", DurationSec: 30}},
		{"missing prompt", RunRequest{Input: "in.mp4", DurationSec: 30}},
		{"negative start", RunRequest{Input: "in.mp4", Prompt: "p", StartSec: -1, DurationSec: 30}},
		{"zero duration", RunRequest{Input: "in.mp4", Prompt: "p", DurationSec: 0}},
		{"negative duration", RunRequest{Input: "in.mp4", Prompt: "p", DurationSec: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid request")
		})
	}
}

func TestRun_NoFrames(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	a := New(testConfig(store.OutputDir()), quietLogger(), &fakeNarrator{}, store,
		WithPipeline(&fakePipeline{}),
	)

	_, err = a.Run(context.Background(), RunRequest{
		Input:       "in.mp4",
		Prompt:      "p",
		StartSec:    9999,
		DurationSec: 4,
	})
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestRun_PhaseErrors(t *testing.T) {
	sentinel := errors.New("phase failed")

	tests := []struct {
		name     string
		pipeline *fakePipeline
		narrator *fakeNarrator
	}{
		{"sample error", &fakePipeline{sampleErr: sentinel}, &fakeNarrator{comment: "c"}},
		{"annotate error", &fakePipeline{frames: testFrames(1)}, &fakeNarrator{annotateErr: sentinel}},
		{"speak error", &fakePipeline{frames: testFrames(1)}, &fakeNarrator{comment: "c", speakErr: sentinel}},
		{"transcode error", &fakePipeline{frames: testFrames(1), transcodeErr: sentinel}, &fakeNarrator{comment: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := storage.NewLocalStorage(t.TempDir())
			require.NoError(t, err)

			a := New(testConfig(store.OutputDir()), quietLogger(), tt.narrator, store,
				WithPipeline(tt.pipeline),
			)

			_, err = a.Run(context.Background(), RunRequest{
				Input:       "in.mp4",
				Prompt:      "p",
				DurationSec: 2,
			})
			assert.ErrorIs(t, err, sentinel)
		})
	}
}

func TestRun_DumpFramesDisabled(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := testConfig(store.OutputDir())
	cfg.DumpFrames = false

	pipeline := &fakePipeline{frames: testFrames(1)}
	a := New(cfg, quietLogger(), &fakeNarrator{comment: "c"}, store,
		WithPipeline(pipeline),
	)

	_, err = a.Run(context.Background(), RunRequest{
		Input:       "in.mp4",
		Prompt:      "p",
		DurationSec: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, pipeline.sampleCfg.DumpDir)
}

func TestRun_Publish(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	store := &publishingStore{
		LocalStorage: local,
		urls: []string{
			"https://bucket.s3.region.amazonaws.com/runs/x/comment.mp3",
			"https://bucket.s3.region.amazonaws.com/runs/x/transcoded.mp4",
		},
	}

	cfg := testConfig(local.OutputDir())
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "region"

	a := New(cfg, quietLogger(), &fakeNarrator{comment: "c"}, store,
		WithPipeline(&fakePipeline{frames: testFrames(2)}),
	)

	result, err := a.Run(context.Background(), RunRequest{
		Input:       "in.mp4",
		Prompt:      "p",
		DurationSec: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, store.urls, result.PublishedURLs)
	require.Len(t, store.published, 2)
	assert.Equal(t, result.CommentPath, store.published[0])
	assert.Equal(t, result.VideoPath, store.published[1])
}
