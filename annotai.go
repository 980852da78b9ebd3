//go:build !ios && !android && (amd64 || arm64)

// Package annotai implements the media half of a video narration pipeline:
// sampling still frames out of a decoded video window, and transcoding the
// source into a trimmed output with an optional narration track mixed into
// the program audio. FFmpeg's shared libraries are driven through purego,
// without CGO.
//
// The two entry points are SampleFrames (frame extraction) and Transcode
// (trim + re-encode + overlay mix). The low-level packages (avutil, avcodec,
// avformat, avfilter, swscale) are available for advanced use.
package annotai

import (
	"log/slog"

	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Init loads the FFmpeg libraries. The high-level API calls it implicitly,
// but calling it up front surfaces load errors early. Safe to call multiple
// times.
func Init() error {
	return bindings.Load()
}

// Version returns the loaded avutil, avcodec and avformat library versions.
func Version() (avutilVer, avcodecVer, avformatVer uint32) {
	return bindings.AVUtilVersion(), bindings.AVCodecVersion(), bindings.AVFormatVersion()
}

// Re-exported types used across the public API.
type (
	// Rational is a rational number (time bases, frame rates).
	Rational = avutil.Rational

	// MediaType classifies a stream (video, audio, subtitle, ...).
	MediaType = avutil.MediaType

	// CodecID identifies a codec.
	CodecID = avcodec.CodecID
)

// Re-exported constants used across the public API.
const (
	MediaTypeUnknown  = avutil.MediaTypeUnknown
	MediaTypeVideo    = avutil.MediaTypeVideo
	MediaTypeAudio    = avutil.MediaTypeAudio
	MediaTypeSubtitle = avutil.MediaTypeSubtitle
)

// NewRational creates a rational number.
func NewRational(num, den int32) Rational {
	return avutil.NewRational(num, den)
}

// Option configures the high-level pipeline operations.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes pipeline progress and diagnostics to l instead of
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
