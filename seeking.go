//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"log/slog"

	"github.com/lomavkin/annotai/avformat"
)

// seekToWindowStart positions the demuxer at the keyframe at or before the
// window start. Seeking is best effort: on failure the caller decodes from
// the beginning of the file and the window gates discard early frames.
func seekToWindowStart(inCtx avformat.FormatContext, inputPath string, window TimeWindow, logger *slog.Logger) {
	if err := avformat.SeekFrame(inCtx, -1, window.startMicros(), avformat.SeekFlagBackward); err != nil {
		logger.Debug("seek failed, decoding from start",
			slog.String("input", inputPath), slog.String("error", err.Error()))
	}
}
