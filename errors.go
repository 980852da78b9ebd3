//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"errors"

	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// FFmpegError is an error from a native FFmpeg call. It carries the raw
// error code and the av_* function that produced it.
type FFmpegError = avutil.Error

// Sentinel errors.
var (
	// ErrNotLoaded indicates the FFmpeg libraries could not be loaded.
	ErrNotLoaded = bindings.ErrNotLoaded

	// ErrNoVideoStream indicates the input has no video stream to sample.
	ErrNoVideoStream = errors.New("annotai: no video stream")

	// ErrMissingTimestamp indicates a decoded frame or packet carried no
	// presentation timestamp, which the window math cannot work without.
	ErrMissingTimestamp = errors.New("annotai: frame has no timestamp")
)

// ErrorCode returns the native error code carried by err, or 0 when err is
// not an FFmpeg error.
func ErrorCode(err error) int32 {
	return avutil.Code(err)
}
