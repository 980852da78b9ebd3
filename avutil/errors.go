//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a failed FFmpeg call. Code holds the negative AVERROR value and
// Op the av_* function that returned it.
type Error struct {
	Code    int32
	Message string
	Op      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ffmpeg %s: %s (code %d)", e.Op, e.Message, e.Code)
}

// NewError wraps a native return code into an *Error, or nil when the code
// signals success.
func NewError(code int32, op string) error {
	if code >= 0 {
		return nil
	}
	return &Error{
		Code:    code,
		Message: ErrorString(code),
		Op:      op,
	}
}

// AVERROR values the pipeline branches on. The FFERRTAG-derived constants
// are spelled as their numeric values since Go cannot evaluate the C macro.
const (
	AVERROR_EOF               int32 = -541478725 // FFERRTAG('E','O','F',' ')
	AVERROR_EAGAIN            int32 = -int32(syscall.EAGAIN)
	AVERROR_EINVAL            int32 = -int32(syscall.EINVAL)
	AVERROR_DECODER_NOT_FOUND int32 = -1128613112
	AVERROR_ENCODER_NOT_FOUND int32 = -1129203192
	AVERROR_FILTER_NOT_FOUND  int32 = -1279870712
	AVERROR_STREAM_NOT_FOUND  int32 = -1381258232
)

// IsEOF reports whether err carries AVERROR_EOF, the fully-drained state of
// decoders, encoders, filter graphs and demuxers.
func IsEOF(err error) bool {
	return Code(err) == AVERROR_EOF
}

// IsAgain reports whether err carries AVERROR(EAGAIN): the component needs
// more input before it can produce output.
func IsAgain(err error) bool {
	return Code(err) == AVERROR_EAGAIN
}

// Code extracts the AVERROR value from err, or 0 when err is not an *Error.
func Code(err error) int32 {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr.Code
	}
	return 0
}
