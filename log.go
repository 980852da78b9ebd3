//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/shim"
)

// LogLevel is an FFmpeg AV_LOG_* verbosity value.
type LogLevel int32

const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
	LogTrace   LogLevel = 56
)

// logLevelNames orders the levels for both directions of the name mapping.
var logLevelNames = []struct {
	level LogLevel
	name  string
}{
	{LogQuiet, "quiet"},
	{LogPanic, "panic"},
	{LogFatal, "fatal"},
	{LogError, "error"},
	{LogWarning, "warning"},
	{LogInfo, "info"},
	{LogVerbose, "verbose"},
	{LogDebug, "debug"},
	{LogTrace, "trace"},
}

// String renders the level under FFmpeg's naming; values between two named
// levels take the next named one up.
func (l LogLevel) String() string {
	for _, e := range logLevelNames {
		if l <= e.level {
			return e.name
		}
	}
	return "trace"
}

// ParseLogLevel resolves an FFmpeg level name ("quiet" through "trace").
// Unknown names are an error, not a default.
func ParseLogLevel(name string) (LogLevel, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, e := range logLevelNames {
		if e.name == want {
			return e.level, nil
		}
	}
	return LogQuiet, fmt.Errorf("annotai: unknown FFmpeg log level %q", name)
}

// SetLogLevel sets the native log verbosity, loading the libraries first
// when needed.
func SetLogLevel(level LogLevel) error {
	if err := Init(); err != nil {
		return err
	}
	avutil.LogSetLevel(int32(level))
	return nil
}

// LogCallback receives one captured FFmpeg log message.
type LogCallback func(level LogLevel, message string)

var (
	logCallbackMu sync.Mutex
	logCallback   LogCallback
	logCBHandle   uintptr
)

// LogCaptureAvailable reports whether FFmpeg log lines can be routed into
// Go. Capture runs through the ffshim helper, since the native callback
// takes a va_list purego cannot express.
func LogCaptureAvailable() bool {
	return shim.Load() == nil
}

// SetLogCallback directs FFmpeg log messages to cb instead of stderr; nil
// restores the default handler. Fails when the ffshim helper is absent,
// see LogCaptureAvailable.
func SetLogCallback(cb LogCallback) error {
	if err := shim.Load(); err != nil {
		return err
	}

	logCallbackMu.Lock()
	defer logCallbackMu.Unlock()

	if cb == nil {
		logCallback = nil
		return shim.SetLogCallback(0)
	}

	logCallback = cb
	if logCBHandle == 0 {
		logCBHandle = purego.NewCallback(logCallbackTrampoline)
	}
	return shim.SetLogCallback(logCBHandle)
}

// maxLogMessage caps the scan for the message's NUL terminator.
const maxLogMessage = 4096

// logCallbackTrampoline receives void(void *avcl, int level, const char *msg)
// from the helper and forwards the message to the registered callback.
func logCallbackTrampoline(_ purego.CDecl, _ unsafe.Pointer, level int32, msg *byte) {
	logCallbackMu.Lock()
	cb := logCallback
	logCallbackMu.Unlock()
	if cb == nil {
		return
	}
	cb(LogLevel(level), cMessage(msg))
}

func cMessage(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for n < maxLogMessage && *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
