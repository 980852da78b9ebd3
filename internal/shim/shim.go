//go:build !ios && !android && (amd64 || arm64)

// Package shim loads the optional ffshim helper used for FFmpeg log
// capture. FFmpeg's log callback receives a va_list, which purego cannot
// express; the helper is a small C library that formats each message and
// forwards the finished string to a plain function pointer Go can provide.
//
// Everything works without the helper, FFmpeg just keeps writing its log
// lines to stderr. The library is looked up as libffshim.so,
// libffshim.dylib or ffshim.dll beside the FFmpeg libraries, the
// executable and the working directory; ANNOTAI_SHIM_DIR pins a directory
// explicitly.
package shim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/purego"

	"github.com/lomavkin/annotai/internal/bindings"
)

// ErrShimNotLoaded is returned by shim calls when the helper is absent.
var ErrShimNotLoaded = errors.New("annotai: shim library not loaded; FFmpeg log capture unavailable")

// ErrShimNotFound is returned when no shim library exists in the search
// locations.
var ErrShimNotFound = errors.New("annotai: shim library not found")

var (
	loadOnce sync.Once
	loadErr  error
	loaded   atomic.Bool

	libShim  uintptr
	shimPath string

	shimLogSetCallback func(cb uintptr)
)

// Load locates and opens the helper. The first attempt's outcome is
// cached; a missing helper keeps returning the same error.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded.Store(true)
		}
	})
	return loadErr
}

func doLoad() error {
	path, err := locate()
	if err != nil {
		return err
	}
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("load shim at %s: %w", path, err)
	}

	libShim = lib
	shimPath = path

	// Builds of the helper may carry a subset of symbols; missing ones
	// surface as feature-level errors, not load failures.
	registerOptionalLibFunc(&shimLogSetCallback, libShim, "ffshim_log_set_callback")
	return nil
}

// registerOptionalLibFunc swallows the panic purego raises for a missing
// symbol, leaving the function pointer nil.
func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() {
		_ = recover()
	}()
	purego.RegisterLibFunc(fptr, handle, name)
}

// IsLoaded reports whether a previous Load succeeded. It never triggers a
// load itself.
func IsLoaded() bool {
	return loaded.Load()
}

// Path returns where the helper was loaded from, "" when it is not loaded.
func Path() string {
	if !loaded.Load() {
		return ""
	}
	return shimPath
}

// SetLogCallback hands cb, a purego.NewCallback value, to the helper as
// FFmpeg's log callback. 0 restores FFmpeg's default handler.
func SetLogCallback(cb uintptr) error {
	if !loaded.Load() {
		return ErrShimNotLoaded
	}
	if shimLogSetCallback == nil {
		return errors.New("annotai: ffshim_log_set_callback symbol not available in shim")
	}
	shimLogSetCallback(cb)
	return nil
}

// libraryNames returns the filenames the helper may carry on this OS.
func libraryNames() ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libffshim.dylib", "libffshim.1.dylib"}, nil
	case "windows":
		return []string{"ffshim.dll", "libffshim.dll"}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"libffshim.so", "libffshim.so.1"}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s/%s", ErrShimNotFound, runtime.GOOS, runtime.GOARCH)
	}
}

// locate finds the helper on disk. An ANNOTAI_SHIM_DIR that does not hold
// the helper is an error rather than a fallthrough, so a misconfigured
// override is visible.
func locate() (string, error) {
	names, err := libraryNames()
	if err != nil {
		return "", err
	}

	if dir := os.Getenv("ANNOTAI_SHIM_DIR"); dir != "" {
		if path, ok := firstExisting([]string{dir}, names); ok {
			return path, nil
		}
		return "", fmt.Errorf("%w: ANNOTAI_SHIM_DIR=%s does not contain %s", ErrShimNotFound, dir, names[0])
	}

	// The helper links against the FFmpeg build it was compiled with, so
	// it normally sits beside those libraries.
	dirs := bindings.LibrarySearchPaths()
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	if path, ok := firstExisting(dirs, names); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: looked for %s in %d directories; set ANNOTAI_SHIM_DIR",
		ErrShimNotFound, names[0], len(dirs))
}

func firstExisting(dirs, names []string) (string, bool) {
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}
