//go:build !ios && !android && (amd64 || arm64)

// Package bindings locates and dlopens the FFmpeg shared libraries. The
// binding packages register their functions against the handles exposed
// here; nothing works before Load succeeds.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/internal/platform"
)

// ErrNotLoaded reports a binding call made before a successful Load.
var ErrNotLoaded = errors.New("annotai: FFmpeg libraries not loaded; call annotai.Init() first")

// ErrLibraryNotFound reports that no soname candidate for a required
// library resolved on this system.
var ErrLibraryNotFound = errors.New("annotai: FFmpeg library not found")

var (
	libAVUtil   uintptr
	libAVCodec  uintptr
	libAVFormat uintptr
	libAVFilter uintptr
	libSWScale  uintptr

	loaded   bool
	loadOnce sync.Once
	loadErr  error
)

var (
	avutilVersion   func() uint32
	avcodecVersion  func() uint32
	avformatVersion func() uint32
	avfilterVersion func() uint32
	swscaleVersion  func() uint32
)

// ffmpegLibs drives the load: dependency order, the soname major versions
// worth trying (FFmpeg 5 through 7), and where the handle lands. All five
// are required; sampling needs swscale and the overlay mix needs avfilter.
var ffmpegLibs = []struct {
	name     string
	versions []int
	handle   *uintptr
}{
	{"avutil", []int{59, 58, 57, 56}, &libAVUtil},
	{"avcodec", []int{61, 60, 59, 58}, &libAVCodec},
	{"avformat", []int{61, 60, 59, 58}, &libAVFormat},
	{"avfilter", []int{10, 9, 8, 7}, &libAVFilter},
	{"swscale", []int{8, 7, 6, 5}, &libSWScale},
}

// IsLoaded reports whether Load has completed successfully.
func IsLoaded() bool {
	return loaded
}

// Load opens the FFmpeg libraries and binds the version probes. The first
// call does the work; every later call returns the cached result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

func doLoad() error {
	for _, l := range ffmpegLibs {
		h, err := openLibrary(l.name, l.versions)
		if err != nil {
			return fmt.Errorf("loading lib%s: %w", l.name, err)
		}
		*l.handle = h
	}

	purego.RegisterLibFunc(&avutilVersion, libAVUtil, "avutil_version")
	purego.RegisterLibFunc(&avcodecVersion, libAVCodec, "avcodec_version")
	purego.RegisterLibFunc(&avformatVersion, libAVFormat, "avformat_version")
	purego.RegisterLibFunc(&avfilterVersion, libAVFilter, "avfilter_version")
	purego.RegisterLibFunc(&swscaleVersion, libSWScale, "swscale_version")

	return nil
}

// candidateNames yields the filenames worth trying for one library,
// versioned sonames first, the unversioned name last.
func candidateNames(name string, versions []int) []string {
	names := make([]string, 0, len(versions)+1)
	for _, ver := range versions {
		names = append(names, platform.FormatLibraryName(name, ver))
	}
	return append(names, platform.FormatLibraryName(name, 0))
}

// openLibrary dlopens the first candidate that resolves: explicit search
// paths first, then bare names for the system loader to find.
func openLibrary(name string, versions []int) (uintptr, error) {
	names := candidateNames(name, versions)

	for _, dir := range LibrarySearchPaths() {
		for _, n := range names {
			if h, err := dlopen(filepath.Join(dir, n)); err == nil {
				return h, nil
			}
		}
	}
	for _, n := range names {
		if h, err := dlopen(n); err == nil {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// dlopen opens with RTLD_NOW | RTLD_GLOBAL. Global visibility is required:
// the FFmpeg libraries resolve each other's symbols at load time.
func dlopen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

// FindLibrary reports where a library would be picked up from, for
// diagnostics. It stats files rather than opening them.
func FindLibrary(name string, versions []int) (string, error) {
	for _, dir := range LibrarySearchPaths() {
		for _, n := range candidateNames(name, versions) {
			full := filepath.Join(dir, n)
			if _, err := os.Stat(full); err == nil {
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// LibrarySearchPaths returns the directories to probe, loader environment
// variables first, then the distribution's usual install locations.
func LibrarySearchPaths() []string {
	var paths []string

	appendEnvList := func(key string) {
		if v := os.Getenv(key); v != "" {
			paths = append(paths, filepath.SplitList(v)...)
		}
	}

	switch runtime.GOOS {
	case "darwin":
		appendEnvList("DYLD_LIBRARY_PATH")
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)

	case "windows":
		appendEnvList("PATH")
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		paths = append(paths,
			`C:\ffmpeg\bin`,
			`C:\Program Files\ffmpeg\bin`,
		)

	case "freebsd":
		appendEnvList("LD_LIBRARY_PATH")
		paths = append(paths,
			"/usr/local/lib",
			"/usr/lib",
		)

	default: // linux
		appendEnvList("LD_LIBRARY_PATH")
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
			"/lib/x86_64-linux-gnu",
			"/lib",
		)
	}

	return paths
}

// AVUtilVersion returns avutil's packed version, 0 before Load.
func AVUtilVersion() uint32 {
	if !loaded || avutilVersion == nil {
		return 0
	}
	return avutilVersion()
}

// AVCodecVersion returns avcodec's packed version, 0 before Load.
func AVCodecVersion() uint32 {
	if !loaded || avcodecVersion == nil {
		return 0
	}
	return avcodecVersion()
}

// AVFormatVersion returns avformat's packed version, 0 before Load.
func AVFormatVersion() uint32 {
	if !loaded || avformatVersion == nil {
		return 0
	}
	return avformatVersion()
}

// AVFilterVersion returns avfilter's packed version, 0 before Load.
func AVFilterVersion() uint32 {
	if !loaded || avfilterVersion == nil {
		return 0
	}
	return avfilterVersion()
}

// SWScaleVersion returns swscale's packed version, 0 before Load.
func SWScaleVersion() uint32 {
	if !loaded || swscaleVersion == nil {
		return 0
	}
	return swscaleVersion()
}

// LibAVUtil returns the avutil handle for binding registration.
func LibAVUtil() uintptr { return libAVUtil }

// LibAVCodec returns the avcodec handle for binding registration.
func LibAVCodec() uintptr { return libAVCodec }

// LibAVFormat returns the avformat handle for binding registration.
func LibAVFormat() uintptr { return libAVFormat }

// LibAVFilter returns the avfilter handle for binding registration.
func LibAVFilter() uintptr { return libAVFilter }

// LibSWScale returns the swscale handle for binding registration.
func LibSWScale() uintptr { return libSWScale }
