//go:build !ios && !android && (amd64 || arm64)

package bindings

import (
	"testing"
)

func TestLibrarySearchPaths(t *testing.T) {
	paths := LibrarySearchPaths()
	if len(paths) == 0 {
		t.Fatal("no library search paths for this platform")
	}
	for _, p := range paths {
		if p == "" {
			t.Error("empty entry in search paths")
		}
	}
}

func TestFindLibrary(t *testing.T) {
	// Diagnostic walk only; absence of FFmpeg is not a failure here.
	path, err := FindLibrary("avutil", []int{59, 58, 57, 56})
	if err != nil {
		t.Logf("libavutil not found in search paths: %v", err)
		return
	}
	t.Logf("libavutil at %s", path)
}

func TestIsLoadedBeforeLoad(t *testing.T) {
	// Runs before TestLoad in source order; nothing else in this package
	// triggers Load.
	if IsLoaded() {
		t.Error("IsLoaded true before Load")
	}
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping library load in short mode")
	}

	if err := Load(); err != nil {
		t.Skipf("FFmpeg not available: %v", err)
	}
	if !IsLoaded() {
		t.Fatal("IsLoaded false after successful Load")
	}

	// All five libraries are required; each must report a version.
	versions := map[string]uint32{
		"avutil":   AVUtilVersion(),
		"avcodec":  AVCodecVersion(),
		"avformat": AVFormatVersion(),
		"avfilter": AVFilterVersion(),
		"swscale":  SWScaleVersion(),
	}
	for name, ver := range versions {
		if ver == 0 {
			t.Errorf("%s version is 0 after Load", name)
			continue
		}
		t.Logf("%s %d.%d.%d", name, ver>>16, (ver>>8)&0xFF, ver&0xFF)
	}
}
