//go:build !ios && !android && (amd64 || arm64)

// Package platform answers the questions the library loader asks about the
// host: how shared objects are named and which purego features work here.
package platform

import (
	"fmt"
	"runtime"
	"unsafe"
)

// SupportsStructByValue reports whether purego can pass or return structs
// by value on this platform. Only Darwin on amd64/arm64 can; everywhere
// else such calls panic, so the bindings stick to pointers and words.
const SupportsStructByValue = runtime.GOOS == "darwin" &&
	(runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64")

// Is64Bit is always true under the build tags; purego needs 64-bit.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// LibraryPrefix and LibraryExtension describe this platform's shared
// object naming.
var LibraryPrefix, LibraryExtension = namingScheme()

func namingScheme() (prefix, ext string) {
	switch runtime.GOOS {
	case "darwin":
		return "lib", ".dylib"
	case "windows":
		return "", ".dll"
	default:
		return "lib", ".so"
	}
}

// FormatLibraryName renders the soname for a library and major version;
// version 0 gives the unversioned name. The version slot moves with the
// platform: libavcodec.so.60 on Linux, libavcodec.60.dylib on macOS,
// avcodec-60.dll on Windows.
func FormatLibraryName(name string, version int) string {
	base := LibraryPrefix + name
	if version <= 0 {
		return base + LibraryExtension
	}
	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf("%s.%d%s", base, version, LibraryExtension)
	case "windows":
		return fmt.Sprintf("%s-%d%s", base, version, LibraryExtension)
	default:
		return fmt.Sprintf("%s%s.%d", base, LibraryExtension, version)
	}
}
