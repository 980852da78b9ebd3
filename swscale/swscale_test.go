//go:build !ios && !android && (amd64 || arm64)

package swscale

import (
	"os"
	"testing"
	"unsafe"

	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

// newVideoFrame allocates a frame with the given geometry and a writable
// buffer, registering cleanup with t.
func newVideoFrame(t *testing.T, width, height int32, format avutil.PixelFormat) avutil.Frame {
	t.Helper()
	frame := avutil.FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	t.Cleanup(func() { avutil.FrameFree(&frame) })

	avutil.SetFrameWidth(frame, width)
	avutil.SetFrameHeight(frame, height)
	avutil.SetFrameFormat(frame, int32(format))
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		t.Fatalf("FrameGetBuffer: %v", err)
	}
	if err := avutil.FrameMakeWritable(frame); err != nil {
		t.Fatalf("FrameMakeWritable: %v", err)
	}
	return frame
}

// fillYUV writes a luma gradient and neutral chroma so a correct conversion
// yields non-trivial RGB.
func fillYUV(frame avutil.Frame) {
	width := int(avutil.GetFrameWidth(frame))
	height := int(avutil.GetFrameHeight(frame))

	yData := avutil.GetFrameDataPlane(frame, 0)
	yStride := int(avutil.GetFrameLinesizePlane(frame, 0))
	if yData == nil || yStride == 0 {
		return
	}
	luma := unsafe.Slice((*byte)(yData), height*yStride)
	for y := 0; y < height; y++ {
		row := luma[y*yStride:]
		for x := 0; x < width; x++ {
			row[x] = byte((x + y) % 256)
		}
	}

	for plane := 1; plane <= 2; plane++ {
		data := avutil.GetFrameDataPlane(frame, plane)
		stride := int(avutil.GetFrameLinesizePlane(frame, plane))
		if data == nil || stride == 0 {
			continue
		}
		chroma := unsafe.Slice((*byte)(data), (height/2)*stride)
		for i := range chroma {
			chroma[i] = 128
		}
	}
}

func TestGetContext(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx := GetContext(
		1920, 1080, avutil.PixelFormatYUV420P,
		320, 180, avutil.PixelFormatRGB24,
		FlagLanczos,
	)
	if ctx == nil {
		t.Fatal("GetContext rejected a yuv420p to rgb24 downscale")
	}
	FreeContext(ctx)

	FreeContext(nil)
}

func TestGetContextInvalidFormat(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx := GetContext(
		320, 240, avutil.PixelFormatNone,
		160, 120, avutil.PixelFormatRGB24,
		FlagBilinear,
	)
	if ctx != nil {
		FreeContext(ctx)
		t.Fatal("GetContext accepted PixelFormatNone input")
	}
}

func TestIsSupported(t *testing.T) {
	skipIfNoFFmpeg(t)

	if !IsSupportedInput(avutil.PixelFormatYUV420P) {
		t.Error("yuv420p should be a supported input")
	}
	if !IsSupportedOutput(avutil.PixelFormatRGB24) {
		t.Error("rgb24 should be a supported output")
	}
}

func TestScaleFrameNilArgs(t *testing.T) {
	err := ScaleFrame(nil, nil, nil)
	if err == nil {
		t.Fatal("ScaleFrame accepted nil context and frames")
	}
	if avutil.Code(err) != avutil.AVERROR_EINVAL {
		t.Errorf("ScaleFrame nil error code = %d, want EINVAL", avutil.Code(err))
	}
}

func TestScaleFrameToRGB(t *testing.T) {
	skipIfNoFFmpeg(t)

	src := newVideoFrame(t, 320, 240, avutil.PixelFormatYUV420P)
	fillYUV(src)
	dst := newVideoFrame(t, 320, 240, avutil.PixelFormatRGB24)

	ctx := GetContext(
		320, 240, avutil.PixelFormatYUV420P,
		320, 240, avutil.PixelFormatRGB24,
		FlagBilinear,
	)
	if ctx == nil {
		t.Fatal("GetContext returned nil")
	}
	defer FreeContext(ctx)

	if err := ScaleFrame(ctx, dst, src); err != nil {
		t.Fatalf("ScaleFrame: %v", err)
	}

	// A luma gradient over neutral chroma cannot convert to an all-zero row.
	rgb := avutil.GetFrameDataPlane(dst, 0)
	if rgb == nil {
		t.Fatal("converted frame has no data plane")
	}
	stride := int(avutil.GetFrameLinesizePlane(dst, 0))
	if stride < 320*3 {
		t.Fatalf("rgb24 stride %d shorter than packed row", stride)
	}
	row := unsafe.Slice((*byte)(rgb), stride)
	allZero := true
	for _, b := range row[:320*3] {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("converted RGB row is all zeros")
	}
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)
	ver := bindings.SWScaleVersion()
	if ver == 0 {
		t.Error("SWScaleVersion returned 0")
	}
	t.Logf("swscale version: %d.%d.%d", ver>>16, (ver>>8)&0xFF, ver&0xFF)
}
