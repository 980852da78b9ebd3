//go:build !ios && !android && (amd64 || arm64)

// Package swscale wraps libswscale: pixel format conversion and scaling of
// raw video frames. The frame sampler uses it to turn decoded YUV frames
// into RGB before JPEG encoding.
package swscale

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Context wraps an SwsContext handle.
type Context = unsafe.Pointer

// Scaling algorithms, passed to GetContext as flags. Any other SWS_* value
// works as a raw int32.
const (
	FlagFastBilinear int32 = 1
	FlagBilinear     int32 = 2
	FlagBicubic      int32 = 4
	FlagLanczos      int32 = 0x200
)

var (
	swsGetContext     func(srcW, srcH, srcFormat, dstW, dstH, dstFormat, flags int32, srcFilter, dstFilter, param unsafe.Pointer) uintptr
	swsScale          func(ctx unsafe.Pointer, srcSlice, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dst, dstStride unsafe.Pointer) int32
	swsScaleFrame     func(ctx, dst, src unsafe.Pointer) int32
	swsFreeContext    func(ctx unsafe.Pointer)
	swsIsSupportedIn  func(format int32) int32
	swsIsSupportedOut func(format int32) int32

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

func registerBindings() {
	if bindingsRegistered {
		return
	}

	if err := bindings.Load(); err != nil {
		return
	}

	lib := bindings.LibSWScale()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&swsGetContext, lib, "sws_getContext")
	purego.RegisterLibFunc(&swsScale, lib, "sws_scale")
	purego.RegisterLibFunc(&swsFreeContext, lib, "sws_freeContext")
	purego.RegisterLibFunc(&swsIsSupportedIn, lib, "sws_isSupportedInput")
	purego.RegisterLibFunc(&swsIsSupportedOut, lib, "sws_isSupportedOutput")

	// sws_scale_frame exists from FFmpeg 5.0 on.
	registerOptionalLibFunc(&swsScaleFrame, lib, "sws_scale_frame")

	bindingsRegistered = true
}

// registerOptionalLibFunc swallows the panic RegisterLibFunc raises for a
// missing symbol, leaving the pointer nil.
func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() { _ = recover() }()
	purego.RegisterLibFunc(fptr, handle, name)
}

// GetContext creates a context converting srcW x srcH frames in srcFormat
// to dstW x dstH in dstFormat. Returns nil when libswscale rejects the
// combination. Release with FreeContext.
func GetContext(srcW, srcH int32, srcFormat avutil.PixelFormat, dstW, dstH int32, dstFormat avutil.PixelFormat, flags int32) Context {
	if swsGetContext == nil {
		return nil
	}
	return unsafe.Pointer(swsGetContext(
		srcW, srcH, int32(srcFormat),
		dstW, dstH, int32(dstFormat),
		flags,
		nil, nil, nil,
	))
}

// ScaleFrame converts src into dst. dst must already carry the target
// width, height, format and allocated buffers.
func ScaleFrame(ctx Context, dst, src avutil.Frame) error {
	if ctx == nil || dst == nil || src == nil {
		return avutil.NewError(avutil.AVERROR_EINVAL, "sws_scale_frame")
	}

	if swsScaleFrame != nil {
		if ret := swsScaleFrame(ctx, dst, src); ret < 0 {
			return avutil.NewError(ret, "sws_scale_frame")
		}
		return nil
	}

	// FFmpeg 4.x path: hand sws_scale the plane and stride arrays directly.
	if swsScale == nil {
		return bindings.ErrNotLoaded
	}
	var srcData, dstData [8]unsafe.Pointer
	var srcStride, dstStride [8]int32
	for i := 0; i < 8; i++ {
		srcData[i] = avutil.GetFrameDataPlane(src, i)
		srcStride[i] = avutil.GetFrameLinesizePlane(src, i)
		dstData[i] = avutil.GetFrameDataPlane(dst, i)
		dstStride[i] = avutil.GetFrameLinesizePlane(dst, i)
	}
	ret := swsScale(ctx,
		unsafe.Pointer(&srcData), unsafe.Pointer(&srcStride),
		0, avutil.GetFrameHeight(src),
		unsafe.Pointer(&dstData), unsafe.Pointer(&dstStride),
	)
	if ret < 0 {
		return avutil.NewError(ret, "sws_scale")
	}
	return nil
}

// FreeContext releases a scaling context. Tolerates nil.
func FreeContext(ctx Context) {
	if ctx == nil || swsFreeContext == nil {
		return
	}
	swsFreeContext(ctx)
}

// IsSupportedInput reports whether libswscale can read format.
func IsSupportedInput(format avutil.PixelFormat) bool {
	return swsIsSupportedIn != nil && swsIsSupportedIn(int32(format)) > 0
}

// IsSupportedOutput reports whether libswscale can produce format.
func IsSupportedOutput(format avutil.PixelFormat) bool {
	return swsIsSupportedOut != nil && swsIsSupportedOut(int32(format)) > 0
}
