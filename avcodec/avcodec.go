//go:build !ios && !android && (amd64 || arm64)

// Package avcodec wraps libavcodec: codec lookup, the send/receive decode
// and encode loops, packet lifecycle, and codec parameters. Fields of the
// opaque FFmpeg structs are read through hardcoded FFmpeg 6.x offsets,
// declared next to their accessors.
package avcodec

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Opaque libavcodec pointers.
type (
	// Codec is an AVCodec, a codec definition from the registry.
	Codec = unsafe.Pointer

	// Context is an AVCodecContext, one decoder or encoder instance.
	Context = unsafe.Pointer

	// Packet is an AVPacket of compressed data.
	Packet = unsafe.Pointer

	// Parameters is an AVCodecParameters, the codec properties of a stream.
	Parameters = unsafe.Pointer
)

var (
	avcodecFindDecoder   func(id int32) uintptr
	avcodecFindEncoder   func(id int32) uintptr
	avcodecAllocContext3 func(codec uintptr) uintptr
	avcodecFreeContext   func(ctx *unsafe.Pointer)
	avcodecOpen2         func(ctx, codec uintptr, options *unsafe.Pointer) int32

	avcodecSendPacket    func(ctx, pkt uintptr) int32
	avcodecReceiveFrame  func(ctx, frame uintptr) int32
	avcodecSendFrame     func(ctx, frame uintptr) int32
	avcodecReceivePacket func(ctx, pkt uintptr) int32

	avcodecParametersToCtx   func(ctx, par uintptr) int32
	avcodecParametersFromCtx func(par, ctx uintptr) int32
	avcodecParametersCopy    func(dst, src uintptr) int32

	avPacketAlloc func() uintptr
	avPacketFree  func(pkt *unsafe.Pointer)
	avPacketUnref func(pkt uintptr)

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

	lib := bindings.LibAVCodec()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avcodecFindDecoder, lib, "avcodec_find_decoder")
	purego.RegisterLibFunc(&avcodecFindEncoder, lib, "avcodec_find_encoder")
	purego.RegisterLibFunc(&avcodecAllocContext3, lib, "avcodec_alloc_context3")
	purego.RegisterLibFunc(&avcodecFreeContext, lib, "avcodec_free_context")
	purego.RegisterLibFunc(&avcodecOpen2, lib, "avcodec_open2")

	purego.RegisterLibFunc(&avcodecSendPacket, lib, "avcodec_send_packet")
	purego.RegisterLibFunc(&avcodecReceiveFrame, lib, "avcodec_receive_frame")
	purego.RegisterLibFunc(&avcodecSendFrame, lib, "avcodec_send_frame")
	purego.RegisterLibFunc(&avcodecReceivePacket, lib, "avcodec_receive_packet")

	purego.RegisterLibFunc(&avcodecParametersToCtx, lib, "avcodec_parameters_to_context")
	purego.RegisterLibFunc(&avcodecParametersFromCtx, lib, "avcodec_parameters_from_context")
	purego.RegisterLibFunc(&avcodecParametersCopy, lib, "avcodec_parameters_copy")

	purego.RegisterLibFunc(&avPacketAlloc, lib, "av_packet_alloc")
	purego.RegisterLibFunc(&avPacketFree, lib, "av_packet_free")
	purego.RegisterLibFunc(&avPacketUnref, lib, "av_packet_unref")

	bindingsRegistered = true
}

// FindDecoder returns the default decoder for id, nil when FFmpeg has none.
func FindDecoder(id CodecID) Codec {
	if avcodecFindDecoder == nil {
		return nil
	}
	return unsafe.Pointer(avcodecFindDecoder(int32(id)))
}

// FindEncoder returns the default encoder for id, nil when FFmpeg has none.
func FindEncoder(id CodecID) Codec {
	if avcodecFindEncoder == nil {
		return nil
	}
	return unsafe.Pointer(avcodecFindEncoder(int32(id)))
}

// AVCodec field offsets for FFmpeg 6.x.
const (
	offsetCodecName         = 0  // const char *name
	offsetCodecCapabilities = 24 // int capabilities
	offsetCodecSampleFmts   = 56 // const enum AVSampleFormat *sample_fmts
	offsetCodecChLayouts    = 96 // const AVChannelLayout *ch_layouts
)

// CodecCapVariableFrameSize marks encoders that accept audio frames of any
// length (AV_CODEC_CAP_VARIABLE_FRAME_SIZE).
const CodecCapVariableFrameSize int32 = 1 << 16

// GetCodecName returns the codec's short name, "h264" for example.
func GetCodecName(codec Codec) string {
	if codec == nil {
		return ""
	}
	return goString(*(*unsafe.Pointer)(unsafe.Pointer(uintptr(codec) + offsetCodecName)))
}

// GetCodecCapabilities returns the AV_CODEC_CAP_* bits of the codec.
func GetCodecCapabilities(codec Codec) int32 {
	if codec == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(codec) + offsetCodecCapabilities))
}

// GetCodecSampleFmts lists the sample formats the codec supports, nil when
// it accepts any. The native list is -1 terminated.
func GetCodecSampleFmts(codec Codec) []avutil.SampleFormat {
	if codec == nil {
		return nil
	}
	list := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(codec) + offsetCodecSampleFmts))
	if list == nil {
		return nil
	}
	var fmts []avutil.SampleFormat
	for i := uintptr(0); ; i++ {
		v := *(*int32)(unsafe.Pointer(uintptr(list) + i*4))
		if v == -1 {
			break
		}
		fmts = append(fmts, avutil.SampleFormat(v))
	}
	return fmts
}

// GetCodecChannelLayouts lists pointers into the codec's supported channel
// layout table, nil when it accepts any. The native list ends at a zeroed
// AVChannelLayout.
func GetCodecChannelLayouts(codec Codec) []unsafe.Pointer {
	if codec == nil {
		return nil
	}
	list := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(codec) + offsetCodecChLayouts))
	if list == nil {
		return nil
	}
	var layouts []unsafe.Pointer
	for i := uintptr(0); ; i++ {
		entry := unsafe.Pointer(uintptr(list) + i*avutil.ChannelLayoutSize)
		if avutil.GetChannelLayoutNbChannels(entry) == 0 {
			break
		}
		layouts = append(layouts, entry)
	}
	return layouts
}

// AllocContext3 allocates a codec context, with codec's defaults applied
// when codec is non-nil. Release with FreeContext.
func AllocContext3(codec Codec) Context {
	if avcodecAllocContext3 == nil {
		return nil
	}
	return unsafe.Pointer(avcodecAllocContext3(uintptr(codec)))
}

// FreeContext frees the codec context and nils the pointer. Tolerates nil.
func FreeContext(ctx *Context) {
	if avcodecFreeContext == nil || ctx == nil || *ctx == nil {
		return
	}
	avcodecFreeContext(ctx)
}

// Open2 opens the codec on the context. options entries the codec consumes
// are removed from the dictionary.
func Open2(ctx Context, codec Codec, options *avutil.Dictionary) error {
	if avcodecOpen2 == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecOpen2(uintptr(ctx), uintptr(codec), options); ret < 0 {
		return avutil.NewError(ret, "avcodec_open2")
	}
	return nil
}

// SendPacket feeds compressed data to the decoder. nil starts draining.
func SendPacket(ctx Context, pkt Packet) error {
	if avcodecSendPacket == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecSendPacket(uintptr(ctx), uintptr(pkt)); ret < 0 {
		return avutil.NewError(ret, "avcodec_send_packet")
	}
	return nil
}

// ReceiveFrame pulls the next decoded frame. The error satisfies
// avutil.IsAgain while the decoder wants more input and avutil.IsEOF once
// it is drained.
func ReceiveFrame(ctx Context, frame avutil.Frame) error {
	if avcodecReceiveFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecReceiveFrame(uintptr(ctx), uintptr(frame)); ret < 0 {
		return avutil.NewError(ret, "avcodec_receive_frame")
	}
	return nil
}

// SendFrame feeds a raw frame to the encoder. nil starts draining.
func SendFrame(ctx Context, frame avutil.Frame) error {
	if avcodecSendFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecSendFrame(uintptr(ctx), uintptr(frame)); ret < 0 {
		return avutil.NewError(ret, "avcodec_send_frame")
	}
	return nil
}

// ReceivePacket pulls the next encoded packet. Same EAGAIN and EOF
// conventions as ReceiveFrame.
func ReceivePacket(ctx Context, pkt Packet) error {
	if avcodecReceivePacket == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecReceivePacket(uintptr(ctx), uintptr(pkt)); ret < 0 {
		return avutil.NewError(ret, "avcodec_receive_packet")
	}
	return nil
}

// ParametersToContext configures the context from stream parameters.
func ParametersToContext(ctx Context, par Parameters) error {
	if avcodecParametersToCtx == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecParametersToCtx(uintptr(ctx), uintptr(par)); ret < 0 {
		return avutil.NewError(ret, "avcodec_parameters_to_context")
	}
	return nil
}

// ParametersFromContext exports the context's settings into stream
// parameters, done after an encoder is opened.
func ParametersFromContext(par Parameters, ctx Context) error {
	if avcodecParametersFromCtx == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecParametersFromCtx(uintptr(par), uintptr(ctx)); ret < 0 {
		return avutil.NewError(ret, "avcodec_parameters_from_context")
	}
	return nil
}

// ParametersCopy copies codec parameters, used for passthrough streams.
func ParametersCopy(dst, src Parameters) error {
	if avcodecParametersCopy == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avcodecParametersCopy(uintptr(dst), uintptr(src)); ret < 0 {
		return avutil.NewError(ret, "avcodec_parameters_copy")
	}
	return nil
}

// PacketAlloc allocates an empty packet. Release with PacketFree.
func PacketAlloc() Packet {
	if avPacketAlloc == nil {
		return nil
	}
	return unsafe.Pointer(avPacketAlloc())
}

// PacketFree frees the packet and nils the pointer. Tolerates nil.
func PacketFree(pkt *Packet) {
	if avPacketFree == nil || pkt == nil || *pkt == nil {
		return
	}
	avPacketFree(pkt)
}

// PacketUnref drops the packet's payload so it can be reused.
func PacketUnref(pkt Packet) {
	if avPacketUnref == nil || pkt == nil {
		return
	}
	avPacketUnref(uintptr(pkt))
}

// AVPacket field offsets for FFmpeg 6.x. Payload fields in between are not
// accessed; packets move through FFmpeg calls intact.
const (
	offsetPacketPts         = 8  // int64_t pts
	offsetPacketDts         = 16 // int64_t dts
	offsetPacketStreamIndex = 36 // int stream_index
	offsetPacketDuration    = 64 // int64_t duration
)

func GetPacketPTS(pkt Packet) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketPts))
}

func SetPacketPTS(pkt Packet, pts int64) {
	if pkt == nil {
		return
	}
	*(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketPts)) = pts
}

func GetPacketDTS(pkt Packet) int64 {
	if pkt == nil {
		return avutil.NoPTSValue
	}
	return *(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketDts))
}

func SetPacketDTS(pkt Packet, dts int64) {
	if pkt == nil {
		return
	}
	*(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketDts)) = dts
}

func GetPacketStreamIndex(pkt Packet) int32 {
	if pkt == nil {
		return -1
	}
	return *(*int32)(unsafe.Pointer(uintptr(pkt) + offsetPacketStreamIndex))
}

func SetPacketStreamIndex(pkt Packet, idx int32) {
	if pkt == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(pkt) + offsetPacketStreamIndex)) = idx
}

// GetPacketDuration returns the duration in stream time base units, 0 when
// unknown.
func GetPacketDuration(pkt Packet) int64 {
	if pkt == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketDuration))
}

func SetPacketDuration(pkt Packet, dur int64) {
	if pkt == nil {
		return
	}
	*(*int64)(unsafe.Pointer(uintptr(pkt) + offsetPacketDuration)) = dur
}

// RescalePacketTS converts the packet's pts, dts and duration from srcTb
// to dstTb like av_packet_rescale_ts. avutil.NoPTSValue timestamps pass
// through unchanged.
func RescalePacketTS(pkt Packet, srcTb, dstTb avutil.Rational) {
	if pkt == nil {
		return
	}

	if pts := GetPacketPTS(pkt); pts != avutil.NoPTSValue {
		SetPacketPTS(pkt, rescaleQ(pts, srcTb, dstTb))
	}
	if dts := GetPacketDTS(pkt); dts != avutil.NoPTSValue {
		SetPacketDTS(pkt, rescaleQ(dts, srcTb, dstTb))
	}
	// Duration 0 means "unknown", keep it as-is.
	if dur := GetPacketDuration(pkt); dur > 0 {
		SetPacketDuration(pkt, rescaleQ(dur, srcTb, dstTb))
	}
}

// RescaleQ converts a timestamp from srcTb to dstTb, rounding to nearest
// like av_rescale_q.
func RescaleQ(a int64, srcTb, dstTb avutil.Rational) int64 {
	return rescaleQ(a, srcTb, dstTb)
}

func rescaleQ(a int64, bq, cq avutil.Rational) int64 {
	// a * bq / cq = a * (bq.Num * cq.Den) / (bq.Den * cq.Num)
	b := int64(bq.Num) * int64(cq.Den)
	c := int64(bq.Den) * int64(cq.Num)
	if c == 0 {
		return 0
	}
	if a >= 0 {
		return (a*b + c/2) / c
	}
	return (a*b - c/2) / c
}

// AVCodecContext field offsets, verified with offsetof() against
// avcodec 60.x. These move between major FFmpeg versions.
const (
	offsetCtxBitRate           = 56  // int64_t bit_rate
	offsetCtxFlags             = 76  // int flags
	offsetCtxTimeBase          = 100 // AVRational time_base
	offsetCtxWidth             = 116 // int width
	offsetCtxHeight            = 120 // int height
	offsetCtxPixFmt            = 136 // enum AVPixelFormat pix_fmt
	offsetCtxSampleAspectRatio = 216 // AVRational sample_aspect_ratio
	offsetCtxSampleRate        = 352 // int sample_rate
	offsetCtxSampleFmt         = 360 // enum AVSampleFormat sample_fmt
	offsetCtxFrameSize         = 364 // int frame_size
	offsetCtxFramerate         = 704 // AVRational framerate
	offsetCtxChLayout          = 912 // AVChannelLayout ch_layout (FFmpeg 5.1+)
)

// CodecFlagGlobalHeader asks the encoder to place codec headers out of
// band (AV_CODEC_FLAG_GLOBAL_HEADER), required by MP4-family muxers.
const CodecFlagGlobalHeader int32 = 1 << 22

// Context setters go through AVOptions where the field has an option name
// ("b", "ar", "sample_fmt", ...), falling back to the raw offset. Options
// are looked up by name at runtime, so that path is immune to layout
// drift between FFmpeg versions.

func GetCtxWidth(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxWidth))
}

func SetCtxWidth(ctx Context, width int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxWidth)) = width
}

func GetCtxHeight(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxHeight))
}

func SetCtxHeight(ctx Context, height int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxHeight)) = height
}

func GetCtxPixFmt(ctx Context) int32 {
	if ctx == nil {
		return -1
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxPixFmt))
}

func SetCtxPixFmt(ctx Context, fmt int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxPixFmt)) = fmt
}

func GetCtxTimeBase(ctx Context) avutil.Rational {
	if ctx == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxTimeBase))
	den := *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxTimeBase + 4))
	return avutil.NewRational(num, den)
}

func SetCtxTimeBase(ctx Context, tb avutil.Rational) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxTimeBase)) = tb.Num
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxTimeBase + 4)) = tb.Den
}

func GetCtxSampleAspectRatio(ctx Context) avutil.Rational {
	if ctx == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleAspectRatio))
	den := *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleAspectRatio + 4))
	return avutil.NewRational(num, den)
}

func SetCtxSampleAspectRatio(ctx Context, sar avutil.Rational) {
	if ctx == nil {
		return
	}
	if sar.Den != 0 {
		if err := avutil.OptSet(ctx, "sar", fmt.Sprintf("%d/%d", sar.Num, sar.Den), 0); err == nil {
			return
		}
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleAspectRatio)) = sar.Num
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleAspectRatio + 4)) = sar.Den
}

func SetCtxFramerate(ctx Context, rate avutil.Rational) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxFramerate)) = rate.Num
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxFramerate + 4)) = rate.Den
}

func GetCtxBitRate(ctx Context) int64 {
	if ctx == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(ctx) + offsetCtxBitRate))
}

func SetCtxBitRate(ctx Context, bitRate int64) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "b", bitRate, 0); err == nil {
		return
	}
	*(*int64)(unsafe.Pointer(uintptr(ctx) + offsetCtxBitRate)) = bitRate
}

func GetCtxFlags(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxFlags))
}

func SetCtxFlags(ctx Context, flags int32) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "flags", int64(flags), 0); err == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxFlags)) = flags
}

func GetCtxSampleRate(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleRate))
}

func SetCtxSampleRate(ctx Context, sampleRate int32) {
	if ctx == nil {
		return
	}
	if err := avutil.OptSetInt(ctx, "ar", int64(sampleRate), 0); err == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleRate)) = sampleRate
}

func GetCtxSampleFmt(ctx Context) avutil.SampleFormat {
	if ctx == nil {
		return avutil.SampleFormatNone
	}
	return avutil.SampleFormat(*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleFmt)))
}

func SetCtxSampleFmt(ctx Context, sampleFmt avutil.SampleFormat) {
	if ctx == nil {
		return
	}
	if name := sampleFmt.Name(); name != "" {
		if err := avutil.OptSet(ctx, "sample_fmt", name, 0); err == nil {
			return
		}
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxSampleFmt)) = int32(sampleFmt)
}

// GetCtxFrameSize returns the samples-per-frame the opened audio encoder
// expects, 0 when any size works.
func GetCtxFrameSize(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxFrameSize))
}

// GetCtxChLayoutPtr returns a pointer to the context's embedded ch_layout,
// for the FFmpeg 5.1+ channel layout calls in avutil.
func GetCtxChLayoutPtr(ctx Context) unsafe.Pointer {
	if ctx == nil {
		return nil
	}
	return unsafe.Pointer(uintptr(ctx) + offsetCtxChLayout)
}

// AVCodecParameters field offsets for FFmpeg 6.x.
const (
	offsetParCodecType  = 0   // enum AVMediaType codec_type
	offsetParCodecID    = 4   // enum AVCodecID codec_id
	offsetParCodecTag   = 8   // uint32_t codec_tag
	offsetParFormat     = 28  // int format
	offsetParBitRate    = 32  // int64_t bit_rate
	offsetParWidth      = 56  // int width
	offsetParHeight     = 60  // int height
	offsetParSampleRate = 116 // int sample_rate
	offsetParChLayout   = 144 // AVChannelLayout ch_layout
)

func GetParCodecType(par Parameters) avutil.MediaType {
	if par == nil {
		return avutil.MediaTypeUnknown
	}
	return avutil.MediaType(*(*int32)(unsafe.Pointer(uintptr(par) + offsetParCodecType)))
}

func GetParCodecID(par Parameters) CodecID {
	if par == nil {
		return CodecIDNone
	}
	return CodecID(*(*int32)(unsafe.Pointer(uintptr(par) + offsetParCodecID)))
}

// SetCodecParTag sets the container codec tag. Copied parameters carry the
// source container's tag; writing 0 lets the target muxer pick its own.
func SetCodecParTag(par Parameters, tag uint32) {
	if par == nil {
		return
	}
	*(*uint32)(unsafe.Pointer(uintptr(par) + offsetParCodecTag)) = tag
}

// GetParFormat returns the pixel or sample format, by media type.
func GetParFormat(par Parameters) int32 {
	if par == nil {
		return -1
	}
	return *(*int32)(unsafe.Pointer(uintptr(par) + offsetParFormat))
}

func GetParBitRate(par Parameters) int64 {
	if par == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(par) + offsetParBitRate))
}

func GetParWidth(par Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(par) + offsetParWidth))
}

func GetParHeight(par Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(par) + offsetParHeight))
}

func GetParSampleRate(par Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(par) + offsetParSampleRate))
}

// GetParChannels reads nb_channels out of the embedded ch_layout, 4 bytes
// into the AVChannelLayout struct.
func GetParChannels(par Parameters) int32 {
	if par == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(par) + offsetParChLayout + 4))
}

func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
