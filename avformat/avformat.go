//go:build !ios && !android && (amd64 || arm64)

// Package avformat wraps libavformat: opening and probing containers,
// pulling demuxed packets, and writing muxed output. Fields of the opaque
// FFmpeg structs are read through hardcoded FFmpeg 6.x offsets, declared
// next to their accessors.
package avformat

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avutil"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Opaque libavformat pointers.
type (
	// FormatContext is an AVFormatContext, demuxer or muxer state.
	FormatContext = unsafe.Pointer

	// InputFormat is an AVInputFormat, a demuxer definition.
	InputFormat = unsafe.Pointer

	// OutputFormat is an AVOutputFormat, a muxer definition.
	OutputFormat = unsafe.Pointer

	// Stream is an AVStream inside a format context.
	Stream = unsafe.Pointer

	// IOContext is an AVIOContext, the byte channel behind a muxer.
	IOContext = unsafe.Pointer
)

var (
	avformatOpenInput      func(ctx *unsafe.Pointer, url string, fmt, options unsafe.Pointer) int32
	avformatCloseInput     func(ctx *unsafe.Pointer)
	avformatFindStreamInfo func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avFindBestStream       func(ctx unsafe.Pointer, mediaType, wanted, related int32, decoder *unsafe.Pointer, flags int32) int32
	avReadFrame            func(ctx, pkt unsafe.Pointer) int32
	avSeekFrame            func(ctx unsafe.Pointer, streamIndex int32, timestamp int64, flags int32) int32
	avDumpFormat           func(ctx unsafe.Pointer, index int32, url string, isOutput int32)

	avformatAllocOutputCtx2 func(ctx *unsafe.Pointer, oformat unsafe.Pointer, formatName *byte, filename string) int32
	avformatFreeContext     func(ctx unsafe.Pointer)
	avformatNewStream       func(ctx, codec unsafe.Pointer) unsafe.Pointer
	avformatWriteHeader     func(ctx unsafe.Pointer, options *unsafe.Pointer) int32
	avInterleavedWriteFrame func(ctx, pkt unsafe.Pointer) int32
	avWriteTrailer          func(ctx unsafe.Pointer) int32

	avioOpen   func(ctx *unsafe.Pointer, url string, flags int32) int32
	avioClosep func(ctx *unsafe.Pointer) int32

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

	lib := bindings.LibAVFormat()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avformatOpenInput, lib, "avformat_open_input")
	purego.RegisterLibFunc(&avformatCloseInput, lib, "avformat_close_input")
	purego.RegisterLibFunc(&avformatFindStreamInfo, lib, "avformat_find_stream_info")
	purego.RegisterLibFunc(&avFindBestStream, lib, "av_find_best_stream")
	purego.RegisterLibFunc(&avReadFrame, lib, "av_read_frame")
	purego.RegisterLibFunc(&avSeekFrame, lib, "av_seek_frame")
	purego.RegisterLibFunc(&avDumpFormat, lib, "av_dump_format")

	purego.RegisterLibFunc(&avformatAllocOutputCtx2, lib, "avformat_alloc_output_context2")
	purego.RegisterLibFunc(&avformatFreeContext, lib, "avformat_free_context")
	purego.RegisterLibFunc(&avformatNewStream, lib, "avformat_new_stream")
	purego.RegisterLibFunc(&avformatWriteHeader, lib, "avformat_write_header")
	purego.RegisterLibFunc(&avInterleavedWriteFrame, lib, "av_interleaved_write_frame")
	purego.RegisterLibFunc(&avWriteTrailer, lib, "av_write_trailer")

	purego.RegisterLibFunc(&avioOpen, lib, "avio_open")
	purego.RegisterLibFunc(&avioClosep, lib, "avio_closep")

	bindingsRegistered = true
}

// OpenInput opens url and reads the container header into *ctx, allocating
// the context when *ctx is nil. Release with CloseInput.
func OpenInput(ctx *FormatContext, url string, fmt InputFormat, options *avutil.Dictionary) error {
	if avformatOpenInput == nil {
		return bindings.ErrNotLoaded
	}
	var opts unsafe.Pointer
	if options != nil {
		opts = unsafe.Pointer(options)
	}
	if ret := avformatOpenInput(ctx, url, fmt, opts); ret < 0 {
		return avutil.NewError(ret, "avformat_open_input")
	}
	return nil
}

// CloseInput closes an opened input and nils the pointer. Tolerates nil.
func CloseInput(ctx *FormatContext) {
	if avformatCloseInput == nil || ctx == nil || *ctx == nil {
		return
	}
	avformatCloseInput(ctx)
}

// FindStreamInfo reads a few packets to fill in stream parameters the
// header alone does not carry.
func FindStreamInfo(ctx FormatContext, options *avutil.Dictionary) error {
	if avformatFindStreamInfo == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avformatFindStreamInfo(ctx, options); ret < 0 {
		return avutil.NewError(ret, "avformat_find_stream_info")
	}
	return nil
}

// FindBestStream returns the index of the most suitable stream of the
// given type, or a negative AVERROR such as avutil.AVERROR_STREAM_NOT_FOUND.
func FindBestStream(ctx FormatContext, mediaType avutil.MediaType, wanted, related int32, decoder *avcodec.Codec, flags int32) int32 {
	if avFindBestStream == nil {
		return avutil.AVERROR_STREAM_NOT_FOUND
	}
	return avFindBestStream(ctx, int32(mediaType), wanted, related, decoder, flags)
}

// ReadFrame reads the next packet from the input. The error satisfies
// avutil.IsEOF at end of input.
func ReadFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avReadFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avReadFrame(ctx, pkt); ret < 0 {
		return avutil.NewError(ret, "av_read_frame")
	}
	return nil
}

// SeekFlagBackward makes SeekFrame land on the keyframe at or before the
// timestamp (AVSEEK_FLAG_BACKWARD). Other AVSEEK_FLAG_* values pass
// through as raw int32.
const SeekFlagBackward int32 = 1

// SeekFrame seeks near the given timestamp. With streamIndex -1 the
// timestamp is in avutil.TimeBase units.
func SeekFrame(ctx FormatContext, streamIndex int32, timestamp int64, flags int32) error {
	if avSeekFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avSeekFrame(ctx, streamIndex, timestamp, flags); ret < 0 {
		return avutil.NewError(ret, "av_seek_frame")
	}
	return nil
}

// DumpFormat prints the container layout to stderr, ffprobe style.
func DumpFormat(ctx FormatContext, index int32, url string, isOutput bool) {
	if avDumpFormat == nil || ctx == nil {
		return
	}
	var out int32
	if isOutput {
		out = 1
	}
	avDumpFormat(ctx, index, url, out)
}

// AllocOutputContext2 allocates a muxing context. With oformat nil the
// muxer is picked by formatName, or by the filename extension when
// formatName is empty too. Release with FreeContext.
func AllocOutputContext2(ctx *FormatContext, oformat OutputFormat, formatName, filename string) error {
	if avformatAllocOutputCtx2 == nil {
		return bindings.ErrNotLoaded
	}
	// An empty format name must become NULL so the muxer is guessed
	// from the filename instead of matched against "".
	var name *byte
	if formatName != "" {
		buf := append([]byte(formatName), 0)
		name = &buf[0]
	}
	if ret := avformatAllocOutputCtx2(ctx, oformat, name, filename); ret < 0 {
		return avutil.NewError(ret, "avformat_alloc_output_context2")
	}
	return nil
}

// FreeContext frees a muxing context allocated by AllocOutputContext2.
func FreeContext(ctx FormatContext) {
	if avformatFreeContext == nil || ctx == nil {
		return
	}
	avformatFreeContext(ctx)
}

// NewStream appends a stream to the output context.
func NewStream(ctx FormatContext, codec avcodec.Codec) Stream {
	if avformatNewStream == nil {
		return nil
	}
	return avformatNewStream(ctx, codec)
}

// WriteHeader writes the container header. The muxer may replace stream
// time bases here; reread them before rescaling packets.
func WriteHeader(ctx FormatContext, options *avutil.Dictionary) error {
	if avformatWriteHeader == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avformatWriteHeader(ctx, options); ret < 0 {
		return avutil.NewError(ret, "avformat_write_header")
	}
	return nil
}

// InterleavedWriteFrame hands a packet to the muxer, which interleaves it
// with the other streams. The packet is consumed and left blank.
func InterleavedWriteFrame(ctx FormatContext, pkt avcodec.Packet) error {
	if avInterleavedWriteFrame == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avInterleavedWriteFrame(ctx, pkt); ret < 0 {
		return avutil.NewError(ret, "av_interleaved_write_frame")
	}
	return nil
}

// WriteTrailer finalizes the output container.
func WriteTrailer(ctx FormatContext) error {
	if avWriteTrailer == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avWriteTrailer(ctx); ret < 0 {
		return avutil.NewError(ret, "av_write_trailer")
	}
	return nil
}

// IOFlagWrite opens the resource for writing (AVIO_FLAG_WRITE).
const IOFlagWrite int32 = 2

// IOOpen opens the byte channel at url.
func IOOpen(ctx *IOContext, url string, flags int32) error {
	if avioOpen == nil {
		return bindings.ErrNotLoaded
	}
	if ret := avioOpen(ctx, url, flags); ret < 0 {
		return avutil.NewError(ret, "avio_open")
	}
	return nil
}

// IOCloseP flushes and closes the IO context and nils the pointer.
func IOCloseP(ctx *IOContext) error {
	if avioClosep == nil {
		return bindings.ErrNotLoaded
	}
	if ctx == nil || *ctx == nil {
		return nil
	}
	if ret := avioClosep(ctx); ret < 0 {
		return avutil.NewError(ret, "avio_closep")
	}
	return nil
}

// AVFormatContext field offsets, verified with offsetof() against
// avformat 60.16.100.
const (
	offsetIformat    = 8   // const AVInputFormat *iformat
	offsetOformat    = 16  // const AVOutputFormat *oformat
	offsetIOContext  = 32  // AVIOContext *pb
	offsetNumStreams = 44  // unsigned int nb_streams
	offsetStreams    = 48  // AVStream **streams
	offsetDuration   = 72  // int64_t duration
	offsetBitRate    = 80  // int64_t bit_rate
	offsetMetadata   = 176 // AVDictionary *metadata
)

// SetIOContext installs pb as the muxer's byte channel. Required before
// WriteHeader unless the format carries AVFMT_NOFILE.
func SetIOContext(ctx FormatContext, pb IOContext) {
	if ctx == nil {
		return
	}
	*(*unsafe.Pointer)(unsafe.Pointer(uintptr(ctx) + offsetIOContext)) = pb
}

// GetNumStreams returns the stream count of the container.
func GetNumStreams(ctx FormatContext) int {
	if ctx == nil {
		return 0
	}
	return int(*(*uint32)(unsafe.Pointer(uintptr(ctx) + offsetNumStreams)))
}

// GetStream returns the stream at index, nil when out of range.
func GetStream(ctx FormatContext, index int) Stream {
	if ctx == nil || index < 0 || index >= GetNumStreams(ctx) {
		return nil
	}
	streamsPtr := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(ctx) + offsetStreams))
	if streamsPtr == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(streamsPtr) + uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

// GetDuration returns the container duration in avutil.TimeBase units.
func GetDuration(ctx FormatContext) int64 {
	if ctx == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(ctx) + offsetDuration))
}

// GetBitRate returns the total bit rate in bits per second, 0 if unknown.
func GetBitRate(ctx FormatContext) int64 {
	if ctx == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(ctx) + offsetBitRate))
}

// GetMetadata returns the container-level metadata dictionary.
func GetMetadata(ctx FormatContext) avutil.Dictionary {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(ctx) + offsetMetadata))
}

// MetadataPtr returns a pointer to the metadata field, for avutil.DictCopy
// and avutil.DictSet.
func MetadataPtr(ctx FormatContext) *avutil.Dictionary {
	if ctx == nil {
		return nil
	}
	return (*avutil.Dictionary)(unsafe.Pointer(uintptr(ctx) + offsetMetadata))
}

// GetInputFormat returns the demuxer selected for an opened input.
func GetInputFormat(ctx FormatContext) InputFormat {
	if ctx == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(ctx) + offsetIformat))
}

// name and long_name lead AVInputFormat, stable across FFmpeg versions.
const (
	offsetInputFormatName     = 0 // const char *name
	offsetInputFormatLongName = 8 // const char *long_name
)

// InputFormatName returns the demuxer's short name, a comma-separated
// list like "mov,mp4,m4a,3gp,3g2,mj2".
func InputFormatName(ifmt InputFormat) string {
	if ifmt == nil {
		return ""
	}
	return goString(*(*unsafe.Pointer)(unsafe.Pointer(uintptr(ifmt) + offsetInputFormatName)))
}

// InputFormatLongName returns the demuxer's descriptive name.
func InputFormatLongName(ifmt InputFormat) string {
	if ifmt == nil {
		return ""
	}
	return goString(*(*unsafe.Pointer)(unsafe.Pointer(uintptr(ifmt) + offsetInputFormatLongName)))
}

// AVStream field offsets, verified with offsetof() against
// avformat 60.16.100.
const (
	offsetStreamCodecPar     = 16 // AVCodecParameters *codecpar
	offsetStreamTimeBase     = 32 // AVRational time_base
	offsetStreamAvgFrameRate = 88 // AVRational avg_frame_rate
)

// GetStreamCodecPar returns the stream's codec parameters.
func GetStreamCodecPar(stream Stream) avcodec.Parameters {
	if stream == nil {
		return nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(uintptr(stream) + offsetStreamCodecPar))
}

// GetStreamTimeBase returns the unit of the stream's timestamps.
func GetStreamTimeBase(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamTimeBase))
	den := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamTimeBase + 4))
	return avutil.NewRational(num, den)
}

// SetStreamTimeBase sets the stream time base. On output streams this is
// a hint; WriteHeader may overwrite it.
func SetStreamTimeBase(stream Stream, tb avutil.Rational) {
	if stream == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamTimeBase)) = tb.Num
	*(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamTimeBase + 4)) = tb.Den
}

// GetStreamAvgFrameRate returns the measured frame rate, zero when the
// demuxer could not determine one.
func GetStreamAvgFrameRate(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamAvgFrameRate))
	den := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamAvgFrameRate + 4))
	return avutil.NewRational(num, den)
}

// AVOutputFormat flag bits, read from the int flags field at offset 44.
const (
	offsetOutputFormatFlags = 44

	avfmtNoFile       = 0x0001 // AVFMT_NOFILE
	avfmtGlobalHeader = 0x0040 // AVFMT_GLOBALHEADER
)

func outputFormatFlags(ctx FormatContext) int32 {
	if ctx == nil {
		return 0
	}
	oformat := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(ctx) + offsetOformat))
	if oformat == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(oformat) + offsetOutputFormatFlags))
}

// NeedsGlobalHeader reports whether the output format wants codec-level
// global headers, in which case encoders must set
// avcodec.CodecFlagGlobalHeader before opening.
func NeedsGlobalHeader(ctx FormatContext) bool {
	return outputFormatFlags(ctx)&avfmtGlobalHeader != 0
}

// HasNoFile reports whether the output format does its own IO, in which
// case IOOpen must not be called.
func HasNoFile(ctx FormatContext) bool {
	return outputFormatFlags(ctx)&avfmtNoFile != 0
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
