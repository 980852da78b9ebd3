//go:build !ios && !android && (amd64 || arm64)

// Package avutil binds the parts of libavutil the pipeline rests on: frame
// lifecycle and field access, dictionaries, AVOptions, channel layouts, and
// error-code translation. Struct fields are read through hardcoded offsets
// because purego cannot express C struct layouts; the offsets target the
// FFmpeg 6.x ABI and are stable within a major version.
package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/lomavkin/annotai/internal/bindings"
)

// Frame is an opaque AVFrame pointer.
type Frame = unsafe.Pointer

// Dictionary is an opaque AVDictionary pointer.
type Dictionary = unsafe.Pointer

// DictionaryEntry is an opaque AVDictionaryEntry pointer.
type DictionaryEntry = unsafe.Pointer

// NoPTSValue is AV_NOPTS_VALUE: the timestamp is unknown.
const NoPTSValue int64 = -9223372036854775808

// TimeBase is AV_TIME_BASE. Container-level positions, seek targets among
// them, are microsecond counts.
const TimeBase int64 = 1000000

var (
	avFrameAlloc        func() unsafe.Pointer
	avFrameFree         func(frame *unsafe.Pointer)
	avFrameUnref        func(frame unsafe.Pointer)
	avFrameGetBuffer    func(frame unsafe.Pointer, align int32) int32
	avFrameMakeWritable func(frame unsafe.Pointer) int32

	avMalloc func(size uintptr) unsafe.Pointer
	avFree   func(ptr unsafe.Pointer)

	avDictSet  func(pm *unsafe.Pointer, key, value string, flags int32) int32
	avDictGet  func(m unsafe.Pointer, key string, prev unsafe.Pointer, flags int32) unsafe.Pointer
	avDictCopy func(dst *unsafe.Pointer, src unsafe.Pointer, flags int32) int32
	avDictFree func(pm *unsafe.Pointer)

	avOptSet    func(obj unsafe.Pointer, name, val string, searchFlags int32) int32
	avOptSetInt func(obj unsafe.Pointer, name string, val int64, searchFlags int32) int32
	avOptSetBin func(obj unsafe.Pointer, name string, val unsafe.Pointer, size, searchFlags int32) int32
	avOptGetInt func(obj unsafe.Pointer, name string, searchFlags int32, outVal *int64) int32

	avChannelLayoutDefault func(chLayout unsafe.Pointer, nbChannels int32)
	avChannelLayoutCopy    func(dst, src unsafe.Pointer) int32

	avStrerror    func(errnum int32, errbuf unsafe.Pointer, errbufSize uintptr) int32
	avLogSetLevel func(level int32)

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
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avFrameAlloc, lib, "av_frame_alloc")
	purego.RegisterLibFunc(&avFrameFree, lib, "av_frame_free")
	purego.RegisterLibFunc(&avFrameUnref, lib, "av_frame_unref")
	purego.RegisterLibFunc(&avFrameGetBuffer, lib, "av_frame_get_buffer")
	purego.RegisterLibFunc(&avFrameMakeWritable, lib, "av_frame_make_writable")

	purego.RegisterLibFunc(&avMalloc, lib, "av_malloc")
	purego.RegisterLibFunc(&avFree, lib, "av_free")

	purego.RegisterLibFunc(&avDictSet, lib, "av_dict_set")
	purego.RegisterLibFunc(&avDictGet, lib, "av_dict_get")
	purego.RegisterLibFunc(&avDictCopy, lib, "av_dict_copy")
	purego.RegisterLibFunc(&avDictFree, lib, "av_dict_free")

	purego.RegisterLibFunc(&avOptSet, lib, "av_opt_set")
	purego.RegisterLibFunc(&avOptSetInt, lib, "av_opt_set_int")
	purego.RegisterLibFunc(&avOptSetBin, lib, "av_opt_set_bin")
	purego.RegisterLibFunc(&avOptGetInt, lib, "av_opt_get_int")

	purego.RegisterLibFunc(&avChannelLayoutDefault, lib, "av_channel_layout_default")
	purego.RegisterLibFunc(&avChannelLayoutCopy, lib, "av_channel_layout_copy")

	purego.RegisterLibFunc(&avStrerror, lib, "av_strerror")
	purego.RegisterLibFunc(&avLogSetLevel, lib, "av_log_set_level")

	bindingsRegistered = true
}

// FrameAlloc wraps av_frame_alloc. Release the result with FrameFree.
func FrameAlloc() Frame {
	if avFrameAlloc == nil {
		return nil
	}
	return avFrameAlloc()
}

// FrameFree releases the frame and nils the pointer. Tolerates nil.
func FrameFree(frame *Frame) {
	if frame == nil || *frame == nil || avFrameFree == nil {
		return
	}
	avFrameFree(frame)
	*frame = nil
}

// FrameUnref drops the frame's buffer references so the frame can be reused
// for the next decode or filter pull.
func FrameUnref(frame Frame) {
	if frame == nil || avFrameUnref == nil {
		return
	}
	avFrameUnref(frame)
}

// FrameGetBuffer allocates buffers for a frame whose geometry and format
// fields are already populated.
func FrameGetBuffer(frame Frame, align int32) error {
	if avFrameGetBuffer == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameGetBuffer(frame, align), "av_frame_get_buffer")
}

// FrameMakeWritable copies shared buffers so the frame can be written into.
func FrameMakeWritable(frame Frame) error {
	if avFrameMakeWritable == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avFrameMakeWritable(frame), "av_frame_make_writable")
}

// AVFrame field offsets, FFmpeg 6.x / avutil 58. Checked with offsetof on
// 58.29.100.
const (
	offsetData         = 0   // uint8_t *data[8]
	offsetLinesize     = 64  // int linesize[8]
	offsetWidth        = 104 // int width
	offsetHeight       = 108 // int height
	offsetNbSamples    = 112 // int nb_samples
	offsetFormat       = 116 // int format
	offsetPictType     = 124 // enum AVPictureType pict_type
	offsetPts          = 136 // int64_t pts
	offsetSampleRate   = 208 // int sample_rate
	offsetBestEffortTS = 344 // int64_t best_effort_timestamp
)

// PictureTypeNone clears a decoded frame's picture type so the encoder owns
// the GOP structure.
const PictureTypeNone int32 = 0

func GetFrameWidth(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetWidth))
}

func SetFrameWidth(frame Frame, width int32) {
	if frame == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(frame) + offsetWidth)) = width
}

func GetFrameHeight(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetHeight))
}

func SetFrameHeight(frame Frame, height int32) {
	if frame == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(frame) + offsetHeight)) = height
}

// GetFrameFormat reads the format field: a pixel format for video frames, a
// sample format for audio frames.
func GetFrameFormat(frame Frame) int32 {
	if frame == nil {
		return -1
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetFormat))
}

func SetFrameFormat(frame Frame, format int32) {
	if frame == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(frame) + offsetFormat)) = format
}

func GetFramePTS(frame Frame) int64 {
	if frame == nil {
		return NoPTSValue
	}
	return *(*int64)(unsafe.Pointer(uintptr(frame) + offsetPts))
}

func SetFramePTS(frame Frame, pts int64) {
	if frame == nil {
		return
	}
	*(*int64)(unsafe.Pointer(uintptr(frame) + offsetPts)) = pts
}

func GetFrameNbSamples(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetNbSamples))
}

func GetFrameSampleRate(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetSampleRate))
}

// GetFrameBestEffortTS reads best_effort_timestamp, the stream-time-base
// timestamp decoders estimate even when the raw pts came through unset.
func GetFrameBestEffortTS(frame Frame) int64 {
	if frame == nil {
		return NoPTSValue
	}
	return *(*int64)(unsafe.Pointer(uintptr(frame) + offsetBestEffortTS))
}

func SetFramePictType(frame Frame, pictType int32) {
	if frame == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(frame) + offsetPictType)) = pictType
}

// GetFrameDataPlane returns the data pointer of one plane, nil when the
// plane index is out of the AVFrame's fixed 8-slot array.
func GetFrameDataPlane(frame Frame, plane int) unsafe.Pointer {
	if frame == nil || plane < 0 || plane >= 8 {
		return nil
	}
	return (*[8]unsafe.Pointer)(unsafe.Pointer(uintptr(frame) + offsetData))[plane]
}

// GetFrameLinesizePlane returns the stride of one plane in bytes.
func GetFrameLinesizePlane(frame Frame, plane int) int32 {
	if frame == nil || plane < 0 || plane >= 8 {
		return 0
	}
	return (*[8]int32)(unsafe.Pointer(uintptr(frame) + offsetLinesize))[plane]
}

// DictIgnoreSuffix, passed with an empty key, turns DictGet into an
// iterator over every entry.
const DictIgnoreSuffix int32 = 2

// DictSet stores key=value, creating the dictionary when *dict is nil.
func DictSet(dict *Dictionary, key, value string, flags int32) error {
	if avDictSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avDictSet(dict, key, value, flags), "av_dict_set")
}

// DictGet returns the entry matching key after prev, or nil when exhausted.
func DictGet(dict Dictionary, key string, prev DictionaryEntry, flags int32) DictionaryEntry {
	if dict == nil || avDictGet == nil {
		return nil
	}
	return avDictGet(dict, key, prev, flags)
}

// DictCopy merges src into *dst. A nil src is a no-op.
func DictCopy(dst *Dictionary, src Dictionary, flags int32) error {
	if avDictCopy == nil {
		return bindings.ErrNotLoaded
	}
	if src == nil {
		return nil
	}
	return NewError(avDictCopy(dst, src, flags), "av_dict_copy")
}

// DictFree releases the dictionary and every entry. Tolerates nil.
func DictFree(dict *Dictionary) {
	if dict == nil || *dict == nil || avDictFree == nil {
		return
	}
	avDictFree(dict)
}

// AVDictionaryEntry layout: char *key at 0, char *value at 8.
const (
	offsetDictEntryKey   = 0
	offsetDictEntryValue = 8
)

func DictEntryKey(entry DictionaryEntry) string {
	if entry == nil {
		return ""
	}
	return goString(*(*unsafe.Pointer)(unsafe.Pointer(uintptr(entry) + offsetDictEntryKey)))
}

func DictEntryValue(entry DictionaryEntry) string {
	if entry == nil {
		return ""
	}
	return goString(*(*unsafe.Pointer)(unsafe.Pointer(uintptr(entry) + offsetDictEntryValue)))
}

// AVOptionSearchChildren is AV_OPT_SEARCH_CHILDREN: resolve option names in
// child objects as well, which is how codec-private options like an
// encoder's preset are reached.
const AVOptionSearchChildren int32 = 1

// OptSet sets a string-valued option on obj.
func OptSet(obj unsafe.Pointer, name, val string, searchFlags int32) error {
	if obj == nil || avOptSet == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSet(obj, name, val, searchFlags), "av_opt_set")
}

// OptSetInt sets an integer-valued option on obj.
func OptSetInt(obj unsafe.Pointer, name string, val int64, searchFlags int32) error {
	if obj == nil || avOptSetInt == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSetInt(obj, name, val, searchFlags), "av_opt_set_int")
}

// OptSetBin sets a binary option on obj; buffersink format pinning uses it
// to hand over terminated arrays.
func OptSetBin(obj unsafe.Pointer, name string, val unsafe.Pointer, size int32, searchFlags int32) error {
	if obj == nil || avOptSetBin == nil {
		return bindings.ErrNotLoaded
	}
	return NewError(avOptSetBin(obj, name, val, size, searchFlags), "av_opt_set_bin")
}

// OptGetInt reads an integer-valued option from obj.
func OptGetInt(obj unsafe.Pointer, name string, searchFlags int32) (int64, error) {
	if obj == nil || avOptGetInt == nil {
		return 0, bindings.ErrNotLoaded
	}
	var out int64
	if ret := avOptGetInt(obj, name, searchFlags, &out); ret < 0 {
		return 0, NewError(ret, "av_opt_get_int")
	}
	return out, nil
}

// AVChannelLayout layout (FFmpeg 5.1+): order at 0, nb_channels at 4, the
// mask union at 8, opaque at 16. 24 bytes in total.
const (
	offsetChLayoutOrder      = 0
	offsetChLayoutNbChannels = 4
	offsetChLayoutMask       = 8

	// ChannelLayoutSize is sizeof(AVChannelLayout).
	ChannelLayoutSize = 24
)

// ChannelOrderNative marks a layout whose mask field is meaningful.
const ChannelOrderNative int32 = 1

// ChannelLayoutDefault writes the default layout for a channel count into
// chLayout, which points at an AVChannelLayout (typically embedded in a
// codec context).
func ChannelLayoutDefault(chLayout unsafe.Pointer, nbChannels int32) {
	if avChannelLayoutDefault == nil || chLayout == nil {
		return
	}
	avChannelLayoutDefault(chLayout, nbChannels)
}

// ChannelLayoutCopy copies src into dst, reallocating dst's map if any.
func ChannelLayoutCopy(dst, src unsafe.Pointer) error {
	if avChannelLayoutCopy == nil {
		return nil
	}
	return NewError(avChannelLayoutCopy(dst, src), "av_channel_layout_copy")
}

func GetChannelLayoutNbChannels(chLayout unsafe.Pointer) int32 {
	if chLayout == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(chLayout) + offsetChLayoutNbChannels))
}

// GetChannelLayoutMask returns the native-order channel mask. Layouts in
// any other order get the default mask for their channel count, which is
// what the abuffer filter args need.
func GetChannelLayoutMask(chLayout unsafe.Pointer) uint64 {
	if chLayout == nil {
		return 0
	}
	order := *(*int32)(unsafe.Pointer(uintptr(chLayout) + offsetChLayoutOrder))
	mask := *(*uint64)(unsafe.Pointer(uintptr(chLayout) + offsetChLayoutMask))
	if order == ChannelOrderNative && mask != 0 {
		return mask
	}
	return DefaultChannelLayoutMask(GetChannelLayoutNbChannels(chLayout))
}

// DefaultChannelLayoutMask returns FFmpeg's default mask for a channel
// count, e.g. 0x3 (stereo) for 2.
func DefaultChannelLayoutMask(nbChannels int32) uint64 {
	if nbChannels <= 0 || avChannelLayoutDefault == nil {
		return 0
	}
	tmp := Malloc(ChannelLayoutSize)
	if tmp == nil {
		return 0
	}
	defer Free(tmp)
	avChannelLayoutDefault(tmp, nbChannels)
	return *(*uint64)(unsafe.Pointer(uintptr(tmp) + offsetChLayoutMask))
}

// Malloc allocates through FFmpeg's allocator. Pair with Free.
func Malloc(size uintptr) unsafe.Pointer {
	if avMalloc == nil {
		return nil
	}
	return avMalloc(size)
}

// Free releases memory owned by FFmpeg's allocator, such as strings the
// native side hands back.
func Free(ptr unsafe.Pointer) {
	if ptr == nil || avFree == nil {
		return
	}
	avFree(ptr)
}

// ErrorString renders an AVERROR code through av_strerror.
func ErrorString(errnum int32) string {
	if avStrerror == nil {
		return "unknown error (FFmpeg not loaded)"
	}
	buf := make([]byte, 256)
	avStrerror(errnum, unsafe.Pointer(&buf[0]), 256)
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// LogSetLevel wraps av_log_set_level.
func LogSetLevel(level int32) {
	if avLogSetLevel == nil {
		return
	}
	avLogSetLevel(level)
}

// goString copies a NUL-terminated C string.
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
