//go:build !ios && !android && (amd64 || arm64)

package avutil

// MediaType mirrors AVMediaType. Stream mapping branches on it.
type MediaType int32

const (
	MediaTypeUnknown    MediaType = -1
	MediaTypeVideo      MediaType = 0
	MediaTypeAudio      MediaType = 1
	MediaTypeData       MediaType = 2
	MediaTypeSubtitle   MediaType = 3
	MediaTypeAttachment MediaType = 4
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeData:
		return "data"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeAttachment:
		return "attachment"
	default:
		return "unknown"
	}
}

// PixelFormat mirrors AVPixelFormat. Only the formats the pipeline names
// are spelled out; everything else travels as the raw value. Values from
// pixfmt.h.
type PixelFormat int32

const (
	PixelFormatNone    PixelFormat = -1
	PixelFormatYUV420P PixelFormat = 0
	PixelFormatRGB24   PixelFormat = 2
)

// SampleFormat mirrors AVSampleFormat. The whole enum is carried because
// Name must translate whatever format a decoder or encoder advertises.
// Values from samplefmt.h.
type SampleFormat int32

const (
	SampleFormatNone SampleFormat = -1
	SampleFormatU8   SampleFormat = 0
	SampleFormatS16  SampleFormat = 1
	SampleFormatS32  SampleFormat = 2
	SampleFormatFlt  SampleFormat = 3
	SampleFormatDbl  SampleFormat = 4
	SampleFormatU8P  SampleFormat = 5
	SampleFormatS16P SampleFormat = 6
	SampleFormatS32P SampleFormat = 7
	SampleFormatFltP SampleFormat = 8
	SampleFormatDblP SampleFormat = 9
	SampleFormatS64  SampleFormat = 10
	SampleFormatS64P SampleFormat = 11
)

// Name returns the short name filter arguments expect, abuffer's sample_fmt
// among them. Unknown formats return "".
func (s SampleFormat) Name() string {
	switch s {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatFlt:
		return "flt"
	case SampleFormatDbl:
		return "dbl"
	case SampleFormatU8P:
		return "u8p"
	case SampleFormatS16P:
		return "s16p"
	case SampleFormatS32P:
		return "s32p"
	case SampleFormatFltP:
		return "fltp"
	case SampleFormatDblP:
		return "dblp"
	case SampleFormatS64:
		return "s64"
	case SampleFormatS64P:
		return "s64p"
	default:
		return ""
	}
}
