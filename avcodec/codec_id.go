//go:build !ios && !android && (amd64 || arm64)

package avcodec

// CodecID is FFmpeg's AVCodecID value for a stream's codec.
type CodecID int32

// The IDs spelled out here are the ones the pipeline produces or that
// commonly show up when probing user media. Anything else still works as
// a raw value; String falls back to "unknown" for it.
const (
	CodecIDNone CodecID = 0

	CodecIDMJPEG CodecID = 7
	CodecIDMPEG4 CodecID = 12
	CodecIDH264  CodecID = 27
	CodecIDVP8   CodecID = 139
	CodecIDVP9   CodecID = 167
	CodecIDHEVC  CodecID = 173
	CodecIDAV1   CodecID = 226

	CodecIDMP3    CodecID = 86017
	CodecIDAAC    CodecID = 86018
	CodecIDAC3    CodecID = 86019
	CodecIDVorbis CodecID = 86021
	CodecIDFLAC   CodecID = 86028
	CodecIDOpus   CodecID = 86076

	CodecIDDVDSubtitle CodecID = 94208
	CodecIDMovText     CodecID = 94213
)

var codecNames = map[CodecID]string{
	CodecIDNone:        "none",
	CodecIDMJPEG:       "mjpeg",
	CodecIDMPEG4:       "mpeg4",
	CodecIDH264:        "h264",
	CodecIDVP8:         "vp8",
	CodecIDVP9:         "vp9",
	CodecIDHEVC:        "hevc",
	CodecIDAV1:         "av1",
	CodecIDMP3:         "mp3",
	CodecIDAAC:         "aac",
	CodecIDAC3:         "ac3",
	CodecIDVorbis:      "vorbis",
	CodecIDFLAC:        "flac",
	CodecIDOpus:        "opus",
	CodecIDDVDSubtitle: "dvdsub",
	CodecIDMovText:     "mov_text",
}

func (id CodecID) String() string {
	if name, ok := codecNames[id]; ok {
		return name
	}
	return "unknown"
}

// FFmpeg blocks the AVCodecID space by media type: video from 1, audio
// from 0x10000, subtitles from 0x17000 up to 0x18000.

// IsVideo reports whether the ID falls in the video codec block.
func (id CodecID) IsVideo() bool {
	return id > 0 && id < 0x10000
}

// IsAudio reports whether the ID falls in the audio codec block.
func (id CodecID) IsAudio() bool {
	return id >= 0x10000 && id < 0x17000
}

// IsSubtitle reports whether the ID falls in the subtitle codec block.
func (id CodecID) IsSubtitle() bool {
	return id >= 0x17000 && id < 0x18000
}
